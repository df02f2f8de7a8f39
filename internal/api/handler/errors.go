package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// StatusFor maps a domain error to its HTTP status and client-facing message.
// Anything unrecognised, including persistence failures, is a 500.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "internal server error"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, "invalid or expired refresh token"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrIncorrectPassword):
		return http.StatusUnauthorized, "current password is incorrect"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user with this email already exists"
	case errors.Is(err, domain.ErrWalletInUse):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest, "invalid role"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many login attempts, try again later"
	case errors.Is(err, domain.ErrInvalidResetToken),
		errors.Is(err, domain.ErrInvalidVerificationToken),
		errors.Is(err, domain.ErrVerificationExpired),
		errors.Is(err, domain.ErrEmailAlreadyVerified):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError renders known domain errors. Unknown errors are returned so the
// central error handler logs them.
func writeError(c echo.Context, err error) error {
	code, msg := StatusFor(err)
	if code == http.StatusInternalServerError {
		return err
	}
	return c.JSON(code, errorResponse{Error: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
