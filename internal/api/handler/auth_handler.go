package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

type AuthHandler struct {
	sessions ports.SessionService
	accounts ports.AccountService
	log      zerolog.Logger
}

func NewAuthHandler(sessions ports.SessionService, accounts ports.AccountService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, accounts: accounts, log: log}
}

// --- Request / Response types ---

type registerRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,password"`
	FirstName     string `json:"first_name" validate:"required,max=50"`
	LastName      string `json:"last_name" validate:"required,max=50"`
	WalletAddress string `json:"wallet_address" validate:"omitempty,stellar_address"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// normalizeEmail is applied at the edge so every lookup sees the same key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var errInvalidPayload = errors.New("invalid payload")

// decode binds the body into req and runs the registered validator.
func decode(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidPayload
	}
	return c.Validate(req)
}

// Register creates a new account and opens its first session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.AuthResult
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	res, err := h.sessions.Register(ctx, ports.RegisterInput{
		Email:         normalizeEmail(req.Email),
		Password:      req.Password,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return writeError(c, err)
	}

	// The account exists at this point; a failed verification email can be
	// re-requested through /auth/resend-verification.
	if err := h.accounts.RequestVerification(ctx, res.User.Email); err != nil {
		h.log.Warn().Err(err).Str("user_id", res.User.ID).Msg("verification email not queued")
	}

	return c.JSON(http.StatusCreated, res)
}

// Login authenticates a user and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  domain.AuthResult
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.sessions.Login(c.Request().Context(), normalizeEmail(req.Email), req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed; presenting it again ends the session.
//
// @Summary      Rotate tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Current refresh token"
// @Success      200   {object}  domain.AuthResult
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.sessions.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			h.log.Debug().Str("ip", c.RealIP()).Msg("refresh rejected")
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
