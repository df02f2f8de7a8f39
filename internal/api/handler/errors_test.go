package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fundhive/identity-api/internal/core/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrInvalidOrExpiredToken, http.StatusUnauthorized},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrIncorrectPassword, http.StatusUnauthorized},
		{domain.ErrUserExists, http.StatusConflict},
		{domain.ErrWalletInUse, http.StatusConflict},
		{domain.ErrInvalidRole, http.StatusBadRequest},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
		{domain.ErrInvalidResetToken, http.StatusBadRequest},
		{domain.ErrInvalidVerificationToken, http.StatusBadRequest},
		{domain.ErrVerificationExpired, http.StatusBadRequest},
		{domain.ErrEmailAlreadyVerified, http.StatusBadRequest},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if code, _ := StatusFor(tc.err); code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, code)
		}
	}
}

func TestStatusFor_PersistenceWins(t *testing.T) {
	// A failed revocation carries both categories; it must never read as 401.
	err := fmt.Errorf("revoke: %w: %w", domain.ErrPersistence, domain.ErrInvalidOrExpiredToken)
	code, msg := StatusFor(err)
	if code != http.StatusInternalServerError || msg != "internal server error" {
		t.Fatalf("expected 500, got %d %q", code, msg)
	}
}
