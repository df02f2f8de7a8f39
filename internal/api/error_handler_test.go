package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
)

func render(t *testing.T, log zerolog.Logger, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(log)(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidOrExpiredToken, http.StatusUnauthorized},
		{domain.ErrUserExists, http.StatusConflict},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", domain.ErrTooManyAttempts), http.StatusTooManyRequests},
		{echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header"), http.StatusUnauthorized},
		{echo.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec, body := render(t, zerolog.Nop(), tc.err)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		if body.Error == "" {
			t.Fatalf("%v: expected an error message", tc.err)
		}
	}
}

func TestHTTPErrorHandler_UnexpectedErrorIsLoggedNotLeaked(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	cause := fmt.Errorf("refresh: %w: %w", domain.ErrPersistence, errors.New("mongo: connection refused"))
	rec, body := render(t, log, cause)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body.Error != "internal server error" {
		t.Fatalf("unexpected message %q", body.Error)
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Fatalf("expected the cause to be logged, got %q", buf.String())
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.NoContent(http.StatusAccepted)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
