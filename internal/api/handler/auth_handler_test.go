package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

const registerBody = `{"email":"Alice@Example.com","password":"Secret123!","first_name":"Alice","last_name":"Doe"}`

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	accounts := &stubAccountService{}
	sessions := &stubSessionService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
			if in.Email != "alice@example.com" || in.Password != "Secret123!" || in.FirstName != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return sampleResult(), nil
		},
	}
	h := NewAuthHandler(sessions, accounts, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "access-1" || resp["refresh_token"] != "refresh-1" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if len(accounts.calls) != 1 || accounts.calls[0] != "verify-request:alice@example.com" {
		t.Fatalf("expected a verification email request, got %v", accounts.calls)
	}
}

func TestAuthHandler_Register_VerificationFailureIgnored(t *testing.T) {
	e := newEcho()
	accounts := &stubAccountService{err: errors.New("queue full")}
	sessions := &stubSessionService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.AuthResult, error) {
			return sampleResult(), nil
		},
	}
	h := NewAuthHandler(sessions, accounts, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newEcho()
	sessions := &stubSessionService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/register", registerBody)
	_ = h.Register(c)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	cases := map[string]string{
		"not json":       "not-json",
		"bad email":      `{"email":"nope","password":"Secret123!","first_name":"A","last_name":"B"}`,
		"weak password":  `{"email":"a@example.com","password":"secret","first_name":"A","last_name":"B"}`,
		"missing name":   `{"email":"a@example.com","password":"Secret123!","last_name":"B"}`,
		"bad wallet":     `{"email":"a@example.com","password":"Secret123!","first_name":"A","last_name":"B","wallet_address":"0xabc"}`,
		"illegal symbol": `{"email":"a@example.com","password":"Secret123#","first_name":"A","last_name":"B"}`,
	}
	for name, body := range cases {
		e := newEcho()
		sessions := &stubSessionService{
			registerFn: func(context.Context, ports.RegisterInput) (*domain.AuthResult, error) {
				t.Fatalf("%s: should not be called", name)
				return nil, nil
			},
		}
		h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

		c, rec := jsonRequest(e, http.MethodPost, "/auth/register", body)
		_ = h.Register(c)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	sessions := &stubSessionService{
		loginFn: func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
			if email != "alice@example.com" || password != "Secret123!" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return sampleResult(), nil
		},
	}
	h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"ALICE@example.com","password":"Secret123!"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.AuthResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "access-1" || resp.User.ID != "u1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		e := newEcho()
		sessions := &stubSessionService{
			loginFn: func(context.Context, string, string) (*domain.AuthResult, error) {
				return nil, tc.err
			},
		}
		h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

		c, rec := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"x"}`)
		_ = h.Login(c)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestAuthHandler_Login_PersistenceIsReturned(t *testing.T) {
	e := newEcho()
	cause := fmt.Errorf("login: %w: %w", domain.ErrPersistence, errors.New("mongo down"))
	sessions := &stubSessionService{
		loginFn: func(context.Context, string, string) (*domain.AuthResult, error) {
			return nil, cause
		},
	}
	h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"x"}`)
	err := h.Login(c)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected the error to reach the central handler, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must not render a body for unexpected errors")
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newEcho()
	sessions := &stubSessionService{
		refreshFn: func(ctx context.Context, token string) (*domain.AuthResult, error) {
			if token != "refresh-1" {
				return nil, domain.ErrInvalidOrExpiredToken
			}
			return sampleResult(), nil
		},
	}
	h := NewAuthHandler(sessions, &stubAccountService{}, zerolog.Nop())

	c, rec := jsonRequest(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh-1"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = jsonRequest(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"stale"}`)
	_ = h.Refresh(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	c, rec = jsonRequest(e, http.MethodPost, "/auth/refresh", `{}`)
	_ = h.Refresh(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d", rec.Code)
	}
}
