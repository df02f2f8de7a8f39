package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

type stubSessionService struct {
	loginFn    func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
}

func (s *stubSessionService) Issue(context.Context, *domain.User) (*domain.AuthResult, error) {
	panic("not used by handlers")
}

func (s *stubSessionService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubSessionService) Validate(context.Context, domain.TokenPayload) (*domain.User, error) {
	panic("not used by handlers")
}

// stubAccountService records the last argument it was called with. A nil
// function field means success.
type stubAccountService struct {
	profileFn func(ctx context.Context, userID string) (*domain.Profile, error)
	err       error
	calls     []string

	lastUpdate ports.ProfileUpdate
	lastFilter ports.UserFilter
}

func (s *stubAccountService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	s.calls = append(s.calls, "profile:"+userID)
	return s.profileFn(ctx, userID)
}

func (s *stubAccountService) ChangePassword(_ context.Context, userID, current, next string) error {
	s.calls = append(s.calls, "change:"+userID+":"+current+":"+next)
	return s.err
}

func (s *stubAccountService) ForgotPassword(_ context.Context, email string) error {
	s.calls = append(s.calls, "forgot:"+email)
	return s.err
}

func (s *stubAccountService) ResetPassword(_ context.Context, token, newPassword string) error {
	s.calls = append(s.calls, "reset:"+token+":"+newPassword)
	return s.err
}

func (s *stubAccountService) RequestVerification(_ context.Context, email string) error {
	s.calls = append(s.calls, "verify-request:"+email)
	return s.err
}

func (s *stubAccountService) VerifyEmail(_ context.Context, token string) error {
	s.calls = append(s.calls, "verify:"+token)
	return s.err
}

func (s *stubAccountService) UpdateProfile(_ context.Context, userID string, in ports.ProfileUpdate) (*domain.Profile, error) {
	s.calls = append(s.calls, "update-profile:"+userID)
	s.lastUpdate = in
	if s.err != nil {
		return nil, s.err
	}
	p := &domain.Profile{ID: userID}
	if in.FirstName != nil {
		p.FirstName = *in.FirstName
	}
	if in.WalletAddress != nil {
		p.WalletAddress = *in.WalletAddress
	}
	return p, nil
}

func (s *stubAccountService) ListUsers(_ context.Context, f ports.UserFilter) (*ports.UserPage, error) {
	s.calls = append(s.calls, "list")
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	return &ports.UserPage{Users: []domain.Profile{{ID: "u1"}}, Total: 1, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *stubAccountService) UpdateRole(_ context.Context, userID, role string) (*domain.Profile, error) {
	s.calls = append(s.calls, "role:"+userID+":"+role)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Profile{ID: userID, Role: role}, nil
}

func (s *stubAccountService) DeleteUser(_ context.Context, userID string) error {
	s.calls = append(s.calls, "delete:"+userID)
	return s.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleResult() *domain.AuthResult {
	now := time.Now().UTC()
	return &domain.AuthResult{
		TokenPair: domain.TokenPair{
			AccessToken:      "access-1",
			RefreshToken:     "refresh-1",
			AccessExpiresAt:  now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		},
		User: domain.Profile{ID: "u1", Email: "alice@example.com", FirstName: "Alice", Role: domain.RoleUser},
	}
}
