package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
	"github.com/fundhive/identity-api/internal/pkg/metrics"
)

// SessionService issues access/refresh token pairs and rotates them. Each
// user has at most one refresh token hash stored at any time; presenting a
// refresh token that does not match it terminates the session.
type SessionService struct {
	store     ports.CredentialStore
	codec     ports.TokenCodec
	passwords ports.Hasher
	tokens    ports.Hasher
	limiter   ports.AttemptLimiter
	log       zerolog.Logger
	now       func() time.Time
}

// NewSessionService wires the session manager. passwords hashes user
// passwords; tokens hashes refresh tokens. Pass ports.NopLimiter{} to
// disable login throttling.
func NewSessionService(
	store ports.CredentialStore,
	codec ports.TokenCodec,
	passwords ports.Hasher,
	tokens ports.Hasher,
	limiter ports.AttemptLimiter,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		store:     store,
		codec:     codec,
		passwords: passwords,
		tokens:    tokens,
		limiter:   limiter,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a new pair for an already authenticated user and stores the
// hash of its refresh token, replacing whatever session existed before.
func (s *SessionService) Issue(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	pair, hash, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("issue tokens: %w: %w", domain.ErrPersistence, err)
	}
	user.RefreshTokenHash = hash

	return &domain.AuthResult{TokenPair: *pair, User: user.Profile()}, nil
}

// Login verifies the password and issues a fresh pair. Unknown emails and
// wrong passwords fail identically.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("login limiter unavailable, allowing attempt")
	} else if !allowed {
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.loginFailed(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w: %w", domain.ErrPersistence, err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to reset login attempts")
	}

	res, err := s.Issue(ctx, user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return res, nil
}

// Register creates an unverified user with the default role and opens its
// first session.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		metrics.RegistrationsTotal.WithLabelValues("exists").Inc()
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:            uuid.NewString(),
		Email:         in.Email,
		PasswordHash:  hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		WalletAddress: in.WalletAddress,
		Role:          domain.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, user); err != nil {
		// The unique index catches registrations racing past the lookup above.
		if errors.Is(err, domain.ErrUserExists) {
			metrics.RegistrationsTotal.WithLabelValues("exists").Inc()
			return nil, domain.ErrUserExists
		}
		if errors.Is(err, domain.ErrWalletInUse) {
			metrics.RegistrationsTotal.WithLabelValues("exists").Inc()
			return nil, domain.ErrWalletInUse
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}

	res, err := s.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return res, nil
}

// Refresh consumes a refresh token and returns a new pair. Every failure
// surfaces as domain.ErrInvalidOrExpiredToken except persistence errors.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	// 1. Signature, expiry and token class.
	payload, err := s.codec.Verify(refreshToken, domain.RefreshToken)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidOrExpiredToken
	}

	// 2. Owner lookup. A missing user looks exactly like a bad token.
	user, err := s.store.FindByID(ctx, payload.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w: %w", domain.ErrPersistence, err)
	}

	// 3. No session to rotate. Nothing is written.
	if !user.HasSession() {
		metrics.RefreshTotal.WithLabelValues("no_session").Inc()
		return nil, domain.ErrInvalidOrExpiredToken
	}

	// 4. A validly signed token that is not the current one was already
	// rotated away or never issued here: kill the session.
	if !s.tokens.Verify(refreshToken, user.RefreshTokenHash) {
		return nil, s.revoke(ctx, user)
	}

	// 5. Rotate. The swap only lands if the hash we matched is still stored.
	pair, hash, err := s.mint(user)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	swapped, err := s.store.SwapRefreshTokenHash(ctx, user.ID, user.RefreshTokenHash, hash)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w: %w", domain.ErrPersistence, err)
	}
	if !swapped {
		metrics.RefreshTotal.WithLabelValues("race_lost").Inc()
		s.log.Debug().Str("user_id", user.ID).Msg("concurrent refresh already rotated the token")
		return nil, domain.ErrInvalidOrExpiredToken
	}
	user.RefreshTokenHash = hash

	metrics.RefreshTotal.WithLabelValues("rotated").Inc()
	s.log.Debug().Str("user_id", user.ID).Msg("refresh token rotated")

	return &domain.AuthResult{TokenPair: *pair, User: user.Profile()}, nil
}

// Validate resolves the user behind an access token payload that the codec
// has already verified.
func (s *SessionService) Validate(ctx context.Context, payload domain.TokenPayload) (*domain.User, error) {
	if payload.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.store.FindByID(ctx, payload.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("validate: %w: %w", domain.ErrPersistence, err)
	}
	return user, nil
}

// mint signs both tokens and hashes the refresh token. Nothing is persisted.
func (s *SessionService) mint(user *domain.User) (*domain.TokenPair, string, error) {
	payload := domain.PayloadFor(user)

	access, accessExp, err := s.codec.Sign(payload, domain.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.codec.Sign(payload, domain.RefreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("sign refresh token: %w", err)
	}
	hash, err := s.tokens.Hash(refresh)
	if err != nil {
		return nil, "", fmt.Errorf("hash refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, hash, nil
}

// revoke clears the stored hash after a replayed token. If the clearing write
// fails the old session may still be alive, so the persistence error wins.
func (s *SessionService) revoke(ctx context.Context, user *domain.User) error {
	metrics.RefreshTotal.WithLabelValues("reuse_detected").Inc()
	metrics.RefreshReuseDetectedTotal.Inc()
	s.log.Warn().
		Str("user_id", user.ID).
		Msg("refresh token reuse detected, revoking session")

	if err := s.store.SetRefreshTokenHash(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("revoke session: %w: %w", domain.ErrPersistence, err)
	}
	user.RefreshTokenHash = ""
	return domain.ErrInvalidOrExpiredToken
}

func (s *SessionService) loginFailed(ctx context.Context, email string) {
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to record login attempt")
	}
}
