package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

const (
	resetTokenTTL        = time.Hour
	verificationTokenTTL = 24 * time.Hour

	selectorBytes  = 16
	validatorBytes = 32

	defaultPageSize = 10
	maxPageSize     = 100
)

// AccountService implements email verification, password change/reset,
// profile edits and admin user management. Both password flows terminate the
// user's session.
type AccountService struct {
	store     ports.CredentialStore
	passwords ports.Hasher
	notifier  ports.Notifier
	cooldown  ports.Cooldown
	log       zerolog.Logger
	now       func() time.Time
}

func NewAccountService(
	store ports.CredentialStore,
	passwords ports.Hasher,
	notifier ports.Notifier,
	cooldown ports.Cooldown,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		store:     store,
		passwords: passwords,
		notifier:  notifier,
		cooldown:  cooldown,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// ChangePassword replaces the password after checking the current one and
// clears the refresh token hash.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if !s.passwords.Verify(currentPassword, user.PasswordHash) {
		return domain.ErrIncorrectPassword
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}

	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("change password: %w: %w", domain.ErrPersistence, err)
	}
	if err := s.endSession(ctx, user); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed, session revoked")
	s.notify(ctx, domain.Notification{Kind: domain.NotifyPasswordChanged, To: user.Email, FirstName: user.FirstName})
	return nil
}

// ForgotPassword starts a reset for email. It reports success whether or
// not the account exists.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("forgot password: %w: %w", domain.ErrPersistence, err)
	}

	if !s.acquire(ctx, "reset:"+email) {
		return nil
	}

	selector, validator, hash, err := s.newSplitToken()
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	user.ResetSelector = selector
	user.ResetHash = hash
	user.ResetExpiresAt = s.now().Add(resetTokenTTL)
	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("forgot password: %w: %w", domain.ErrPersistence, err)
	}

	s.notify(ctx, domain.Notification{
		Kind:      domain.NotifyPasswordReset,
		To:        user.Email,
		FirstName: user.FirstName,
		Token:     selector + "." + validator,
	})
	return nil
}

// ResetPassword consumes a "selector.validator" reset token. All rejection
// reasons collapse into domain.ErrInvalidResetToken.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	selector, validator, ok := splitToken(token)
	if !ok {
		return domain.ErrInvalidResetToken
	}

	user, err := s.store.FindByResetSelector(ctx, selector)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w: %w", domain.ErrPersistence, err)
	}

	if user.ResetHash == "" || user.ResetExpiresAt.IsZero() || s.now().After(user.ResetExpiresAt) {
		return domain.ErrInvalidResetToken
	}
	if !s.passwords.Verify(validator, user.ResetHash) {
		return domain.ErrInvalidResetToken
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: hash: %w", err)
	}

	user.PasswordHash = hash
	user.ResetSelector = ""
	user.ResetHash = ""
	user.ResetExpiresAt = time.Time{}
	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w: %w", domain.ErrPersistence, err)
	}
	if err := s.endSession(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset, session revoked")
	s.notify(ctx, domain.Notification{Kind: domain.NotifyPasswordChanged, To: user.Email, FirstName: user.FirstName})
	return nil
}

// RequestVerification issues a new email verification token. Repeated
// requests inside the cooldown are accepted silently.
func (s *AccountService) RequestVerification(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("request verification: %w: %w", domain.ErrPersistence, err)
	}
	if user.IsEmailVerified {
		return domain.ErrEmailAlreadyVerified
	}

	if !s.acquire(ctx, "verify:"+email) {
		return nil
	}

	selector, validator, hash, err := s.newSplitToken()
	if err != nil {
		return fmt.Errorf("request verification: %w", err)
	}

	user.VerificationSelector = selector
	user.VerificationHash = hash
	user.VerificationExpiresAt = s.now().Add(verificationTokenTTL)
	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("request verification: %w: %w", domain.ErrPersistence, err)
	}

	s.notify(ctx, domain.Notification{
		Kind:      domain.NotifyVerification,
		To:        user.Email,
		FirstName: user.FirstName,
		Token:     selector + "." + validator,
	})
	return nil
}

// VerifyEmail consumes a verification token and marks the email verified.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	selector, validator, ok := splitToken(token)
	if !ok {
		return domain.ErrInvalidVerificationToken
	}

	user, err := s.store.FindByVerificationSelector(ctx, selector)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidVerificationToken
	}
	if err != nil {
		return fmt.Errorf("verify email: %w: %w", domain.ErrPersistence, err)
	}

	if user.VerificationHash == "" || !s.passwords.Verify(validator, user.VerificationHash) {
		return domain.ErrInvalidVerificationToken
	}
	if !user.VerificationExpiresAt.IsZero() && s.now().After(user.VerificationExpiresAt) {
		return domain.ErrVerificationExpired
	}

	user.IsEmailVerified = true
	user.VerificationSelector = ""
	user.VerificationHash = ""
	user.VerificationExpiresAt = time.Time{}
	user.UpdatedAt = s.now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("verify email: %w: %w", domain.ErrPersistence, err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ports.ProfileUpdate) (*domain.Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.WalletAddress != nil {
		user.WalletAddress = *in.WalletAddress
	}
	user.UpdatedAt = s.now()

	if err := s.store.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrWalletInUse) {
			return nil, domain.ErrWalletInUse
		}
		return nil, fmt.Errorf("update profile: %w: %w", domain.ErrPersistence, err)
	}

	p := user.Profile()
	return &p, nil
}

// ListUsers returns one page of live users, newest first. Limit defaults to
// 10 and is capped at 100.
func (s *AccountService) ListUsers(ctx context.Context, filter ports.UserFilter) (*ports.UserPage, error) {
	if filter.Role != "" && !domain.ValidRole(filter.Role) {
		return nil, domain.ErrInvalidRole
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	filter.Limit = min(filter.Limit, maxPageSize)
	filter.Offset = max(filter.Offset, 0)

	users, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", domain.ErrPersistence, err)
	}

	page := &ports.UserPage{
		Users:  make([]domain.Profile, 0, len(users)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, u := range users {
		page.Users = append(page.Users, u.Profile())
	}
	return page, nil
}

// UpdateRole changes a user's role. The role takes effect on the user's
// next authenticated request; outstanding tokens are not revoked.
func (s *AccountService) UpdateRole(ctx context.Context, userID, role string) (*domain.Profile, error) {
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Role != role {
		previous := user.Role
		user.Role = role
		user.UpdatedAt = s.now()
		if err := s.store.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("update role: %w: %w", domain.ErrPersistence, err)
		}
		s.log.Info().Str("user_id", user.ID).Str("from", previous).Str("to", role).Msg("role changed")
	}

	p := user.Profile()
	return &p, nil
}

// DeleteUser soft-deletes the account and ends its session. The user can no
// longer log in, refresh or pass authentication.
func (s *AccountService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}

	if err := s.store.SoftDelete(ctx, userID, s.now()); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w: %w", domain.ErrPersistence, err)
	}

	s.log.Info().Str("user_id", userID).Msg("user soft-deleted")
	return nil
}

func (s *AccountService) load(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w: %w", domain.ErrPersistence, err)
	}
	return user, nil
}

// endSession clears the refresh token hash through the store's session
// write, never through Save.
func (s *AccountService) endSession(ctx context.Context, user *domain.User) error {
	if err := s.store.SetRefreshTokenHash(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("end session: %w: %w", domain.ErrPersistence, err)
	}
	user.RefreshTokenHash = ""
	return nil
}

// acquire consults the cooldown and fails open when it is unreachable.
func (s *AccountService) acquire(ctx context.Context, key string) bool {
	ok, err := s.cooldown.Acquire(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cooldown unavailable, proceeding")
		return true
	}
	if !ok {
		s.log.Debug().Str("key", key).Msg("email suppressed by cooldown")
	}
	return ok
}

func (s *AccountService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("kind", string(n.Kind)).Str("to", n.To).Msg("notification not sent")
	}
}

// newSplitToken returns a lookup selector, the secret validator, and the
// validator's hash for storage.
func (s *AccountService) newSplitToken() (selector, validator, hash string, err error) {
	if selector, err = randomHex(selectorBytes); err != nil {
		return "", "", "", err
	}
	if validator, err = randomHex(validatorBytes); err != nil {
		return "", "", "", err
	}
	if hash, err = s.passwords.Hash(validator); err != nil {
		return "", "", "", fmt.Errorf("hash validator: %w", err)
	}
	return selector, validator, hash, nil
}

func splitToken(token string) (selector, validator string, ok bool) {
	selector, validator, ok = strings.Cut(token, ".")
	if !ok || selector == "" || validator == "" || strings.Contains(validator, ".") {
		return "", "", false
	}
	return selector, validator, true
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
