package ports

import (
	"context"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// ProfileUpdate carries the self-service profile fields. Nil leaves a field
// unchanged; an empty WalletAddress unlinks the wallet.
type ProfileUpdate struct {
	FirstName     *string
	LastName      *string
	WalletAddress *string
}

// UserPage is one page of an admin user listing.
type UserPage struct {
	Users  []domain.Profile `json:"data"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// AccountService covers the credential lifecycle around a session (email
// verification, password change or reset, profile edits) and the admin
// user management operations.
type AccountService interface {
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*domain.Profile, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RequestVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error

	ListUsers(ctx context.Context, filter UserFilter) (*UserPage, error)
	UpdateRole(ctx context.Context, userID, role string) (*domain.Profile, error)
	DeleteUser(ctx context.Context, userID string) error
}
