package ports

import (
	"context"
	"time"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// UserFilter narrows an admin listing. Zero values do not filter.
type UserFilter struct {
	Role string
	// CreatedFrom and CreatedTo bound created_at as [from, to).
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Offset      int
}

// CredentialStore persists one record per user.
//
// Lookups return domain.ErrUserNotFound when nothing matches, including for
// soft-deleted users. Create returns domain.ErrUserExists when the email is
// taken and domain.ErrWalletInUse when the wallet address is.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetSelector(ctx context.Context, selector string) (*domain.User, error)
	FindByVerificationSelector(ctx context.Context, selector string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	Create(ctx context.Context, user *domain.User) error

	// Save writes the account fields of user. It never touches the refresh
	// token hash: only the two methods below do.
	Save(ctx context.Context, user *domain.User) error

	// SoftDelete stamps the user as deleted and clears its session.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// SetRefreshTokenHash overwrites the stored refresh token hash. An empty
	// hash clears it.
	SetRefreshTokenHash(ctx context.Context, id, hash string) error

	// SwapRefreshTokenHash writes next only if the stored hash still equals
	// expected, and reports whether the write happened.
	SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error)
}
