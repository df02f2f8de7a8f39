package ports

import (
	"context"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	WalletAddress string
}

// SessionService issues, rotates and validates token pairs.
type SessionService interface {
	Issue(ctx context.Context, user *domain.User) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	Validate(ctx context.Context, payload domain.TokenPayload) (*domain.User, error)
}
