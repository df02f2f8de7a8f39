package ports

import (
	"time"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// TokenCodec signs and verifies compact tokens. Each domain.TokenKind uses
// its own secret and lifetime.
type TokenCodec interface {
	Sign(payload domain.TokenPayload, kind domain.TokenKind) (token string, expiresAt time.Time, err error)
	// Verify returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	Verify(token string, kind domain.TokenKind) (domain.TokenPayload, error)
}
