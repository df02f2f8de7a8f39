package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fundhive/identity-api/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// JWTConfig holds one secret and lifetime per token class. The secrets must
// differ so a leaked access secret cannot forge refresh tokens.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTCodec signs and verifies HS256 tokens.
type JWTCodec struct {
	keys map[domain.TokenKind][]byte
	ttls map[domain.TokenKind]time.Duration
	now  func() time.Time
}

type tokenClaims struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	WalletAddress string `json:"walletAddress,omitempty"`
	TokenType     string `json:"typ"`
	jwt.RegisteredClaims
}

func NewJWTCodec(cfg JWTConfig) *JWTCodec {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &JWTCodec{
		keys: map[domain.TokenKind][]byte{
			domain.AccessToken:  []byte(cfg.AccessSecret),
			domain.RefreshToken: []byte(cfg.RefreshSecret),
		},
		ttls: map[domain.TokenKind]time.Duration{
			domain.AccessToken:  cfg.AccessTTL,
			domain.RefreshToken: cfg.RefreshTTL,
		},
		now: time.Now,
	}
}

// Sign issues a token of the given kind. Every token carries a random jti,
// so two tokens for the same payload never collide.
func (c *JWTCodec) Sign(p domain.TokenPayload, kind domain.TokenKind) (string, time.Time, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("sign: unknown token kind %q", kind)
	}

	now := c.now()
	exp := now.Add(c.ttls[kind])
	claims := tokenClaims{
		Email:         p.Email,
		Role:          p.Role,
		WalletAddress: p.WalletAddress,
		TokenType:     string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp.UTC(), nil
}

// Verify checks signature, expiry and token class.
func (c *JWTCodec) Verify(token string, kind domain.TokenKind) (domain.TokenPayload, error) {
	key, ok := c.keys[kind]
	if !ok {
		return domain.TokenPayload{}, domain.ErrTokenInvalid
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenPayload{}, domain.ErrTokenExpired
		}
		return domain.TokenPayload{}, domain.ErrTokenInvalid
	}
	if !parsed.Valid || claims.TokenType != string(kind) || claims.Subject == "" {
		return domain.TokenPayload{}, domain.ErrTokenInvalid
	}

	return domain.TokenPayload{
		Subject:       claims.Subject,
		Email:         claims.Email,
		Role:          claims.Role,
		WalletAddress: claims.WalletAddress,
	}, nil
}
