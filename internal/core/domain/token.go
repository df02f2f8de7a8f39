package domain

import "time"

// TokenKind distinguishes the two token classes. Each class is signed with
// its own secret and lifetime.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenPayload is embedded identically in access and refresh tokens.
type TokenPayload struct {
	Subject       string
	Email         string
	Role          string
	WalletAddress string
}

// PayloadFor builds the token payload for u.
func PayloadFor(u *User) TokenPayload {
	return TokenPayload{
		Subject:       u.ID,
		Email:         u.Email,
		Role:          u.Role,
		WalletAddress: u.WalletAddress,
	}
}

// TokenPair is handed to the caller and never persisted as a unit.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthResult is the outcome of a successful login, registration or refresh.
type AuthResult struct {
	TokenPair
	User Profile `json:"user"`
}
