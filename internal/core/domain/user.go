package domain

import "time"

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleCreator = "creator"
	RoleDonor   = "donor"
)

// User models a registered principal and everything the auth flows persist
// against it. Secret material never leaves the process through JSON.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PasswordHash  string `json:"-"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Role          string `json:"role"`

	IsEmailVerified       bool      `json:"is_email_verified"`
	VerificationSelector  string    `json:"-"`
	VerificationHash      string    `json:"-"`
	VerificationExpiresAt time.Time `json:"-"`

	ResetSelector  string    `json:"-"`
	ResetHash      string    `json:"-"`
	ResetExpiresAt time.Time `json:"-"`

	// RefreshTokenHash is the digest of the single refresh token currently
	// accepted for this user. Empty means no active session.
	RefreshTokenHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt marks a soft-deleted account. Stores hide such users from
	// every lookup.
	DeletedAt time.Time `json:"-"`
}

// Profile is the sanitized view of a User returned to clients.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	WalletAddress   string    `json:"wallet_address,omitempty"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		WalletAddress:   u.WalletAddress,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

// HasSession reports whether a refresh token is currently outstanding.
func (u *User) HasSession() bool {
	return u.RefreshTokenHash != ""
}

// ValidRole reports whether role is one of the known capability tags.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleCreator, RoleDonor:
		return true
	}
	return false
}
