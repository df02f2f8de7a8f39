package domain

import "errors"

// Session errors.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserExists            = errors.New("user already exists")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrPersistence           = errors.New("persistence failure")
	ErrTooManyAttempts       = errors.New("too many login attempts")
)

// Token codec errors. Callers above the codec collapse both into a single
// undifferentiated error.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Account errors.
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrIncorrectPassword        = errors.New("current password is incorrect")
	ErrInvalidResetToken        = errors.New("invalid or expired reset token")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrVerificationExpired      = errors.New("verification token has expired")
	ErrEmailAlreadyVerified     = errors.New("email is already verified")
	ErrForbidden                = errors.New("access forbidden")
	ErrWalletInUse              = errors.New("wallet address is already linked to another account")
	ErrInvalidRole              = errors.New("invalid role")
)
