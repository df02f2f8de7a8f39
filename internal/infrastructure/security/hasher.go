package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords and short random secrets. Inputs longer
// than 72 bytes are rejected by bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// DigestHasher stores refresh tokens as hex SHA-256. Signed tokens are long
// and high entropy, so a salted slow hash adds nothing and bcrypt would
// truncate them.
type DigestHasher struct{}

func NewDigestHasher() DigestHasher {
	return DigestHasher{}
}

func (DigestHasher) Hash(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

func (h DigestHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	got, _ := h.Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(got), []byte(digest)) == 1
}
