package ports

// Hasher produces one-way digests and compares plaintexts against them in
// constant time.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
