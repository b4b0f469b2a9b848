// Package crypto implements password digests and token entropy.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns a deterministic fixed-length hex digest of the
// password. Stored user records carry a single digest field and no salt
// column, so the Argon2id salt is derived from the username: the same
// (username, password) pair always yields the same digest, while identical
// passwords still hash differently across accounts.
func HashPassword(username, password string) string {
	salt := sha256.Sum256([]byte(username))
	key := argon2.IDKey([]byte(password), salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}

// VerifyPassword compares the digest of the supplied password against the
// stored digest in constant time.
func VerifyPassword(username, password, storedDigest string) bool {
	got := HashPassword(username, password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedDigest)) == 1
}
