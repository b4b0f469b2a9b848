// Package token implements the in-process bearer token registry.
//
// Tokens are opaque 128-bit random strings mapped to the identity snapshot
// taken at login. The registry lives for the process lifetime only: a restart
// invalidates every session. There is no expiry and no revocation.
package token

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/DavidBGG/YaballeBlog/internal/crypto"
	"github.com/DavidBGG/YaballeBlog/internal/model"
)

// Identity is the (user, role) snapshot recorded at issuance. The role is not
// refreshed if the account's role changes later.
type Identity struct {
	UserID int64
	Role   model.Role
}

// Registry maps opaque tokens to identities. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]Identity)}
}

// Issue generates an unpredictable opaque token and records the identity
// snapshot under it.
func (r *Registry) Issue(userID int64, role model.Role) (string, error) {
	b, err := crypto.RandBytes(16)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	tok := hex.EncodeToString(b)

	r.mu.Lock()
	r.tokens[tok] = Identity{UserID: userID, Role: role}
	r.mu.Unlock()
	return tok, nil
}

// Validate returns the identity recorded for the token, or false for an
// unknown or empty token.
func (r *Registry) Validate(tok string) (Identity, bool) {
	if tok == "" {
		return Identity{}, false
	}
	r.mu.RLock()
	id, ok := r.tokens[tok]
	r.mu.RUnlock()
	return id, ok
}
