// Package service contains the mutation operations composing storage, the
// token registry, and the authorization policy. Every operation runs
// authenticate, load, locate, authorize, validate, mutate, persist in that
// order; authorization is always checked before any storage mutation.
package service

import (
	"context"
	"fmt"

	pkgcrypto "github.com/DavidBGG/YaballeBlog/internal/crypto"
	"github.com/DavidBGG/YaballeBlog/internal/errs"
	"github.com/DavidBGG/YaballeBlog/internal/model"
	"github.com/DavidBGG/YaballeBlog/internal/policy"
	"github.com/DavidBGG/YaballeBlog/internal/storage"
	"github.com/DavidBGG/YaballeBlog/internal/token"
)

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new account. Creating a moderator account requires
	// callerToken to carry a valid moderator identity; creating a plain user
	// requires no token.
	Register(ctx context.Context, username, password string, role model.Role, callerToken string) (model.UserPublic, error)
	// Login verifies credentials and issues a bearer token.
	Login(ctx context.Context, username, password string) (string, error)
	// ListUsers returns all accounts without credential material (moderator only).
	ListUsers(ctx context.Context, callerToken string) ([]model.UserPublic, error)
}

type AuthServiceImpl struct {
	users    storage.UserStore
	registry *token.Registry
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users storage.UserStore, registry *token.Registry) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, registry: registry}
}

// authenticate resolves a bearer token to the identity snapshot recorded at
// login.
func authenticate(registry *token.Registry, tok string) (token.Identity, error) {
	id, ok := registry.Validate(tok)
	if !ok {
		return token.Identity{}, errs.ErrUnauthorized
	}
	return id, nil
}

// nextUserID assigns ids monotonically as max(existing)+1, starting at 1.
// Callers must already hold the Users exclusive section.
func nextUserID(users []model.User) int64 {
	var max int64
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

// Register creates a new account with a unique username.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string, role model.Role, callerToken string) (model.UserPublic, error) {
	if username == "" || password == "" {
		return model.UserPublic{}, fmt.Errorf("%w: username and password are required", errs.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return model.UserPublic{}, fmt.Errorf("%w: unknown role %q", errs.ErrInvalidInput, role)
	}

	var actor *token.Identity
	if id, ok := s.registry.Validate(callerToken); ok {
		actor = &id
	}
	if !policy.CanCreateRole(role, actor) {
		return model.UserPublic{}, fmt.Errorf("%w: only moderators can create moderator accounts", errs.ErrForbidden)
	}

	var created model.User
	err := s.users.MutateUsers(ctx, func(users []model.User) ([]model.User, error) {
		// Uniqueness check and id assignment both run inside the Users
		// exclusive section, so concurrent registrations cannot collide.
		for _, u := range users {
			if u.Username == username {
				return nil, errs.ErrDuplicateUsername
			}
		}
		created = model.User{
			ID:           nextUserID(users),
			Username:     username,
			PasswordHash: pkgcrypto.HashPassword(username, password),
			Role:         role,
		}
		if err := created.Validate(); err != nil {
			return nil, err
		}
		return append(users, created), nil
	})
	if err != nil {
		return model.UserPublic{}, err
	}
	return created.Public(), nil
}

// Login compares the digest of the supplied password against the stored
// digest and issues a token carrying the account's current role. Unknown
// username and wrong password produce the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var found *model.User
	for i := range users {
		if users[i].Username == username {
			found = &users[i]
			break
		}
	}
	if found == nil || !pkgcrypto.VerifyPassword(username, password, found.PasswordHash) {
		return "", errs.ErrInvalidCredentials
	}

	tok, err := s.registry.Issue(found.ID, found.EffectiveRole())
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return tok, nil
}

// ListUsers returns the public view of every account.
func (s *AuthServiceImpl) ListUsers(ctx context.Context, callerToken string) ([]model.UserPublic, error) {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return nil, err
	}
	if !policy.IsModerator(actor) {
		return nil, fmt.Errorf("%w: moderator access required", errs.ErrForbidden)
	}

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	public := make([]model.UserPublic, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}
