// Package model defines domain entities used by services and storage backends.
package model

import (
	"fmt"
	"time"

	"github.com/DavidBGG/YaballeBlog/internal/errs"
)

// Role is the privilege level recorded on a user account.
type Role string

const (
	// RoleUser is the default role for registered accounts.
	RoleUser Role = "user"
	// RoleModerator grants blanket ownership override and listing privileges.
	RoleModerator Role = "moderator"
)

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool { return r == RoleUser || r == RoleModerator }

// User is an account record as stored on disk. PasswordHash holds a
// fixed-length hex digest, never the plaintext.
type User struct {
	ID           int64  `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role,omitempty"`
}

// EffectiveRole returns the account role, defaulting to RoleUser for records
// persisted before roles existed.
func (u User) EffectiveRole() Role {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// Public strips credential material for listing responses.
func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID, Username: u.Username, Role: u.EffectiveRole()}
}

// Validate checks structural shape of a user record.
func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user_id must be a positive integer", errs.ErrInvalidInput)
	}
	if u.Username == "" {
		return fmt.Errorf("%w: username is required", errs.ErrInvalidInput)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("%w: password_hash is required", errs.ErrInvalidInput)
	}
	if !u.EffectiveRole().Valid() {
		return fmt.Errorf("%w: unknown role %q", errs.ErrInvalidInput, u.Role)
	}
	return nil
}

// UserPublic is the externally visible subset of a user record.
type UserPublic struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Comment is a single post comment. Comments are append-only and keep
// insertion order.
type Comment struct {
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks structural shape of a comment.
func (c Comment) Validate() error {
	if c.UserID <= 0 {
		return fmt.Errorf("%w: user_id must be a positive integer", errs.ErrInvalidInput)
	}
	if c.Content == "" {
		return fmt.Errorf("%w: content is required", errs.ErrInvalidInput)
	}
	return nil
}

// Post is a published text post. AuthorID is set from the authenticated
// actor at creation time and never changes afterwards, moderator edits
// included. PublicationDate is UTC and immutable.
type Post struct {
	ID              int64     `json:"post_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	AuthorID        int64     `json:"author_id"`
	PublicationDate time.Time `json:"publication_date"`
	Upvotes         int64     `json:"upvotes"`
	Downvotes       int64     `json:"downvotes"`
	Comments        []Comment `json:"comments"`
}

// Validate checks structural shape of a post. AuthorID must already carry the
// authenticated actor's id; client-supplied author values never reach here.
func (p Post) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrInvalidInput)
	}
	if p.Content == "" {
		return fmt.Errorf("%w: content is required", errs.ErrInvalidInput)
	}
	if p.AuthorID <= 0 {
		return fmt.Errorf("%w: author_id must be a positive integer", errs.ErrInvalidInput)
	}
	if p.Upvotes < 0 || p.Downvotes < 0 {
		return fmt.Errorf("%w: vote counters must be non-negative", errs.ErrInvalidInput)
	}
	return nil
}
