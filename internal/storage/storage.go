// Package storage defines the durable collection store contract implemented
// by concrete backends.
//
// Users and Posts are independent collections, each persisted and replaced as
// a unit. A backend serializes access per collection: reads and mutations of
// the same collection never overlap, while the two collections never block
// each other. Mutate runs the caller's whole read-modify-write cycle inside
// the collection's exclusive section, which is what makes increment-style
// operations (vote counters, id assignment, uniqueness checks) race-free.
package storage

import (
	"context"

	"github.com/DavidBGG/YaballeBlog/internal/model"
)

// UserStore provides serialized access to the Users collection.
type UserStore interface {
	// LoadUsers returns a snapshot of the collection. Missing or unreadable
	// backing storage yields an empty slice, not an error.
	LoadUsers(ctx context.Context) ([]model.User, error)
	// MutateUsers loads the collection, applies fn, and persists the returned
	// slice wholesale, all inside the collection's exclusive section. An error
	// from fn aborts the cycle without persisting anything.
	MutateUsers(ctx context.Context, fn func(users []model.User) ([]model.User, error)) error
}

// PostStore provides serialized access to the Posts collection.
type PostStore interface {
	// LoadPosts returns a snapshot of the collection, empty when the backing
	// storage is missing or unreadable.
	LoadPosts(ctx context.Context) ([]model.Post, error)
	// MutatePosts runs the whole read-modify-write cycle for the Posts
	// collection inside its exclusive section.
	MutatePosts(ctx context.Context, fn func(posts []model.Post) ([]model.Post, error)) error
}

// Store combines both collections behind one backend.
type Store interface {
	UserStore
	PostStore
}
