// Package jsonfile persists each collection as a JSON array in its own file.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/DavidBGG/YaballeBlog/internal/model"
)

const (
	usersFile = "users.json"
	postsFile = "posts.json"
)

// Store keeps users.json and posts.json under a data directory. One mutex per
// collection is held across the whole load-mutate-save cycle, so operations
// on Users never block operations on Posts.
type Store struct {
	dir string

	usersMu sync.Mutex
	postsMu sync.Mutex
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// readFile unmarshals the file into out. A missing or unparsable file leaves
// out untouched: a fresh deployment starts from empty collections rather than
// failing.
func (s *Store) readFile(name string, out any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		// Corrupt backing storage reads as empty; the next save replaces it.
		return nil
	}
	return nil
}

// writeFile replaces the file contents wholesale. The payload is written to a
// temp file and renamed into place so a crash mid-write never corrupts the
// stored collection.
func (s *Store) writeFile(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// LoadUsers returns a snapshot of the Users collection.
func (s *Store) LoadUsers(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users := []model.User{}
	if err := s.readFile(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// MutateUsers runs fn inside the Users exclusive section and persists its
// result wholesale.
func (s *Store) MutateUsers(ctx context.Context, fn func(users []model.User) ([]model.User, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users := []model.User{}
	if err := s.readFile(usersFile, &users); err != nil {
		return err
	}
	updated, err := fn(users)
	if err != nil {
		return err
	}
	return s.writeFile(usersFile, updated)
}

// LoadPosts returns a snapshot of the Posts collection.
func (s *Store) LoadPosts(ctx context.Context) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts := []model.Post{}
	if err := s.readFile(postsFile, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// MutatePosts runs fn inside the Posts exclusive section and persists its
// result wholesale.
func (s *Store) MutatePosts(ctx context.Context, fn func(posts []model.Post) ([]model.Post, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts := []model.Post{}
	if err := s.readFile(postsFile, &posts); err != nil {
		return err
	}
	updated, err := fn(posts)
	if err != nil {
		return err
	}
	return s.writeFile(postsFile, updated)
}
