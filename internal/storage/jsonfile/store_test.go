package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DavidBGG/YaballeBlog/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLoad_MissingFilesAreEmpty(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	users, err := s.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	posts, err := s.LoadPosts(ctx)
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte("{not json"), 0o644))

	users, err := s.LoadUsers(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestMutate_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	err = s.MutateUsers(ctx, func(users []model.User) ([]model.User, error) {
		return append(users, model.User{ID: 1, Username: "alice", PasswordHash: "h", Role: model.RoleUser}), nil
	})
	require.NoError(t, err)

	// Reopen the same directory, simulating a restart.
	s2, err := New(dir)
	require.NoError(t, err)
	users, err := s2.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].Username)
}

func TestMutate_ErrorAbortsWithoutPersisting(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		return append(posts, model.Post{ID: 1, Title: "T", Content: "C", AuthorID: 1}), nil
	}))

	boom := os.ErrPermission
	err := s.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	posts, err := s.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
}

func TestMutate_ConcurrentIncrementsAreNotLost(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		return []model.Post{{ID: 1, Title: "T", Content: "C", AuthorID: 1}}, nil
	}))

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
				for j := range posts {
					if posts[j].ID == 1 {
						posts[j].Upvotes++
					}
				}
				return posts, nil
			})
			if err != nil {
				t.Errorf("MutatePosts: %v", err)
			}
		}()
	}
	wg.Wait()

	posts, err := s.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.EqualValues(t, n, posts[0].Upvotes)
}

func TestMutate_RoleDefaultsForOldRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Record written before roles existed.
	old := `[{"user_id": 1, "username": "legacy", "password_hash": "h"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(old), 0o644))

	s, err := New(dir)
	require.NoError(t, err)
	users, err := s.LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, model.RoleUser, users[0].EffectiveRole())
}

func TestMutate_ContextCanceled(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.MutateUsers(ctx, func(users []model.User) ([]model.User, error) { return users, nil })
	require.ErrorIs(t, err, context.Canceled)
}
