package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	pkgcrypto "github.com/DavidBGG/YaballeBlog/internal/crypto"
	"github.com/DavidBGG/YaballeBlog/internal/errs"
	"github.com/DavidBGG/YaballeBlog/internal/model"
	"github.com/DavidBGG/YaballeBlog/internal/storage"
	"github.com/DavidBGG/YaballeBlog/internal/token"
)

// memStore is an in-memory storage.Store holding each collection's
// read-modify-write cycle under its own mutex, like the real backends.
type memStore struct {
	usersMu sync.Mutex
	users   []model.User

	postsMu sync.Mutex
	posts   []model.Post

	usersErr error
	postsErr error
}

var _ storage.Store = (*memStore)(nil)

func (m *memStore) LoadUsers(context.Context) ([]model.User, error) {
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	return append([]model.User(nil), m.users...), nil
}

func (m *memStore) MutateUsers(_ context.Context, fn func([]model.User) ([]model.User, error)) error {
	if m.usersErr != nil {
		return m.usersErr
	}
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	updated, err := fn(append([]model.User(nil), m.users...))
	if err != nil {
		return err
	}
	m.users = updated
	return nil
}

func (m *memStore) LoadPosts(context.Context) ([]model.Post, error) {
	if m.postsErr != nil {
		return nil, m.postsErr
	}
	m.postsMu.Lock()
	defer m.postsMu.Unlock()
	return append([]model.Post(nil), m.posts...), nil
}

func (m *memStore) MutatePosts(_ context.Context, fn func([]model.Post) ([]model.Post, error)) error {
	if m.postsErr != nil {
		return m.postsErr
	}
	m.postsMu.Lock()
	defer m.postsMu.Unlock()
	updated, err := fn(append([]model.Post(nil), m.posts...))
	if err != nil {
		return err
	}
	m.posts = updated
	return nil
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewAuthService(store, token.NewRegistry())
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "", "", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty username/password, got %v", err)
	}

	u, err := s.Register(ctx, "alice", "pw1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("first user_id = %d, want 1", u.ID)
	}
	if u.Role != model.RoleUser {
		t.Fatalf("role = %q, want default user", u.Role)
	}

	if store.users[0].PasswordHash == "pw1" || store.users[0].PasswordHash == "" {
		t.Fatalf("plaintext or empty password stored")
	}
}

func TestAuth_Register_DuplicateUsername(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewAuthService(store, token.NewRegistry())
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "pw1", "", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := s.Register(ctx, "alice", "other", "", ""); !errors.Is(err, errs.ErrDuplicateUsername) {
		t.Fatalf("want ErrDuplicateUsername, got %v", err)
	}
	// Case-sensitive exact match: a different casing is a different name.
	if _, err := s.Register(ctx, "Alice", "pw", "", ""); err != nil {
		t.Fatalf("differently cased username rejected: %v", err)
	}
}

func TestAuth_Register_ConcurrentSameUsername(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewAuthService(store, token.NewRegistry())
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register(ctx, "race", "pw", "", "")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var ok, dup int
	for err := range errCh {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrDuplicateUsername):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("ok=%d dup=%d, want exactly one success", ok, dup)
	}
	if len(store.users) != 1 {
		t.Fatalf("stored %d users with the same username", len(store.users))
	}
}

func TestAuth_Register_IDsIncreaseMonotonically(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewAuthService(store, token.NewRegistry())
	ctx := context.Background()

	var last int64
	for _, name := range []string{"a", "b", "c", "d"} {
		u, err := s.Register(ctx, name, "pw", "", "")
		if err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
		if u.ID <= last {
			t.Fatalf("id %d not greater than previous %d", u.ID, last)
		}
		last = u.ID
	}
}

func TestAuth_Register_ModeratorRequiresModeratorToken(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	reg := token.NewRegistry()
	s := NewAuthService(store, reg)
	ctx := context.Background()

	if _, err := s.Register(ctx, "m1", "pw", model.RoleModerator, ""); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("no token: want ErrForbidden, got %v", err)
	}

	userTok, err := reg.Issue(1, model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Register(ctx, "m1", "pw", model.RoleModerator, userTok); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("user token: want ErrForbidden, got %v", err)
	}

	modTok, err := reg.Issue(2, model.RoleModerator)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	u, err := s.Register(ctx, "m1", "pw", model.RoleModerator, modTok)
	if err != nil {
		t.Fatalf("moderator token: %v", err)
	}
	if u.Role != model.RoleModerator {
		t.Fatalf("role = %q, want moderator", u.Role)
	}

	// The new account logs in with moderator privileges.
	tok, err := s.Login(ctx, "m1", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, ok := reg.Validate(tok)
	if !ok || id.Role != model.RoleModerator {
		t.Fatalf("new moderator session = %+v", id)
	}
}

func TestAuth_Register_UnknownRole(t *testing.T) {
	t.Parallel()

	s := NewAuthService(&memStore{}, token.NewRegistry())
	if _, err := s.Register(context.Background(), "x", "pw", "admin", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	reg := token.NewRegistry()
	s := NewAuthService(store, reg)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1", "", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tok, err := s.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, ok := reg.Validate(tok)
	if !ok {
		t.Fatalf("issued token does not validate")
	}
	if id.UserID != u.ID || id.Role != model.RoleUser {
		t.Fatalf("identity = %+v, want user %d", id, u.ID)
	}

	// Wrong password and unknown username fail identically.
	_, errWrong := s.Login(ctx, "alice", "nope")
	_, errUnknown := s.Login(ctx, "nobody", "pw1")
	if !errors.Is(errWrong, errs.ErrInvalidCredentials) || !errors.Is(errUnknown, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for both, got %v / %v", errWrong, errUnknown)
	}
}

func TestAuth_Login_RoleDefaultsForLegacyRecords(t *testing.T) {
	t.Parallel()

	// Record persisted before roles existed: no role field.
	store := &memStore{users: []model.User{{
		ID:           1,
		Username:     "legacy",
		PasswordHash: "x",
	}}}
	reg := token.NewRegistry()
	s := NewAuthService(store, reg)

	// Seed the digest directly; legacy records never went through Register.
	store.users[0].PasswordHash = pkgcrypto.HashPassword("legacy", "pw")

	tok, err := s.Login(context.Background(), "legacy", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, _ := reg.Validate(tok)
	if id.Role != model.RoleUser {
		t.Fatalf("legacy session role = %q, want user", id.Role)
	}
}

func TestAuth_ListUsers(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	reg := token.NewRegistry()
	s := NewAuthService(store, reg)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "pw", "", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := s.ListUsers(ctx, ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("no token: want ErrUnauthorized, got %v", err)
	}

	userTok, _ := reg.Issue(1, model.RoleUser)
	if _, err := s.ListUsers(ctx, userTok); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("user token: want ErrForbidden, got %v", err)
	}

	modTok, _ := reg.Issue(2, model.RoleModerator)
	users, err := s.ListUsers(ctx, modTok)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("users = %+v", users)
	}
}
