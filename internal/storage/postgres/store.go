package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/DavidBGG/YaballeBlog/internal/model"
)

// Store implements the per-collection contract over two tables. A save
// replaces the table contents wholesale inside one transaction, mirroring the
// file backend's whole-collection semantics, and a mutex per collection keeps
// the full load-mutate-save cycle exclusive the same way.
type Store struct {
	db *DB

	usersMu sync.Mutex
	postsMu sync.Mutex
}

// NewStore constructs a Postgres-backed store.
func NewStore(db *DB) *Store { return &Store{db: db} }

const (
	selectUsers = `SELECT user_id, username, password_hash, role FROM users ORDER BY user_id`
	deleteUsers = `DELETE FROM users`
	insertUser  = `INSERT INTO users (user_id, username, password_hash, role) VALUES ($1, $2, $3, $4)`

	selectPosts = `SELECT post_id, title, content, author_id, publication_date, upvotes, downvotes, comments FROM posts ORDER BY post_id`
	deletePosts = `DELETE FROM posts`
	insertPost  = `INSERT INTO posts (post_id, title, content, author_id, publication_date, upvotes, downvotes, comments) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

func scanUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanPosts(rows pgx.Rows) ([]model.Post, error) {
	defer rows.Close()
	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		var comments []byte
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.PublicationDate, &p.Upvotes, &p.Downvotes, &comments); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if len(comments) > 0 {
			if err := json.Unmarshal(comments, &p.Comments); err != nil {
				return nil, fmt.Errorf("decode comments: %w", err)
			}
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// LoadUsers returns a snapshot of the Users collection.
func (s *Store) LoadUsers(ctx context.Context) ([]model.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	rows, err := s.db.Pool.Query(ctx, selectUsers)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return scanUsers(rows)
}

// MutateUsers runs fn inside the Users exclusive section and replaces the
// table contents with its result in one transaction.
func (s *Store) MutateUsers(ctx context.Context, fn func(users []model.User) ([]model.User, error)) (err error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin users tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	rows, err := tx.Query(ctx, selectUsers)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return err
	}

	updated, err := fn(users)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, deleteUsers); err != nil {
		return fmt.Errorf("replace users: %w", err)
	}
	for _, u := range updated {
		if _, err = tx.Exec(ctx, insertUser, u.ID, u.Username, u.PasswordHash, u.EffectiveRole()); err != nil {
			return fmt.Errorf("save user %d: %w", u.ID, err)
		}
	}
	return nil
}

// LoadPosts returns a snapshot of the Posts collection.
func (s *Store) LoadPosts(ctx context.Context) ([]model.Post, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	rows, err := s.db.Pool.Query(ctx, selectPosts)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	return scanPosts(rows)
}

// MutatePosts runs fn inside the Posts exclusive section and replaces the
// table contents with its result in one transaction.
func (s *Store) MutatePosts(ctx context.Context, fn func(posts []model.Post) ([]model.Post, error)) (err error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin posts tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	rows, err := tx.Query(ctx, selectPosts)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return err
	}

	updated, err := fn(posts)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, deletePosts); err != nil {
		return fmt.Errorf("replace posts: %w", err)
	}
	for _, p := range updated {
		var comments []byte
		comments, err = json.Marshal(p.Comments)
		if err != nil {
			return fmt.Errorf("encode comments: %w", err)
		}
		if _, err = tx.Exec(ctx, insertPost,
			p.ID, p.Title, p.Content, p.AuthorID, p.PublicationDate, p.Upvotes, p.Downvotes, comments); err != nil {
			return fmt.Errorf("save post %d: %w", p.ID, err)
		}
	}
	return nil
}
