package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DavidBGG/YaballeBlog/internal/errs"
	"github.com/DavidBGG/YaballeBlog/internal/model"
	"github.com/DavidBGG/YaballeBlog/internal/policy"
	"github.com/DavidBGG/YaballeBlog/internal/storage"
	"github.com/DavidBGG/YaballeBlog/internal/token"
)

// PostService defines operations over posts, votes, and comments.
type PostService interface {
	// Create publishes a new post authored by the token's identity.
	Create(ctx context.Context, callerToken, title, content string) (model.Post, error)
	// Get returns a single post by id.
	Get(ctx context.Context, postID int64) (model.Post, error)
	// List returns all posts in storage order.
	List(ctx context.Context) ([]model.Post, error)
	// Update replaces title and content. The author id never changes, no
	// matter who performs the edit.
	Update(ctx context.Context, callerToken string, postID int64, title, content string) (model.Post, error)
	// Delete removes a post by id.
	Delete(ctx context.Context, callerToken string, postID int64) error
	// Upvote increments the upvote counter and returns the new value.
	Upvote(ctx context.Context, postID int64) (int64, error)
	// Downvote increments the downvote counter and returns the new value.
	Downvote(ctx context.Context, postID int64) (int64, error)
	// AddComment appends a comment authored by the token's identity.
	AddComment(ctx context.Context, callerToken string, postID int64, content string) error
	// Search returns posts whose title or content contains the query,
	// case-insensitively, in storage order.
	Search(ctx context.Context, query string) ([]model.Post, error)
	// ListModerated returns all posts (moderator only).
	ListModerated(ctx context.Context, callerToken string) ([]model.Post, error)
}

type PostServiceImpl struct {
	posts    storage.PostStore
	registry *token.Registry
}

// NewPostService constructs PostService with required dependencies.
func NewPostService(posts storage.PostStore, registry *token.Registry) *PostServiceImpl {
	return &PostServiceImpl{posts: posts, registry: registry}
}

// nextPostID mirrors nextUserID for the Posts collection.
func nextPostID(posts []model.Post) int64 {
	var max int64
	for _, p := range posts {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

func locatePost(posts []model.Post, id int64) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// Create publishes a new post. The author id comes from the authenticated
// identity, never from client input.
func (s *PostServiceImpl) Create(ctx context.Context, callerToken, title, content string) (model.Post, error) {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return model.Post{}, err
	}

	var created model.Post
	err = s.posts.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		created = model.Post{
			ID:              nextPostID(posts),
			Title:           title,
			Content:         content,
			AuthorID:        actor.UserID,
			PublicationDate: time.Now().UTC(),
			Comments:        []model.Comment{},
		}
		if err := created.Validate(); err != nil {
			return nil, err
		}
		return append(posts, created), nil
	})
	if err != nil {
		return model.Post{}, err
	}
	return created, nil
}

// Get returns a post by id.
func (s *PostServiceImpl) Get(ctx context.Context, postID int64) (model.Post, error) {
	posts, err := s.posts.LoadPosts(ctx)
	if err != nil {
		return model.Post{}, fmt.Errorf("get post: %w", err)
	}
	i := locatePost(posts, postID)
	if i < 0 {
		return model.Post{}, errs.ErrNotFound
	}
	return posts[i], nil
}

// List returns all posts in storage order.
func (s *PostServiceImpl) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.LoadPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Update replaces title and content, preserving author and publication date.
func (s *PostServiceImpl) Update(ctx context.Context, callerToken string, postID int64, title, content string) (model.Post, error) {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return model.Post{}, err
	}

	var updated model.Post
	err = s.posts.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		i := locatePost(posts, postID)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		if !policy.CanModifyResource(actor, posts[i].AuthorID) {
			return nil, errs.ErrForbidden
		}
		candidate := posts[i]
		candidate.Title = title
		candidate.Content = content
		if err := candidate.Validate(); err != nil {
			return nil, err
		}
		posts[i] = candidate
		updated = candidate
		return posts, nil
	})
	if err != nil {
		return model.Post{}, err
	}
	return updated, nil
}

// Delete removes a post by id. Deleting an already-deleted id reports not
// found, the same as any other absent id.
func (s *PostServiceImpl) Delete(ctx context.Context, callerToken string, postID int64) error {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return err
	}

	return s.posts.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		i := locatePost(posts, postID)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		if !policy.CanModifyResource(actor, posts[i].AuthorID) {
			return nil, errs.ErrForbidden
		}
		return append(posts[:i], posts[i+1:]...), nil
	})
}

// vote increments one counter by exactly 1 inside the Posts exclusive
// section, so concurrent votes are never lost.
func (s *PostServiceImpl) vote(ctx context.Context, postID int64, up bool) (int64, error) {
	var count int64
	err := s.posts.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		i := locatePost(posts, postID)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		if up {
			posts[i].Upvotes++
			count = posts[i].Upvotes
		} else {
			posts[i].Downvotes++
			count = posts[i].Downvotes
		}
		return posts, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Upvote increments the post's upvote counter. No authentication required.
func (s *PostServiceImpl) Upvote(ctx context.Context, postID int64) (int64, error) {
	return s.vote(ctx, postID, true)
}

// Downvote increments the post's downvote counter. No authentication required.
func (s *PostServiceImpl) Downvote(ctx context.Context, postID int64) (int64, error) {
	return s.vote(ctx, postID, false)
}

// AddComment appends a comment to the post's sequence. Comments keep strict
// append order.
func (s *PostServiceImpl) AddComment(ctx context.Context, callerToken string, postID int64, content string) error {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return err
	}

	comment := model.Comment{
		UserID:    actor.UserID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := comment.Validate(); err != nil {
		return err
	}

	return s.posts.MutatePosts(ctx, func(posts []model.Post) ([]model.Post, error) {
		i := locatePost(posts, postID)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		posts[i].Comments = append(posts[i].Comments, comment)
		return posts, nil
	})
}

// Search matches the query against title or content, case-insensitively.
func (s *PostServiceImpl) Search(ctx context.Context, query string) ([]model.Post, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", errs.ErrInvalidInput)
	}
	posts, err := s.posts.LoadPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	q := strings.ToLower(query)
	results := []model.Post{}
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
			results = append(results, p)
		}
	}
	return results, nil
}

// ListModerated returns every post for moderation review.
func (s *PostServiceImpl) ListModerated(ctx context.Context, callerToken string) ([]model.Post, error) {
	actor, err := authenticate(s.registry, callerToken)
	if err != nil {
		return nil, err
	}
	if !policy.IsModerator(actor) {
		return nil, fmt.Errorf("%w: moderator access required", errs.ErrForbidden)
	}
	return s.posts.LoadPosts(ctx)
}
