// Package httpserver exposes the REST surface over the application services.
// Handlers decode requests, call a service, and map sentinel errors to status
// codes; no business decisions live here.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/DavidBGG/YaballeBlog/internal/errs"
	"github.com/DavidBGG/YaballeBlog/internal/model"
	"github.com/DavidBGG/YaballeBlog/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth  service.AuthService
	posts service.PostService
	log   *zap.Logger
	mux   *http.ServeMux
}

// New constructs the server and registers all routes.
func New(auth service.AuthService, posts service.PostService, log *zap.Logger) *Server {
	s := &Server{auth: auth, posts: posts, log: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)

	s.mux.HandleFunc("GET /posts", s.handleListPosts)
	s.mux.HandleFunc("POST /posts", s.handleCreatePost)
	s.mux.HandleFunc("GET /posts/{id}", s.handleGetPost)
	s.mux.HandleFunc("PUT /posts/{id}", s.handleUpdatePost)
	s.mux.HandleFunc("DELETE /posts/{id}", s.handleDeletePost)
	s.mux.HandleFunc("POST /posts/{id}/upvote", s.handleUpvote)
	s.mux.HandleFunc("POST /posts/{id}/downvote", s.handleDownvote)
	s.mux.HandleFunc("POST /posts/{id}/comments", s.handleAddComment)

	s.mux.HandleFunc("GET /search", s.handleSearch)

	s.mux.HandleFunc("GET /moderator/users", s.handleModeratorUsers)
	s.mux.HandleFunc("GET /moderator/posts", s.handleModeratorPosts)

	return s
}

// Handler returns the routed handler wrapped with recovery and logging.
func (s *Server) Handler() http.Handler {
	return Recover(s.log)(Logging(s.log)(s.mux))
}

// bearerToken extracts the opaque token from the Authorization header. The
// reference clients send the bare token; a "Bearer " prefix is also accepted.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && (h[:7] == "Bearer " || h[:7] == "bearer ") {
		return h[7:]
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the sentinel taxonomy to stable status classes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, errs.ErrUnauthorized), errors.Is(err, errs.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidInput), errors.Is(err, errs.ErrDuplicateUsername):
		status = http.StatusBadRequest
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func postID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrNotFound
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	u, err := s.auth.Register(r.Context(), req.Username, req.Password, req.Role, bearerToken(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully with role: " + string(u.Role) + ".",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	tok, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	p, err := s.posts.Create(r.Context(), bearerToken(r), req.Title, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.posts.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	p, err := s.posts.Update(r.Context(), bearerToken(r), id, req.Title, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.posts.Delete(r.Context(), bearerToken(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, err := s.posts.Upvote(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"upvotes": count})
}

func (s *Server) handleDownvote(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, err := s.posts.Downvote(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"downvotes": count})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrInvalidInput)
		return
	}
	if err := s.posts.AddComment(r.Context(), bearerToken(r), id, req.Content); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Comment added."})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.posts.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleModeratorUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleModeratorPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListModerated(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}
