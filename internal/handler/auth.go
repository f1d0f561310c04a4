package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/middleware"
	"github.com/kairoshq/kairos/internal/service"
)

// AuthHandler serves account and session endpoints.
type AuthHandler struct {
	users       service.UserService
	rateLimiter *middleware.AuthRateLimiter
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, rateLimiter *middleware.AuthRateLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:       users,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RegisterRoutes registers auth endpoints on the mux. Registration and login
// are public; the rest sit behind the given authenticated stack.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/register", h.rateLimiter.LimitRegister(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", h.rateLimiter.LimitLogin(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/auth/logout", requireUser(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/auth/password", requireUser(http.HandlerFunc(h.ChangePassword)))
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Login authenticates a user and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Failed attempts count toward the per-IP lockout.
		h.rateLimiter.RecordFailedLogin(middleware.ClientIP(r))
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.rateLimiter.ResetLogin(middleware.ClientIP(r))

	respondJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User: userResponse{
			ID:        result.User.ID.String(),
			Email:     result.User.Email,
			Name:      result.User.Name,
			CreatedAt: result.User.CreatedAt,
		},
	})
}

// Logout invalidates the presented bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		// RequireUser already passed, so this should not happen.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.users.Logout(r.Context(), token); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	respondJSON(w, http.StatusOK, userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the user's password and invalidates all sessions,
// including the one making this request.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	if err := h.users.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
