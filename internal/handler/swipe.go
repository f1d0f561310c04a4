package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// SwipeHandler serves the swipe file endpoints.
type SwipeHandler struct {
	swipes service.SwipeService
	logger *slog.Logger
}

// NewSwipeHandler creates a new SwipeHandler.
func NewSwipeHandler(swipes service.SwipeService, logger *slog.Logger) *SwipeHandler {
	return &SwipeHandler{
		swipes: swipes,
		logger: logger,
	}
}

// RegisterRoutes registers swipe endpoints behind the tenant-scoped stack.
func (h *SwipeHandler) RegisterRoutes(mux *http.ServeMux, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/swipes", requireTenant(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/swipes", requireTenant(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/swipes/{id}", requireTenant(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /api/swipes/{id}", requireTenant(http.HandlerFunc(h.Delete)))
}

type swipeRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Category     string `json:"category"`
	Network      string `json:"network"`
	ReferenceURL string `json:"reference_url"`
}

type swipeResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category,omitempty"`
	Network      string    `json:"network,omitempty"`
	ReferenceURL string    `json:"reference_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type swipeListResponse struct {
	Swipes []swipeResponse `json:"swipes"`
	Total  int64           `json:"total"`
}

// Create saves a new swipe.
func (h *SwipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant := auth.GetTenant(r.Context())

	swipe, err := h.swipes.Create(r.Context(), tenant.ID, user.ID, service.CreateSwipeParams{
		Title:        req.Title,
		Content:      req.Content,
		Category:     req.Category,
		Network:      req.Network,
		ReferenceURL: req.ReferenceURL,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toSwipeResponse(swipe))
}

// List returns a page of the tenant's swipes.
func (h *SwipeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := auth.GetTenant(r.Context())

	offset, limit := pagination(r)
	page, err := h.swipes.List(r.Context(), tenant.ID, offset, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]swipeResponse, 0, len(page.Swipes))
	for i := range page.Swipes {
		out = append(out, toSwipeResponse(&page.Swipes[i]))
	}
	respondJSON(w, http.StatusOK, swipeListResponse{Swipes: out, Total: page.Total})
}

// Get retrieves one swipe.
func (h *SwipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	swipe, err := h.swipes.GetByID(r.Context(), tenant.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toSwipeResponse(swipe))
}

// Delete removes a swipe.
func (h *SwipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	if err := h.swipes.Delete(r.Context(), tenant.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toSwipeResponse(s *domain.Swipe) swipeResponse {
	return swipeResponse{
		ID:           s.ID.String(),
		Title:        s.Title,
		Content:      s.Content,
		Category:     s.Category,
		Network:      s.Network,
		ReferenceURL: s.ReferenceURL,
		CreatedAt:    s.CreatedAt,
	}
}
