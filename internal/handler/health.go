package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything that can report its liveness, usually *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// RegisterRoutes registers the health endpoint. It is public.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Check)
}

// Check reports service health. The database must answer a ping.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
