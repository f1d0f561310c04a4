package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/service"
)

// VisionHandler serves the image analysis endpoint.
type VisionHandler struct {
	vision service.VisionService
	logger *slog.Logger
}

// NewVisionHandler creates a new VisionHandler.
func NewVisionHandler(vision service.VisionService, logger *slog.Logger) *VisionHandler {
	return &VisionHandler{
		vision: vision,
		logger: logger,
	}
}

// RegisterRoutes registers the vision endpoint behind the tenant-scoped
// stack.
func (h *VisionHandler) RegisterRoutes(mux *http.ServeMux, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/vision", requireTenant(http.HandlerFunc(h.Analyze)))
}

type visionRequest struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt,omitempty"`
}

type visionResponse struct {
	Description string `json:"description"`
}

// Analyze runs the vision model over an image URL.
func (h *VisionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant := auth.GetTenant(r.Context())

	description, err := h.vision.AnalyzeImage(r.Context(), service.AnalyzeImageParams{
		TenantID: uuid.NullUUID{UUID: tenant.ID, Valid: true},
		UserID:   user.ID,
		ImageURL: req.ImageURL,
		Prompt:   req.Prompt,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, visionResponse{Description: description})
}
