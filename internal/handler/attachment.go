package handler

import (
	"log/slog"
	"net/http"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// maxUploadBytes bounds the whole multipart upload request. Slightly above
// the image size limit to leave room for the multipart framing.
const maxUploadBytes = domain.MaxImageSizeBytes + 1<<20

// AttachmentHandler serves image attachment upload and fetch endpoints.
type AttachmentHandler struct {
	attachments service.AttachmentService
	logger      *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachments service.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
		logger:      logger,
	}
}

// RegisterRoutes registers attachment endpoints behind the tenant-scoped
// stack.
func (h *AttachmentHandler) RegisterRoutes(mux *http.ServeMux, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/attachments", requireTenant(http.HandlerFunc(h.Upload)))
	mux.Handle("POST /api/attachments/fetch", requireTenant(http.HandlerFunc(h.Fetch)))
}

// Upload stores an image sent as multipart form data under the "image"
// field.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "handler.attachment"

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid multipart upload"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Missing image file"))
		return
	}
	defer file.Close()

	tenant := auth.GetTenant(r.Context())
	attachment, err := h.attachments.Upload(r.Context(), tenant.ID, header.Filename, header.Size, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, attachment)
}

type fetchAttachmentRequest struct {
	URL string `json:"url"`
}

// Fetch downloads an external image and stores it like an upload.
func (h *AttachmentHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchAttachmentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	attachment, err := h.attachments.Fetch(r.Context(), tenant.ID, req.URL)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, attachment)
}
