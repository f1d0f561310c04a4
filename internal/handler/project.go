package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// ProjectHandler serves the project CRUD endpoints.
type ProjectHandler struct {
	projects service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logger,
	}
}

// RegisterRoutes registers project endpoints behind the tenant-scoped stack.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/projects", requireTenant(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/projects", requireTenant(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/projects/{id}", requireTenant(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /api/projects/{id}", requireTenant(http.HandlerFunc(h.Delete)))
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Create creates a new project.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant := auth.GetTenant(r.Context())

	project, err := h.projects.Create(r.Context(), tenant.ID, user.ID, req.Name, req.Description)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toProjectResponse(project))
}

// List returns the tenant's projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := auth.GetTenant(r.Context())

	projects, err := h.projects.List(r.Context(), tenant.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	respondJSON(w, http.StatusOK, map[string][]projectResponse{"projects": out})
}

// Get retrieves one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	project, err := h.projects.GetByID(r.Context(), tenant.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toProjectResponse(project))
}

// Delete removes a project, freeing its quota slot.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	if err := h.projects.Delete(r.Context(), tenant.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toProjectResponse(p *domain.Project) projectResponse {
	return projectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
