package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// AgentHandler serves the custom agent CRUD endpoints.
type AgentHandler struct {
	agents service.AgentService
	logger *slog.Logger
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(agents service.AgentService, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		logger: logger,
	}
}

// RegisterRoutes registers agent endpoints behind the tenant-scoped stack.
func (h *AgentHandler) RegisterRoutes(mux *http.ServeMux, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/agents", requireTenant(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/agents", requireTenant(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/agents/{id}", requireTenant(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/agents/{id}", requireTenant(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/agents/{id}", requireTenant(http.HandlerFunc(h.Deactivate)))
}

type agentRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type agentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	Model        string    `json:"model"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Create creates a new active agent.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant := auth.GetTenant(r.Context())

	agent, err := h.agents.Create(r.Context(), tenant.ID, user.ID, service.CreateAgentParams{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toAgentResponse(agent))
}

// List returns the tenant's active agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := auth.GetTenant(r.Context())

	agents, err := h.agents.List(r.Context(), tenant.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]agentResponse, 0, len(agents))
	for i := range agents {
		out = append(out, toAgentResponse(&agents[i]))
	}
	respondJSON(w, http.StatusOK, map[string][]agentResponse{"agents": out})
}

// Get retrieves one active agent.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	agent, err := h.agents.GetByID(r.Context(), tenant.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toAgentResponse(agent))
}

// Update replaces an agent's configuration.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	agent, err := h.agents.Update(r.Context(), tenant.ID, id, service.UpdateAgentParams{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toAgentResponse(agent))
}

// Deactivate soft-deletes an agent, freeing its quota slot.
func (h *AgentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tenant := auth.GetTenant(r.Context())
	if err := h.agents.Deactivate(r.Context(), tenant.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toAgentResponse(a *domain.CustomAgent) agentResponse {
	return agentResponse{
		ID:           a.ID.String(),
		Name:         a.Name,
		Description:  a.Description,
		SystemPrompt: a.SystemPrompt,
		Model:        a.Model,
		Temperature:  a.Temperature,
		MaxTokens:    a.MaxTokens,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
