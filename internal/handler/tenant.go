package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/service"
)

// TenantHandler serves tenant, membership, and usage endpoints.
type TenantHandler struct {
	tenants service.TenantService
	guard   quota.Guard
	logger  *slog.Logger
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(tenants service.TenantService, guard quota.Guard, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{
		tenants: tenants,
		guard:   guard,
		logger:  logger,
	}
}

// RegisterRoutes registers tenant endpoints. Creation and listing only need
// a user; everything addressing a specific tenant goes through the
// tenant-scoped stack so membership is already verified.
func (h *TenantHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/tenants", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/tenants", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/tenant", requireTenant(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/tenant/plan", requireTenant(http.HandlerFunc(h.UpdatePlan)))
	mux.Handle("GET /api/tenant/usage", requireTenant(http.HandlerFunc(h.Usage)))
	mux.Handle("GET /api/tenant/members", requireTenant(http.HandlerFunc(h.ListMembers)))
	mux.Handle("POST /api/tenant/members", requireTenant(http.HandlerFunc(h.AddMember)))
	mux.Handle("DELETE /api/tenant/members/{userID}", requireTenant(http.HandlerFunc(h.RemoveMember)))
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

type createTenantRequest struct {
	Name string `json:"name"`
}

// Create creates a tenant owned by the caller.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant, err := h.tenants.Create(r.Context(), req.Name, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

// List returns the tenants the caller belongs to.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	tenants, err := h.tenants.ListForUser(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]tenantResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, toTenantResponse(&tenants[i]))
	}
	respondJSON(w, http.StatusOK, map[string][]tenantResponse{"tenants": out})
}

// Get returns the scoped tenant.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	scope := auth.GetTenant(r.Context())

	tenant, err := h.tenants.GetByID(r.Context(), scope.ID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, toTenantResponse(tenant))
}

type updatePlanRequest struct {
	Plan string `json:"plan"`
}

// UpdatePlan changes the scoped tenant's plan tier.
func (h *TenantHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	scope := auth.GetTenant(r.Context())

	if err := h.tenants.UpdatePlan(r.Context(), scope.ID, user.ID, domain.PlanTier(req.Plan)); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Usage returns the scoped tenant's current usage against its plan limits.
func (h *TenantHandler) Usage(w http.ResponseWriter, r *http.Request) {
	scope := auth.GetTenant(r.Context())

	stats, err := h.guard.UsageStats(r.Context(), scope.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

type memberResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMembers returns the scoped tenant's membership.
func (h *TenantHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	scope := auth.GetTenant(r.Context())

	members, err := h.tenants.ListMembers(r.Context(), scope.ID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:    m.UserID.String(),
			Role:      string(m.Role),
			CreatedAt: m.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string][]memberResponse{"members": out})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember adds a user to the scoped tenant.
func (h *TenantHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	const op = "handler.tenant"

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	userID, err := parseUUID(op, "user_id", req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	caller := auth.GetUser(r.Context())
	scope := auth.GetTenant(r.Context())

	member, err := h.tenants.AddMember(r.Context(), scope.ID, caller.ID, userID, domain.TenantRole(req.Role))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, memberResponse{
		UserID:    member.UserID.String(),
		Role:      string(member.Role),
		CreatedAt: member.CreatedAt,
	})
}

// RemoveMember removes a user from the scoped tenant.
func (h *TenantHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	caller := auth.GetUser(r.Context())
	scope := auth.GetTenant(r.Context())

	if err := h.tenants.RemoveMember(r.Context(), scope.ID, caller.ID, userID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toTenantResponse(t *domain.Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Plan:      string(t.Plan),
		CreatedAt: t.CreatedAt,
	}
}
