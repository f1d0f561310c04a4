package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// TenantService defines operations for tenants and their membership.
type TenantService interface {
	// Create creates a tenant on the free plan and makes the creator its
	// owner.
	Create(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Tenant, error)

	// GetByID retrieves a tenant, requiring the caller to be a member.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Tenant, error)

	// ListForUser returns the tenants the user belongs to.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tenant, error)

	// UpdatePlan changes the tenant's plan tier. Requires a managing role.
	UpdatePlan(ctx context.Context, tenantID, userID uuid.UUID, plan domain.PlanTier) error

	// AddMember adds a user to the tenant. Requires a managing role.
	// Owners cannot be added this way; ownership is set at creation.
	AddMember(ctx context.Context, tenantID, callerID, userID uuid.UUID, role domain.TenantRole) (*domain.TenantMember, error)

	// RemoveMember removes a user from the tenant. Requires a managing
	// role; owners cannot be removed.
	RemoveMember(ctx context.Context, tenantID, callerID, userID uuid.UUID) error

	// ListMembers returns the tenant's membership. Requires membership.
	ListMembers(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.TenantMember, error)

	// ResolveMember verifies membership and returns the user's role.
	// Returns domain.EFORBIDDEN for non-members.
	ResolveMember(ctx context.Context, tenantID, userID uuid.UUID) (domain.TenantRole, error)
}

// =============================================================================
// Implementation
// =============================================================================

type tenantService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(queries *repository.Queries, logger *slog.Logger) TenantService {
	return &tenantService{
		queries: queries,
		logger:  logger,
	}
}

// Create creates a tenant and its owner membership.
func (s *tenantService) Create(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Tenant, error) {
	const op = "TenantService.Create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid(op, "Tenant name is required")
	}
	if len(name) > 100 {
		return nil, domain.Invalid(op, "Tenant name must be 100 characters or less")
	}

	tenant, err := s.queries.CreateTenant(ctx, name)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create tenant")
	}

	if _, err := s.queries.AddTenantMember(ctx, tenant.ID, ownerID, domain.TenantRoleOwner); err != nil {
		return nil, domain.Internal(err, op, "Failed to add tenant owner")
	}

	s.logger.Info("tenant created", "tenant_id", tenant.ID, "owner_id", ownerID, "name", tenant.Name)
	return &tenant, nil
}

// GetByID retrieves a tenant for one of its members.
func (s *tenantService) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Tenant, error) {
	const op = "TenantService.GetByID"

	if _, err := s.ResolveMember(ctx, id, userID); err != nil {
		return nil, err
	}

	tenant, err := s.queries.GetTenantByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "tenant")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve tenant")
	}

	return &tenant, nil
}

// ListForUser returns the tenants the user belongs to.
func (s *tenantService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tenant, error) {
	const op = "TenantService.ListForUser"

	tenants, err := s.queries.ListTenantsForUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list tenants")
	}
	return tenants, nil
}

// UpdatePlan changes the tenant's plan tier.
func (s *tenantService) UpdatePlan(ctx context.Context, tenantID, userID uuid.UUID, plan domain.PlanTier) error {
	const op = "TenantService.UpdatePlan"

	if !plan.Valid() {
		return domain.Invalid(op, "Unknown plan tier")
	}

	if err := s.requireManager(ctx, op, tenantID, userID); err != nil {
		return err
	}

	if err := s.queries.UpdateTenantPlan(ctx, tenantID, plan); err != nil {
		return domain.Internal(err, op, "Failed to update plan")
	}

	s.logger.Info("tenant plan updated", "tenant_id", tenantID, "plan", plan, "by", userID)
	return nil
}

// AddMember adds a user to the tenant.
func (s *tenantService) AddMember(ctx context.Context, tenantID, callerID, userID uuid.UUID, role domain.TenantRole) (*domain.TenantMember, error) {
	const op = "TenantService.AddMember"

	if !role.Valid() {
		return nil, domain.Invalid(op, "Unknown role")
	}
	if role == domain.TenantRoleOwner {
		return nil, domain.Invalid(op, "Ownership is assigned at tenant creation")
	}

	if err := s.requireManager(ctx, op, tenantID, callerID); err != nil {
		return nil, err
	}

	member, err := s.queries.AddTenantMember(ctx, tenantID, userID, role)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "User is already a member of this tenant")
		}
		return nil, domain.Internal(err, op, "Failed to add member")
	}

	s.logger.Info("tenant member added", "tenant_id", tenantID, "user_id", userID, "role", role, "by", callerID)
	return &member, nil
}

// RemoveMember removes a user from the tenant.
func (s *tenantService) RemoveMember(ctx context.Context, tenantID, callerID, userID uuid.UUID) error {
	const op = "TenantService.RemoveMember"

	if err := s.requireManager(ctx, op, tenantID, callerID); err != nil {
		return err
	}

	role, err := s.queries.RoleInTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "tenant member")
		}
		return domain.Internal(err, op, "Failed to check member role")
	}
	if role == domain.TenantRoleOwner {
		return domain.Forbidden(op, "The tenant owner cannot be removed")
	}

	if err := s.queries.RemoveTenantMember(ctx, tenantID, userID); err != nil {
		return domain.Internal(err, op, "Failed to remove member")
	}

	s.logger.Info("tenant member removed", "tenant_id", tenantID, "user_id", userID, "by", callerID)
	return nil
}

// ListMembers returns the tenant's membership.
func (s *tenantService) ListMembers(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.TenantMember, error) {
	const op = "TenantService.ListMembers"

	if _, err := s.ResolveMember(ctx, tenantID, userID); err != nil {
		return nil, err
	}

	members, err := s.queries.ListTenantMembers(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list members")
	}
	return members, nil
}

// ResolveMember verifies membership and returns the user's role.
func (s *tenantService) ResolveMember(ctx context.Context, tenantID, userID uuid.UUID) (domain.TenantRole, error) {
	const op = "TenantService.ResolveMember"

	role, err := s.queries.RoleInTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.Forbidden(op, "You are not a member of this tenant")
		}
		return "", domain.Internal(err, op, "Failed to check tenant membership")
	}
	return role, nil
}

// requireManager verifies the caller holds a role allowed to administer
// the tenant.
func (s *tenantService) requireManager(ctx context.Context, op string, tenantID, userID uuid.UUID) error {
	role, err := s.ResolveMember(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return domain.Forbidden(op, "This action requires an owner or admin role")
	}
	return nil
}

var _ TenantService = (*tenantService)(nil)
