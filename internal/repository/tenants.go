package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const tenantColumns = `id, name, plan, created_at, updated_at`

func scanTenant(row *sql.Row, t *domain.Tenant) error {
	return row.Scan(&t.ID, &t.Name, &t.Plan, &t.CreatedAt, &t.UpdatedAt)
}

// CreateTenant inserts a new tenant on the free plan.
func (q *Queries) CreateTenant(ctx context.Context, name string) (domain.Tenant, error) {
	const query = `
		INSERT INTO tenants (name, plan)
		VALUES ($1, $2)
		RETURNING ` + tenantColumns
	var t domain.Tenant
	err := scanTenant(q.db.QueryRowContext(ctx, query, name, domain.PlanTierFree), &t)
	return t, err
}

// GetTenantByID fetches a tenant by id.
func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	const query = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	var t domain.Tenant
	err := scanTenant(q.db.QueryRowContext(ctx, query, id), &t)
	return t, err
}

// GetTenantPlan fetches only the tenant's plan tier.
func (q *Queries) GetTenantPlan(ctx context.Context, id uuid.UUID) (domain.PlanTier, error) {
	const query = `SELECT plan FROM tenants WHERE id = $1`
	var plan domain.PlanTier
	err := q.db.QueryRowContext(ctx, query, id).Scan(&plan)
	return plan, err
}

// UpdateTenantPlan changes a tenant's plan tier.
func (q *Queries) UpdateTenantPlan(ctx context.Context, id uuid.UUID, plan domain.PlanTier) error {
	const query = `UPDATE tenants SET plan = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, plan)
	return err
}

// AddTenantMember links a user to a tenant with a role.
func (q *Queries) AddTenantMember(ctx context.Context, tenantID, userID uuid.UUID, role domain.TenantRole) (domain.TenantMember, error) {
	const query = `
		INSERT INTO tenant_users (tenant_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, tenant_id, user_id, role, created_at`
	var m domain.TenantMember
	err := q.db.QueryRowContext(ctx, query, tenantID, userID, role).
		Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)
	return m, err
}

// RemoveTenantMember unlinks a user from a tenant.
func (q *Queries) RemoveTenantMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	const query = `DELETE FROM tenant_users WHERE tenant_id = $1 AND user_id = $2`
	_, err := q.db.ExecContext(ctx, query, tenantID, userID)
	return err
}

// BelongsToTenant reports whether the user is a member of the tenant.
func (q *Queries) BelongsToTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM tenant_users WHERE user_id = $1 AND tenant_id = $2
	)`
	var exists bool
	err := q.db.QueryRowContext(ctx, query, userID, tenantID).Scan(&exists)
	return exists, err
}

// RoleInTenant returns the user's role in the tenant, or sql.ErrNoRows if
// the user is not a member.
func (q *Queries) RoleInTenant(ctx context.Context, userID, tenantID uuid.UUID) (domain.TenantRole, error) {
	const query = `SELECT role FROM tenant_users WHERE user_id = $1 AND tenant_id = $2`
	var role domain.TenantRole
	err := q.db.QueryRowContext(ctx, query, userID, tenantID).Scan(&role)
	return role, err
}

// ListTenantMembers returns all members of a tenant.
func (q *Queries) ListTenantMembers(ctx context.Context, tenantID uuid.UUID) ([]domain.TenantMember, error) {
	const query = `
		SELECT id, tenant_id, user_id, role, created_at
		FROM tenant_users
		WHERE tenant_id = $1
		ORDER BY created_at`
	rows, err := q.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TenantMember
	for rows.Next() {
		var m domain.TenantMember
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListTenantsForUser returns the tenants the user belongs to.
func (q *Queries) ListTenantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tenant, error) {
	const query = `
		SELECT t.id, t.name, t.plan, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_users tu ON tu.tenant_id = t.id
		WHERE tu.user_id = $1
		ORDER BY t.created_at`
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Plan, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
