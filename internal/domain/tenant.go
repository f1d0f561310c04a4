package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a billing/organizational unit owning conversations, agents,
// projects, and swipes. Its plan tier is read by the quota guard on every
// check and mutated only by an administrative update.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Plan      PlanTier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantRole is a user's role within a tenant.
type TenantRole string

const (
	TenantRoleOwner  TenantRole = "owner"
	TenantRoleAdmin  TenantRole = "admin"
	TenantRoleMember TenantRole = "member"
)

// Valid checks if the role is one of the known roles.
func (r TenantRole) Valid() bool {
	switch r {
	case TenantRoleOwner, TenantRoleAdmin, TenantRoleMember:
		return true
	default:
		return false
	}
}

// CanManage reports whether the role may administer tenant resources it does
// not own (delete other members' conversations, change the plan, and so on).
func (r TenantRole) CanManage() bool {
	return r == TenantRoleOwner || r == TenantRoleAdmin
}

// TenantMember links a user to a tenant with a role.
type TenantMember struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      TenantRole
	CreatedAt time.Time
}
