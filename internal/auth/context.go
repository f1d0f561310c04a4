// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userContextKey is the key used to store the authenticated user in context.
	userContextKey contextKey = "user"

	// tenantContextKey is the key used to store the resolved tenant scope.
	tenantContextKey contextKey = "tenant"
)

// Tenant is the request's resolved tenant scope: the tenant the caller
// selected and the role their membership grants.
type Tenant struct {
	ID   uuid.UUID
	Role domain.TenantRole
}

// GetUser retrieves the authenticated user from the context.
//
// Returns nil if no user is authenticated.
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserFromRequest retrieves the authenticated user from the request context.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}

// SetUser stores a user in the context.
//
// This is typically called by authentication middleware after validating
// a bearer token.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetTenant retrieves the resolved tenant scope from the context.
//
// Returns nil when the request carries no tenant scope; tenant-scoped
// operations then fall back to personal scope or reject, per endpoint.
func GetTenant(ctx context.Context) *Tenant {
	tenant, ok := ctx.Value(tenantContextKey).(*Tenant)
	if !ok {
		return nil
	}
	return tenant
}

// SetTenant stores the resolved tenant scope in the context.
//
// Called by tenant middleware after verifying the caller's membership.
func SetTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenant)
}
