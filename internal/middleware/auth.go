// Package middleware contains HTTP middleware for the Kairos API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/service"
)

// TenantHeader selects the tenant scope for a request. The caller must be a
// member of the named tenant.
const TenantHeader = "X-Tenant-ID"

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware resolves the bearer token to a user and the tenant header
// to a verified membership.
type AuthMiddleware struct {
	userService   service.UserService
	tenantService service.TenantService
	logger        *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(userService service.UserService, tenantService service.TenantService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		userService:   userService,
		tenantService: tenantService,
		logger:        logger,
	}
}

// WithUser is middleware that attempts to load the user from the
// Authorization header.
//
// The request continues regardless of authentication outcome; handlers that
// need a user sit behind RequireUser.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Invalid or expired token. The request proceeds
			// unauthenticated rather than failing here.
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser is middleware that rejects unauthenticated requests with 401.
//
// Must run after WithUser in the middleware chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTenant is middleware that resolves the X-Tenant-ID header to a
// verified membership and stores the tenant scope in the context.
//
// Requests without the header pass through unscoped. A header naming a
// tenant the user does not belong to is rejected with 403; requests are
// never silently reassigned to another tenant.
//
// Must run after WithUser.
func (m *AuthMiddleware) WithTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(TenantHeader))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		user := auth.GetUser(r.Context())
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		tenantID, err := uuid.Parse(header)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid", "Invalid tenant id")
			return
		}

		role, err := m.tenantService.ResolveMember(r.Context(), tenantID, user.ID)
		if err != nil {
			m.logger.Warn("tenant resolution rejected",
				"user_id", user.ID,
				"tenant_id", tenantID,
			)
			writeJSONError(w, http.StatusForbidden, "forbidden", "You are not a member of this tenant")
			return
		}

		ctx := auth.SetTenant(r.Context(), &auth.Tenant{ID: tenantID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTenant is middleware that rejects requests without a resolved
// tenant scope.
//
// Must run after WithTenant.
func (m *AuthMiddleware) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetTenant(r.Context()) == nil {
			writeJSONError(w, http.StatusBadRequest, "invalid", "X-Tenant-ID header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Helpers
// =============================================================================

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// writeJSONError writes a minimal JSON error body. Middleware cannot import
// the handler package's response helpers without a cycle, so it carries its
// own.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided: the first middleware in the
// slice is the outermost (runs first on request, last on response).
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
