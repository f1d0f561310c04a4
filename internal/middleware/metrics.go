package middleware

import (
	"crypto/subtle"
	"net/http"
)

// MetricsAuthMiddleware guards the Prometheus scrape endpoint with HTTP
// basic auth. With no credentials configured the middleware is a no-op,
// which keeps local development friction-free.
type MetricsAuthMiddleware struct {
	username []byte
	password []byte
	enabled  bool
}

// NewMetricsAuthMiddleware creates a metrics auth middleware. Supplying
// an empty username and password disables authentication entirely.
func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: []byte(username),
		password: []byte(password),
		enabled:  username != "" || password != "",
	}
}

// Handler wraps next with a basic auth check.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	if !m.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !m.match(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// match compares both fields in constant time so response timing does
// not leak which credential was wrong.
func (m *MetricsAuthMiddleware) match(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), m.username) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), m.password) == 1
	return userOK && passOK
}
