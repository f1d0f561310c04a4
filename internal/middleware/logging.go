package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Paths skipped by request logging. Health probes and Prometheus
// scrapes fire constantly and drown out real traffic.
var unloggedPaths = []string{"/health", "/metrics"}

// Query parameters whose values are redacted before logging.
var sensitiveParams = map[string]bool{
	"token":         true,
	"code":          true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"api_key":       true,
	"apikey":        true,
	"access_token":  true,
	"refresh_token": true,
}

// RequestLoggingMiddleware emits one structured log line per request
// with method, path, status, latency, and client address.
type RequestLoggingMiddleware struct {
	logger *slog.Logger
}

// NewRequestLoggingMiddleware creates a request logging middleware.
func NewRequestLoggingMiddleware(logger *slog.Logger) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{logger: logger}
}

// Handler wraps next with request logging.
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"method", r.Method,
			"path", redactQuery(r.URL.Path, r.URL.RawQuery),
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ClientIP(r),
			"user_agent", r.UserAgent(),
		}

		if wrapped.statusCode >= 500 {
			m.logger.Warn("request", attrs...)
		} else {
			m.logger.Info("request", attrs...)
		}
	})
}

func skipLogging(path string) bool {
	for _, skip := range unloggedPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// redactQuery rebuilds the query string with sensitive values masked so
// tokens never land in log storage.
func redactQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	parts := strings.Split(rawQuery, "&")
	safeParts := make([]string, 0, len(parts))

	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if sensitiveParams[strings.ToLower(kv[0])] {
			safeParts = append(safeParts, kv[0]+"=[REDACTED]")
		} else {
			safeParts = append(safeParts, part)
		}
	}

	if len(safeParts) == 0 {
		return path
	}
	return path + "?" + strings.Join(safeParts, "&")
}
