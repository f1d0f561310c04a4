package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter counts requests per key over a fixed window. Entries are
// kept in memory, which is fine for a single-process deployment.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger

	mu      sync.RWMutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter allowing maxAttempts per window
// and starts its background sweeper.
func NewRateLimiter(maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		entries:     make(map[string]*rateLimitEntry),
	}
	go rl.sweep()
	return rl
}

// bump increments the counter for key, resetting the window when it has
// elapsed, and returns the count after the increment. Callers hold mu.
func (rl *RateLimiter) bump(key string) int {
	now := time.Now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) > rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return 1
	}
	entry.count++
	return entry.count
}

// Allow reports whether a request from key is within the limit, counting
// the request when it is.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if ok && time.Since(entry.windowStart) <= rl.window && entry.count >= rl.maxAttempts {
		return false
	}
	rl.bump(key)
	return true
}

// RecordFailure counts an attempt against key unconditionally. Failed
// logins go through this so they consume the budget even though the
// request itself was allowed.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.bump(key)
}

// Reset clears the counter for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long key stays limited, or zero when the
// window has already expired.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, ok := rl.entries[key]
	if !ok {
		return 0
	}
	remaining := rl.window - time.Since(entry.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// sweep drops expired entries once per window so the map does not grow
// without bound.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, entry := range rl.entries {
			if now.Sub(entry.windowStart) > rl.window {
				delete(rl.entries, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware applies a RateLimiter per client IP.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware.
func NewRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, logger: logger}
}

// Limit rejects over-limit requests with 429 and a Retry-After header.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)

		if !m.limiter.Allow(clientIP) {
			m.logger.Warn("rate limit exceeded",
				"ip", clientIP,
				"path", r.URL.Path,
				"method", r.Method,
			)

			retryAfter := int(m.limiter.TimeUntilReset(clientIP).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate_limit",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthRateLimiter bundles the limiters for the authentication endpoints.
// Login and registration get separate budgets because registration abuse
// is rarer but more damaging.
type AuthRateLimiter struct {
	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	logger          *slog.Logger
}

// NewAuthRateLimiter creates auth limiters with the default budgets:
// 5 login attempts per 15 minutes, 3 registrations per hour.
func NewAuthRateLimiter(logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		loginLimiter:    NewRateLimiter(5, 15*time.Minute, logger),
		registerLimiter: NewRateLimiter(3, time.Hour, logger),
		logger:          logger,
	}
}

// LimitLogin rate limits login attempts per client IP.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.loginLimiter, a.logger).Limit(next)
}

// LimitRegister rate limits registration attempts per client IP.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.registerLimiter, a.logger).Limit(next)
}

// RecordFailedLogin counts a failed login against ip.
func (a *AuthRateLimiter) RecordFailedLogin(ip string) {
	a.loginLimiter.RecordFailure(ip)
}

// ResetLogin clears the login budget for ip after a successful login.
func (a *AuthRateLimiter) ResetLogin(ip string) {
	a.loginLimiter.Reset(ip)
}

// ClientIP resolves the client address, trusting proxy headers when
// present. X-Forwarded-For may carry a chain; the first hop is the
// original client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
