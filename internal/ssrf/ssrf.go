// Package ssrf validates user-supplied URLs before the server fetches or
// forwards them, blocking requests that would reach internal addresses.
package ssrf

import (
	"net"
	"net/url"
	"strings"

	"github.com/kairoshq/kairos/internal/domain"
)

// blockedHosts are hostnames rejected outright, regardless of resolution.
var blockedHosts = map[string]bool{
	"localhost":       true,
	"127.0.0.1":       true,
	"0.0.0.0":         true,
	"::1":             true,
	"169.254.169.254": true, // cloud metadata endpoint
}

// ValidateURL checks that a user-supplied URL is safe for the server to
// fetch. Only http and https schemes are accepted; hosts that are internal
// names, loopback, private, or link-local addresses are rejected.
func ValidateURL(rawURL string) error {
	const op = "ssrf.validate_url"

	if strings.TrimSpace(rawURL) == "" {
		return domain.Invalid(op, "URL is required.")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.Invalid(op, "URL is not valid.")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.SSRFBlocked(op)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return domain.Invalid(op, "URL is not valid.")
	}

	if blockedHosts[host] {
		return domain.SSRFBlocked(op)
	}

	if ip := net.ParseIP(host); ip != nil {
		if !publicIP(ip) {
			return domain.SSRFBlocked(op)
		}
		return nil
	}

	// Dotless hostnames are internal service names, never public DNS.
	if !strings.Contains(host, ".") {
		return domain.SSRFBlocked(op)
	}

	return nil
}

// publicIP reports whether the address is plausibly routable from the
// public internet.
func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified())
}
