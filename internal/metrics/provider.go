package metrics

import "time"

// ProviderRequest records one chat completion round trip against a provider
// family. Status is "ok" or "error".
func ProviderRequest(family string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(family, status).Inc()
	ProviderRequestDuration.WithLabelValues(family).Observe(duration.Seconds())
}

// QuotaCheck records the outcome of a single quota check.
// Outcome is "allowed", "denied", or "fail_open".
func QuotaCheck(action, outcome string) {
	QuotaChecksTotal.WithLabelValues(action, outcome).Inc()
}
