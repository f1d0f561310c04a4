package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kairoshq/kairos/internal/metrics"
)

// Provider family names, used for routing decisions and metrics labels.
const (
	FamilyAnthropic = "anthropic"
	FamilyGoogle    = "google"
	FamilyGroq      = "groq"
)

// FamilyForModel maps a model identifier to its provider family.
// Gemini models carry a "gemini" marker, Llama models a "llama" marker,
// everything else goes to Anthropic. The whole identifier is matched, so
// fine-tune style prefixes like "meta-llama/" still route correctly.
func FamilyForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gemini"):
		return FamilyGoogle
	case strings.Contains(m, "llama"):
		return FamilyGroq
	default:
		return FamilyAnthropic
	}
}

// Router dispatches chat requests to the provider responsible for the
// requested model.
type Router struct {
	providers map[string]Provider
}

// NewRouter creates a Router over the given provider families. A nil
// provider means that family is not configured; requests routed to it fail
// with ErrModelNotFound.
func NewRouter(anthropic, google, groq Provider) *Router {
	providers := make(map[string]Provider, 3)
	if anthropic != nil {
		providers[FamilyAnthropic] = anthropic
	}
	if google != nil {
		providers[FamilyGoogle] = google
	}
	if groq != nil {
		providers[FamilyGroq] = groq
	}
	return &Router{providers: providers}
}

// ProviderFor returns the provider responsible for the model.
func (r *Router) ProviderFor(model string) (Provider, error) {
	family := FamilyForModel(model)
	provider, ok := r.providers[family]
	if !ok {
		return nil, fmt.Errorf("%w: no %s provider configured for model %q", ErrModelNotFound, family, model)
	}
	return provider, nil
}

// Complete routes the request to the provider for req.Model.
func (r *Router) Complete(ctx context.Context, req ChatRequest) (string, error) {
	provider, err := r.ProviderFor(req.Model)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reply, err := provider.Complete(ctx, req)
	metrics.ProviderRequest(FamilyForModel(req.Model), time.Since(start), err)
	return reply, err
}
