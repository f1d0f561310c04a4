// Package mock provides a canned ai.Provider for development and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kairoshq/kairos/internal/ai"
)

// Provider is a mock chat provider. It satisfies ai.Provider without any
// network access and records what it was asked, for assertions in tests.
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	CompleteResponse string
	CompleteError    error

	// Call tracking for testing
	CompleteCalls int
	LastRequest   ai.ChatRequest
}

// New creates a new mock provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Complete returns the configured response, or a deterministic echo of the
// last user message when none is set.
func (p *Provider) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CompleteCalls++
	p.LastRequest = req

	if p.CompleteError != nil {
		return "", p.CompleteError
	}
	if p.CompleteResponse != "" {
		return p.CompleteResponse, nil
	}

	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	return fmt.Sprintf("[%s] You said: %s", req.Model, last), nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CompleteCalls = 0
	p.CompleteResponse = ""
	p.CompleteError = nil
	p.LastRequest = ai.ChatRequest{}
}
