// Package ai defines the chat-completion provider abstraction and the
// routing rules that pick a provider for a requested model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    Role   // Who authored the message
	Content string // Message text
	// ImageURL references an image the message refers to. Only providers
	// with vision support read it; others ignore it.
	ImageURL string
}

// ChatRequest carries everything a provider needs to produce a completion.
type ChatRequest struct {
	Model       string    // Model identifier, also used for routing
	System      string    // System prompt, empty for provider default behavior
	Messages    []Message // Conversation history, oldest first
	MaxTokens   int       // Upper bound on generated tokens
	Temperature float64   // Sampling temperature

	// EnableMemory lets providers that support the memory tool offer it
	// to the model for this request.
	EnableMemory bool
}

// Provider produces chat completions.
type Provider interface {
	// Complete generates the assistant's reply for the request.
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Config contains common configuration for providers.
type Config struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for provider operations
var (
	// ErrRateLimited indicates the API rate limit has been exceeded
	ErrRateLimited = errors.New("ai provider rate limit exceeded")

	// ErrUnauthorized indicates invalid API credentials
	ErrUnauthorized = errors.New("ai provider authentication failed")

	// ErrModelNotFound indicates the requested model does not exist or is retired
	ErrModelNotFound = errors.New("ai model not found")

	// ErrOverloaded indicates the provider is temporarily unavailable
	ErrOverloaded = errors.New("ai provider temporarily unavailable")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("ai request timed out")

	// ErrInvalidRequest indicates the request was rejected as malformed
	ErrInvalidRequest = errors.New("invalid ai request")

	// ErrEmptyResponse indicates the provider returned no usable text
	ErrEmptyResponse = errors.New("ai provider returned empty response")
)

// IsRetryable returns true if the error is transient and the same request
// can be retried against the same model.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOverloaded)
}

// ShouldFallback returns true if the error justifies retrying the request
// against the next model in a fallback chain.
func ShouldFallback(err error) bool {
	return errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrOverloaded)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
