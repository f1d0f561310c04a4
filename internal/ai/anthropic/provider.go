// Package anthropic implements the chat provider for Anthropic's Claude
// models, including the model fallback chain and the memory tool loop.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/ai/memory"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// MemoryToolType is the typed tool identifier for the memory tool
	MemoryToolType = "memory_20250818"

	// MemoryToolName is the tool name the model calls
	MemoryToolName = "memory"
)

// DefaultFallbackModels is the chain tried in order when the request names
// no model.
var DefaultFallbackModels = []string{
	"claude-sonnet-4-5",
	"claude-opus-4-1",
}

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	BaseURL        string // Defaults to APIBaseURL
	FallbackModels []string
	ProviderConfig ai.Config
}

// Provider implements ai.Provider using Anthropic's Messages API
type Provider struct {
	config Config
	client *http.Client
	memory *memory.Store
	logger *slog.Logger
}

// New creates a new Anthropic provider. The memory store may be nil, in
// which case requests never offer the memory tool.
func New(config Config, mem *memory.Store, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if len(config.FallbackModels) == 0 {
		config.FallbackModels = DefaultFallbackModels
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		memory: mem,
		logger: logger,
	}, nil
}

// Complete generates a reply. When the request names no model, the
// fallback chain is walked in order; an explicitly requested model is used
// as-is, so a bad model surfaces as an error instead of a silent answer
// from a different model.
func (p *Provider) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	var lastErr error

	for _, model := range p.modelChain(req.Model) {
		text, err := p.completeWithModel(ctx, model, req)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !ai.ShouldFallback(err) {
			return "", err
		}
		p.logger.Warn("Model unavailable, trying fallback", "model", model, "error", err)
	}

	return "", ai.WrapError("complete", lastErr)
}

// modelChain pins an explicit request to that single model; only
// unspecified requests walk the fallback chain.
func (p *Provider) modelChain(requested string) []string {
	if requested != "" {
		return []string{requested}
	}
	return p.config.FallbackModels
}

// completeWithModel runs the completion against one model. At most one
// memory tool round per turn: the tool results are sent back once and the
// follow-up answer is final.
func (p *Provider) completeWithModel(ctx context.Context, model string, req ai.ChatRequest) (string, error) {
	messages := make([]apiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, apiMessage{
			Role:    string(m.Role),
			Content: []apiContent{{Type: "text", Text: m.Content}},
		})
	}

	body := apiRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages:    messages,
	}
	if req.EnableMemory && p.memory != nil {
		body.Tools = []apiTool{{Type: MemoryToolType, Name: MemoryToolName}}
	}

	resp, err := p.executeWithRetry(ctx, body)
	if err != nil {
		return "", err
	}

	if resp.StopReason == "tool_use" {
		results, err := p.runMemoryCommands(resp)
		if err != nil {
			return "", err
		}
		body.Messages = append(body.Messages,
			apiMessage{Role: "assistant", Content: resp.Content},
			apiMessage{Role: "user", Content: results},
		)
		resp, err = p.executeWithRetry(ctx, body)
		if err != nil {
			return "", err
		}
	}

	return extractText(resp)
}

// runMemoryCommands executes every memory tool call in the response and
// builds the tool_result blocks for the follow-up turn. Command failures
// are reported to the model as tool errors, not surfaced to the caller.
func (p *Provider) runMemoryCommands(resp *apiResponse) ([]apiContent, error) {
	var results []apiContent
	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != MemoryToolName {
			continue
		}

		var cmd memory.Command
		if err := json.Unmarshal(block.Input, &cmd); err != nil {
			return nil, fmt.Errorf("decode memory command: %w", err)
		}

		output, err := p.memory.Execute(cmd)
		result := apiContent{Type: "tool_result", ToolUseID: block.ID}
		if err != nil {
			p.logger.Warn("Memory command failed", "command", cmd.Command, "error", err)
			result.Content = err.Error()
			result.IsError = true
		} else {
			result.Content = output
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("tool_use response carried no memory calls")
	}
	return results, nil
}

// executeWithRetry executes a request with exponential backoff on
// transient errors.
func (p *Provider) executeWithRetry(ctx context.Context, body apiRequest) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.executeRequest(ctx, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !ai.IsRetryable(err) {
			return nil, err
		}

		// Don't retry if we've exhausted attempts
		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(ctx context.Context, body apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, ai.ErrOverloaded
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(resp.StatusCode, respBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors
func mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.ErrUnauthorized
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ai.ErrModelNotFound, errResp.Error.Message)
	case http.StatusTooManyRequests:
		return ai.ErrRateLimited
	case http.StatusRequestTimeout:
		return ai.ErrTimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "not_found_error" {
			return fmt.Errorf("%w: %s", ai.ErrModelNotFound, errResp.Error.Message)
		}
		return fmt.Errorf("%w: %s", ai.ErrInvalidRequest, errResp.Error.Message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return ai.ErrOverloaded
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// extractText pulls the concatenated text blocks out of a final response.
func extractText(resp *apiResponse) (string, error) {
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

// API request/response types

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Tools       []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use fields (responses)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result fields (requests)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type apiTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type apiResponse struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	Role       string       `json:"role"`
	Content    []apiContent `json:"content"`
	Model      string       `json:"model"`
	StopReason string       `json:"stop_reason"`
	Usage      apiUsage     `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
