// Package groq implements the chat provider for Llama models served by
// Groq's OpenAI-compatible API. It is also the vision path: messages that
// carry an image URL are sent as multimodal content parts.
package groq

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
)

// APIBaseURL is the chat completions endpoint for the Groq API
const APIBaseURL = "https://api.groq.com/openai/v1/chat/completions"

// Config contains configuration for the Groq provider
type Config struct {
	APIKey         string
	BaseURL        string // Defaults to APIBaseURL
	ProviderConfig ai.Config
}

// Provider implements ai.Provider using Groq's chat completions API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Groq provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
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
		logger: logger,
	}, nil
}

// Complete generates a reply from the requested model.
func (p *Provider) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	messages := make([]apiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, apiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, translateMessage(m))
	}

	body := apiRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := p.executeWithRetry(ctx, body)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ai.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// translateMessage converts one chat message. Plain text goes as a string
// content; messages with an image become multimodal content parts.
func translateMessage(m ai.Message) apiMessage {
	if m.ImageURL == "" {
		return apiMessage{Role: string(m.Role), Content: m.Content}
	}
	return apiMessage{
		Role: string(m.Role),
		ContentParts: []apiContentPart{
			{Type: "text", Text: m.Content},
			{Type: "image_url", ImageURL: &apiImageURL{URL: m.ImageURL}},
		},
	}
}

func (p *Provider) executeWithRetry(ctx context.Context, body apiRequest) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.executeRequest(ctx, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !ai.IsRetryable(err) {
			return nil, err
		}
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
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
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
	case http.StatusBadRequest:
		if errResp.Error.Code == "model_not_found" {
			return fmt.Errorf("%w: %s", ai.ErrModelNotFound, errResp.Error.Message)
		}
		return fmt.Errorf("%w: %s", ai.ErrInvalidRequest, errResp.Error.Message)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ai.ErrOverloaded
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// API request/response types

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
}

// apiMessage carries either a plain string content or multimodal parts.
type apiMessage struct {
	Role         string           `json:"role"`
	Content      string           `json:"-"`
	ContentParts []apiContentPart `json:"-"`
}

// MarshalJSON emits content as a string or as a parts array depending on
// which field is set.
func (m apiMessage) MarshalJSON() ([]byte, error) {
	if len(m.ContentParts) > 0 {
		return json.Marshal(struct {
			Role    string           `json:"role"`
			Content []apiContentPart `json:"content"`
		}{m.Role, m.ContentParts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Content})
}

// UnmarshalJSON accepts the plain string form used in responses.
func (m *apiMessage) UnmarshalJSON(data []byte) error {
	var plain struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	m.Role = plain.Role
	m.Content = plain.Content
	return nil
}

type apiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *apiImageURL `json:"image_url,omitempty"`
}

type apiImageURL struct {
	URL string `json:"url"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
}

type apiChoice struct {
	Index        int        `json:"index"`
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
