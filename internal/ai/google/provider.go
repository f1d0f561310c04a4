// Package google implements the chat provider for Google's Gemini models.
package google

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

// APIBaseURL is the base URL for the Gemini API
const APIBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config contains configuration for the Google provider
type Config struct {
	APIKey         string
	BaseURL        string // Defaults to APIBaseURL
	ProviderConfig ai.Config
}

// Provider implements ai.Provider using the Gemini generateContent API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Google provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("google API key is required")
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

// Complete generates a reply from the requested Gemini model.
func (p *Provider) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	body := apiRequest{
		Contents: translateHistory(req.Messages),
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &apiContent{Parts: []apiPart{{Text: req.System}}}
	}

	resp, err := p.executeWithRetry(ctx, req.Model, body)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ai.ErrEmptyResponse
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

// translateHistory converts chat messages to Gemini contents. Gemini names
// the assistant role "model".
func translateHistory(messages []ai.Message) []apiContent {
	contents := make([]apiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == ai.RoleAssistant {
			role = "model"
		}
		contents = append(contents, apiContent{
			Role:  role,
			Parts: []apiPart{{Text: m.Content}},
		})
	}
	return contents
}

func (p *Provider) executeWithRetry(ctx context.Context, model string, body apiRequest) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.executeRequest(ctx, model, body)
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

func (p *Provider) executeRequest(ctx context.Context, model string, body apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.config.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)

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
	SystemInstruction *apiContent       `json:"system_instruction,omitempty"`
	Contents          []apiContent      `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type apiResponse struct {
	Candidates []apiCandidate `json:"candidates"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
