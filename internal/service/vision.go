package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/ssrf"
)

// DefaultVisionModel is the Groq-hosted vision model used when no model is
// configured.
const DefaultVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"

// defaultVisionPrompt is used when the caller sends an image without a
// question.
const defaultVisionPrompt = "Describe this image in detail."

// =============================================================================
// Interface Definition
// =============================================================================

// AnalyzeImageParams are the inputs for one vision analysis.
type AnalyzeImageParams struct {
	TenantID uuid.NullUUID // Tenant scope; quota checks apply when set
	UserID   uuid.UUID
	ImageURL string
	Prompt   string // Question about the image, optional
}

// VisionService analyzes images through a vision-capable model. Calls follow
// the same quota-gated pattern as chat: check, call, log usage.
type VisionService interface {
	// AnalyzeImage validates the image URL, checks the tenant's daily
	// call allowance, and returns the model's description.
	AnalyzeImage(ctx context.Context, params AnalyzeImageParams) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

// VisionConfig tunes the vision service.
type VisionConfig struct {
	Model           string // Vision model id; empty uses DefaultVisionModel
	MaxTokens       int
	ProviderTimeout time.Duration
}

type visionService struct {
	guard    quota.Guard
	provider ai.Provider
	config   VisionConfig
	logger   *slog.Logger
}

// NewVisionService creates a new VisionService.
func NewVisionService(guard quota.Guard, provider ai.Provider, config VisionConfig, logger *slog.Logger) VisionService {
	if config.Model == "" {
		config.Model = DefaultVisionModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = domain.AgentDefaultMaxTokens
	}
	if config.ProviderTimeout == 0 {
		config.ProviderTimeout = DefaultProviderTimeout
	}
	return &visionService{
		guard:    guard,
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// AnalyzeImage runs one quota-gated vision call.
func (s *visionService) AnalyzeImage(ctx context.Context, params AnalyzeImageParams) (string, error) {
	const op = "VisionService.AnalyzeImage"

	// 1. The image URL is fetched by the provider, so it gets the same
	// egress validation as any outbound fetch.
	if err := ssrf.ValidateURL(params.ImageURL); err != nil {
		return "", err
	}

	// 2. Vision calls draw from the same daily allowance as chat.
	if params.TenantID.Valid {
		if err := s.guard.Check(ctx, params.TenantID.UUID, domain.ActionAPICallsPerDay); err != nil {
			return "", err
		}
	}

	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	// 3. Call the vision model.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ProviderTimeout)
	defer cancel()
	reply, err := s.provider.Complete(callCtx, ai.ChatRequest{
		Model: s.config.Model,
		Messages: []ai.Message{{
			Role:     ai.RoleUser,
			Content:  prompt,
			ImageURL: params.ImageURL,
		}},
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return "", domain.Provider(err, op)
	}

	// 4. Record consumption. Best effort, never blocks the response.
	if params.TenantID.Valid {
		s.guard.LogUsage(ctx, params.TenantID.UUID, params.UserID, domain.ActionAPICallsPerDay)
	}

	return reply, nil
}

var _ VisionService = (*visionService)(nil)
