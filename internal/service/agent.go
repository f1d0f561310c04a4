package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreateAgentParams are the caller-supplied fields for a new custom agent.
// Zero Temperature and MaxTokens take the domain defaults.
type CreateAgentParams struct {
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// UpdateAgentParams are the updatable agent fields.
type UpdateAgentParams struct {
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// AgentStore is the persistence surface the agent service needs.
// Implemented by *repository.Queries.
type AgentStore interface {
	CreateAgent(ctx context.Context, params repository.CreateAgentParams) (domain.CustomAgent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (domain.CustomAgent, error)
	GetActiveAgentByID(ctx context.Context, id uuid.UUID) (domain.CustomAgent, error)
	ListActiveAgents(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomAgent, error)
	UpdateAgent(ctx context.Context, params repository.UpdateAgentParams) error
	SetAgentActive(ctx context.Context, id uuid.UUID, active bool) error
}

// AgentService defines operations for tenant-owned custom agents.
type AgentService interface {
	// Create validates and creates an active agent. Active agents count
	// against the tenant's custom_ais quota, checked before creation.
	Create(ctx context.Context, tenantID, userID uuid.UUID, params CreateAgentParams) (*domain.CustomAgent, error)

	// GetByID retrieves an active agent scoped to the tenant.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.CustomAgent, error)

	// List returns the tenant's active agents, newest first.
	List(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomAgent, error)

	// Update replaces an agent's configuration.
	Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateAgentParams) (*domain.CustomAgent, error)

	// Deactivate soft-deletes an agent, immediately freeing its quota
	// slot. Deactivating an already inactive agent is a no-op.
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type agentService struct {
	store  AgentStore
	guard  quota.Guard
	logger *slog.Logger
}

// NewAgentService creates a new AgentService.
func NewAgentService(store AgentStore, guard quota.Guard, logger *slog.Logger) AgentService {
	return &agentService{
		store:  store,
		guard:  guard,
		logger: logger,
	}
}

// Create validates and creates an active agent.
func (s *agentService) Create(ctx context.Context, tenantID, userID uuid.UUID, params CreateAgentParams) (*domain.CustomAgent, error) {
	const op = "AgentService.Create"

	// 1. Check the standing quota before doing any work.
	if err := s.guard.Check(ctx, tenantID, domain.ActionCustomAgents); err != nil {
		return nil, err
	}

	// 2. Apply defaults and validate.
	if params.Temperature == 0 {
		params.Temperature = domain.AgentDefaultTemperature
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = domain.AgentDefaultMaxTokens
	}
	agent := domain.CustomAgent{
		TenantID:     tenantID,
		UserID:       userID,
		Name:         strings.TrimSpace(params.Name),
		Description:  strings.TrimSpace(params.Description),
		SystemPrompt: params.SystemPrompt,
		Model:        params.Model,
		Temperature:  params.Temperature,
		MaxTokens:    params.MaxTokens,
	}
	if err := agent.Validate(); err != nil {
		return nil, err
	}

	// 3. Persist.
	created, err := s.store.CreateAgent(ctx, repository.CreateAgentParams{
		TenantID:     tenantID,
		UserID:       userID,
		Name:         agent.Name,
		Description:  agent.Description,
		SystemPrompt: agent.SystemPrompt,
		Model:        agent.Model,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create agent")
	}

	s.logger.Info("agent created",
		slog.String("agent_id", created.ID.String()),
		slog.String("tenant_id", tenantID.String()))

	return &created, nil
}

// GetByID retrieves an active agent scoped to the tenant.
func (s *agentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.CustomAgent, error) {
	const op = "AgentService.GetByID"

	agent, err := s.store.GetActiveAgentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "agent")
		}
		return nil, domain.Internal(err, op, "Failed to get agent")
	}
	if agent.TenantID != tenantID {
		return nil, domain.NotFound(op, "agent")
	}
	return &agent, nil
}

// List returns the tenant's active agents.
func (s *agentService) List(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomAgent, error) {
	const op = "AgentService.List"

	agents, err := s.store.ListActiveAgents(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list agents")
	}
	return agents, nil
}

// Update replaces an agent's configuration.
func (s *agentService) Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateAgentParams) (*domain.CustomAgent, error) {
	const op = "AgentService.Update"

	// 1. Load and scope-check the existing agent.
	existing, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	// 2. Validate the new configuration.
	updated := *existing
	updated.Name = strings.TrimSpace(params.Name)
	updated.Description = strings.TrimSpace(params.Description)
	updated.SystemPrompt = params.SystemPrompt
	updated.Model = params.Model
	updated.Temperature = params.Temperature
	updated.MaxTokens = params.MaxTokens
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	// 3. Persist.
	err = s.store.UpdateAgent(ctx, repository.UpdateAgentParams{
		ID:           id,
		Name:         updated.Name,
		Description:  updated.Description,
		SystemPrompt: updated.SystemPrompt,
		Model:        updated.Model,
		Temperature:  updated.Temperature,
		MaxTokens:    updated.MaxTokens,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to update agent")
	}
	return &updated, nil
}

// Deactivate soft-deletes an agent.
func (s *agentService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	const op = "AgentService.Deactivate"

	agent, err := s.store.GetAgentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "agent")
		}
		return domain.Internal(err, op, "Failed to get agent")
	}
	if agent.TenantID != tenantID {
		return domain.NotFound(op, "agent")
	}
	if !agent.Active {
		return nil
	}

	if err := s.store.SetAgentActive(ctx, id, false); err != nil {
		return domain.Internal(err, op, "Failed to deactivate agent")
	}

	s.logger.Info("agent deactivated",
		slog.String("agent_id", id.String()),
		slog.String("tenant_id", tenantID.String()))

	return nil
}

var _ AgentService = (*agentService)(nil)
