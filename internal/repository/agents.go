package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const agentColumns = `id, tenant_id, user_id, name, description, system_prompt, model, temperature, max_tokens, active, created_at, updated_at`

func scanAgent(scanner interface{ Scan(...interface{}) error }) (domain.CustomAgent, error) {
	var a domain.CustomAgent
	err := scanner.Scan(&a.ID, &a.TenantID, &a.UserID, &a.Name, &a.Description,
		&a.SystemPrompt, &a.Model, &a.Temperature, &a.MaxTokens, &a.Active,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAgentParams are the fields for a new custom agent.
type CreateAgentParams struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// CreateAgent inserts a new active custom agent.
func (q *Queries) CreateAgent(ctx context.Context, params CreateAgentParams) (domain.CustomAgent, error) {
	const query = `
		INSERT INTO custom_ais (tenant_id, user_id, name, description, system_prompt, model, temperature, max_tokens, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING ` + agentColumns
	return scanAgent(q.db.QueryRowContext(ctx, query,
		params.TenantID, params.UserID, params.Name, params.Description,
		params.SystemPrompt, params.Model, params.Temperature, params.MaxTokens))
}

// GetAgentByID fetches an agent regardless of its active flag.
func (q *Queries) GetAgentByID(ctx context.Context, id uuid.UUID) (domain.CustomAgent, error) {
	const query = `SELECT ` + agentColumns + ` FROM custom_ais WHERE id = $1`
	return scanAgent(q.db.QueryRowContext(ctx, query, id))
}

// GetActiveAgentByID fetches an agent only if it is active.
func (q *Queries) GetActiveAgentByID(ctx context.Context, id uuid.UUID) (domain.CustomAgent, error) {
	const query = `SELECT ` + agentColumns + ` FROM custom_ais WHERE id = $1 AND active`
	return scanAgent(q.db.QueryRowContext(ctx, query, id))
}

// ListActiveAgents returns a tenant's active agents, newest first.
func (q *Queries) ListActiveAgents(ctx context.Context, tenantID uuid.UUID) ([]domain.CustomAgent, error) {
	const query = `
		SELECT ` + agentColumns + ` FROM custom_ais
		WHERE tenant_id = $1 AND active
		ORDER BY created_at DESC`
	rows, err := q.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.CustomAgent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgentParams carry the updatable agent fields.
type UpdateAgentParams struct {
	ID           uuid.UUID
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// UpdateAgent replaces the agent's configuration.
func (q *Queries) UpdateAgent(ctx context.Context, params UpdateAgentParams) error {
	const query = `
		UPDATE custom_ais
		SET name = $2, description = $3, system_prompt = $4, model = $5,
		    temperature = $6, max_tokens = $7, updated_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, params.ID, params.Name, params.Description,
		params.SystemPrompt, params.Model, params.Temperature, params.MaxTokens)
	return err
}

// SetAgentActive flips the soft-delete flag. Deactivating immediately frees
// a custom_ais quota slot.
func (q *Queries) SetAgentActive(ctx context.Context, id uuid.UUID, active bool) error {
	const query = `UPDATE custom_ais SET active = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, active)
	return err
}
