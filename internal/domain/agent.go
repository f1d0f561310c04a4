package domain

import (
	"time"

	"github.com/google/uuid"
)

// Custom agent parameter bounds.
const (
	AgentMinTemperature = 0.0
	AgentMaxTemperature = 2.0
	AgentMinMaxTokens   = 256
	AgentMaxMaxTokens   = 4096

	AgentDefaultTemperature = 0.7
	AgentDefaultMaxTokens   = 2048
)

// CustomAgent is a tenant-owned AI configuration: a system prompt plus model
// parameters. Agents are soft-deleted via the Active flag; the custom_ais
// quota counts active agents, so deactivating one immediately frees a slot.
type CustomAgent struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks agent parameters against their allowed ranges.
func (a *CustomAgent) Validate() error {
	const op = "agent.validate"

	if a.Name == "" {
		return Invalid(op, "name is required")
	}
	if len(a.Name) > 100 {
		return Invalid(op, "name must be 100 characters or less")
	}
	if len(a.Description) > 500 {
		return Invalid(op, "description must be 500 characters or less")
	}
	if len(a.SystemPrompt) < 10 {
		return Invalid(op, "system prompt must be at least 10 characters")
	}
	if len(a.SystemPrompt) > 5000 {
		return Invalid(op, "system prompt must be 5000 characters or less")
	}
	if a.Temperature < AgentMinTemperature || a.Temperature > AgentMaxTemperature {
		return Invalid(op, "temperature must be between 0 and 2")
	}
	if a.MaxTokens < AgentMinMaxTokens || a.MaxTokens > AgentMaxMaxTokens {
		return Invalid(op, "max tokens must be between 256 and 4096")
	}
	return nil
}
