package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kairoshq/kairos/internal/repository"
)

// Job types. Each must match a registered JobHandler.Type().
const (
	JobTypeGenerateTitle   = "generate_title"
	JobTypeCleanupSessions = "cleanup_sessions"
)

// Scheduling priorities. Higher runs first.
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// GenerateTitlePayload identifies the conversation whose title to generate.
type GenerateTitlePayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// EnqueueOption customizes job scheduling parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.Priority = priority }
}

// WithMaxAttempts sets the retry budget.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.MaxAttempts = attempts }
}

// WithDelay defers the job's first run.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.ScheduledAt = time.Now().Add(delay) }
}

// EnqueueJob serializes payload and inserts a job row. Defaults: normal
// priority, three attempts, runs immediately.
func EnqueueJob(ctx context.Context, queries *repository.Queries, jobType string, payload interface{}, opts ...EnqueueOption) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueGenerateTitle queues title generation for a conversation,
// usually right after its first exchange is persisted so the provisional
// truncated title gets replaced shortly after.
func EnqueueGenerateTitle(ctx context.Context, queries *repository.Queries, conversationID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	payload := GenerateTitlePayload{ConversationID: conversationID}
	return EnqueueJob(ctx, queries, JobTypeGenerateTitle, payload, opts...)
}

// EnqueueCleanupSessions queues a sweep of expired sessions.
func EnqueueCleanupSessions(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeCleanupSessions, struct{}{}, opts...)
}
