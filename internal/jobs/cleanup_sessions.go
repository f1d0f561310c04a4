package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kairoshq/kairos/internal/repository"
	"github.com/kairoshq/kairos/internal/worker"
)

// CleanupSessionsHandler removes expired session rows. Scheduled
// periodically so the sessions table does not accumulate dead tokens.
type CleanupSessionsHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewCleanupSessionsHandler creates a new handler for session cleanup jobs.
func NewCleanupSessionsHandler(queries *repository.Queries, logger *slog.Logger) *CleanupSessionsHandler {
	return &CleanupSessionsHandler{
		queries: queries,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *CleanupSessionsHandler) Type() string {
	return worker.JobTypeCleanupSessions
}

// Handle executes the session cleanup job.
func (h *CleanupSessionsHandler) Handle(ctx context.Context, _ []byte) error {
	deleted, err := h.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if deleted > 0 {
		h.logger.Info("expired sessions removed", "count", deleted)
	}
	return nil
}
