package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kairoshq/kairos/internal/metrics"
	"github.com/kairoshq/kairos/internal/repository"
)

// Worker polls the jobs table and dispatches claimed jobs to registered
// handlers. The queue lives in Postgres, claimed with FOR UPDATE SKIP
// LOCKED, so running several workers against the same database is safe.
type Worker struct {
	db       *sql.DB
	queries  *repository.Queries
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New validates config and builds a Worker. Call Register for each job
// type, then Start.
func New(db *sql.DB, queries *repository.Queries, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		db:       db,
		queries:  queries,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a handler. Registering the same type twice replaces the
// earlier handler. Must be called before Start.
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("Overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
	w.logger.Debug("Registered job handler", "job_type", jobType)
}

// Start recovers jobs orphaned by earlier crashes, then launches the
// polling goroutines.
func (w *Worker) Start(ctx context.Context) {
	if err := w.recoverStaleJobs(ctx); err != nil {
		w.logger.Error("Failed to recover stale jobs", "error", err)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.poll(ctx, i+1)
	}

	w.logger.Info("Worker started", "concurrency", w.config.Concurrency)
}

// Stop signals the polling goroutines and waits up to ShutdownTimeout
// for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, some jobs may still be running")
	}
}

// recoverStaleJobs resets 'running' jobs older than StaleJobThreshold
// back to pending. Those rows belong to workers that died mid-job.
func (w *Worker) recoverStaleJobs(ctx context.Context) error {
	count, err := w.queries.RecoverStaleJobs(ctx, w.config.StaleJobThreshold.Seconds())
	if err != nil {
		return fmt.Errorf("recover stale jobs: %w", err)
	}

	if count > 0 {
		w.logger.Warn("Recovered stale jobs", "count", count, "threshold", w.config.StaleJobThreshold)
	}

	return nil
}

// poll is one goroutine's loop: tick, try a job, repeat until stopped.
func (w *Worker) poll(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)
	logger.Debug("Worker started")

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			logger.Debug("Worker stopping")
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx, logger); err != nil {
				if err == sql.ErrNoRows {
					// Empty queue, wait for the next tick.
					continue
				}
				logger.Error("Failed to process job", "error", err)
			}
		}
	}
}

// processNextJob claims one job inside a transaction, then runs it
// outside the transaction so long jobs don't hold locks. Returns
// sql.ErrNoRows when the queue is empty.
func (w *Worker) processNextJob(ctx context.Context, logger *slog.Logger) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := w.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		return err
	}

	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dequeue: %w", err)
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts+1)
	logger.Info("Processing job")

	if job.Attempts > 0 {
		metrics.JobRetried(job.JobType)
	}

	started := time.Now()
	if err := w.executeJob(ctx, job); err != nil {
		logger.Error("Job failed", "error", err)
		metrics.JobFailed(job.JobType)
		w.markJobFailed(ctx, job.ID, err)
		return fmt.Errorf("execute job: %w", err)
	}

	metrics.JobCompleted(job.JobType, time.Since(started))
	logger.Info("Job completed")
	if err := w.queries.UpdateJobCompleted(ctx, job.ID); err != nil {
		logger.Error("Failed to mark job as completed", "error", err)
		return fmt.Errorf("update job completed: %w", err)
	}

	return nil
}

// executeJob dispatches to the registered handler under JobTimeout.
func (w *Worker) executeJob(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		// Retrying cannot conjure a handler.
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job.Payload)
}

// markJobFailed records the failure. Permanent errors and exhausted
// attempts end in 'failed'; everything else is rescheduled with backoff
// by the update query.
func (w *Worker) markJobFailed(ctx context.Context, jobID uuid.UUID, jobErr error) {
	permanent := IsPermanent(jobErr)
	if permanent {
		w.logger.Warn("Job failed with permanent error, will not retry", "job_id", jobID, "error", jobErr.Error())
	}

	params := repository.UpdateJobFailedParams{
		ID:           jobID,
		ErrorMessage: sql.NullString{String: jobErr.Error(), Valid: true},
		Permanent:    permanent,
	}

	if err := w.queries.UpdateJobFailed(ctx, params); err != nil {
		w.logger.Error("Failed to mark job as failed", "job_id", jobID, "error", err)
	}
}
