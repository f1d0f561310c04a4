package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is one row in the background job queue.
type Job struct {
	ID          uuid.UUID
	JobType     string
	Payload     json.RawMessage
	Status      string
	Priority    int32
	Attempts    int32
	MaxAttempts int32
	LastError   sql.NullString
	ScheduledAt time.Time
	StartedAt   sql.NullTime
	CompletedAt sql.NullTime
	CreatedAt   time.Time
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts, last_error, scheduled_at, started_at, completed_at, created_at`

// EnqueueJobParams are the fields for a new queued job.
type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	const query = `
		INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + jobColumns
	var j Job
	err := q.db.QueryRowContext(ctx, query,
		params.JobType, params.Payload, params.Priority, params.MaxAttempts, params.ScheduledAt).
		Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts,
			&j.MaxAttempts, &j.LastError, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt)
	return j, err
}

// DequeueJob locks and returns the next runnable job. SKIP LOCKED lets
// concurrent workers dequeue without blocking each other. Returns
// sql.ErrNoRows when the queue is empty.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	const query = `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status = '` + JobStatusPending + `' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`
	var j Job
	err := q.db.QueryRowContext(ctx, query).
		Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts,
			&j.MaxAttempts, &j.LastError, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt)
	return j, err
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE jobs
		SET status = '` + JobStatusRunning + `', attempts = attempts + 1, started_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobCompleted marks a job as successfully completed.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE jobs
		SET status = '` + JobStatusCompleted + `', completed_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobFailedParams carry the failure details for a job.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	Permanent    bool
}

// UpdateJobFailed records a failure. Retryable failures below the attempt
// limit are rescheduled with linear backoff; the rest are marked failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	const query = `
		UPDATE jobs
		SET last_error = $2,
		    status = CASE
		        WHEN $3 OR attempts >= max_attempts THEN '` + JobStatusFailed + `'
		        ELSE '` + JobStatusPending + `'
		    END,
		    scheduled_at = CASE
		        WHEN $3 OR attempts >= max_attempts THEN scheduled_at
		        ELSE now() + (attempts * interval '30 seconds')
		    END
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, params.ID, params.ErrorMessage, params.Permanent)
	return err
}

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending. Handles workers that crashed mid-job.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	const query = `
		UPDATE jobs
		SET status = '` + JobStatusPending + `', started_at = NULL
		WHERE status = '` + JobStatusRunning + `'
		  AND started_at < now() - ($1 * interval '1 second')`
	res, err := q.db.ExecContext(ctx, query, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
