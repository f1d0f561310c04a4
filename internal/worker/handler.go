package worker

import (
	"context"
	"errors"
)

// JobHandler executes one kind of background job. The worker dispatches
// each claimed job to the handler whose Type matches the row's job_type.
type JobHandler interface {
	// Type returns the job type identifier this handler processes.
	Type() string

	// Handle runs the job. The payload is the raw JSON stored with the
	// job row. Returning a PermanentError marks the job failed without
	// further retries; any other error reschedules it with backoff.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a failure that retrying cannot fix, such as a
// payload referencing a deleted conversation.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err so the worker skips retries for it.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
