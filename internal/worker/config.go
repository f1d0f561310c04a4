package worker

import (
	"fmt"
	"time"
)

// Config tunes the background job worker.
type Config struct {
	// Concurrency is how many goroutines poll and process jobs in
	// parallel. Title generation is cheap, so 2 is plenty for most
	// deployments.
	Concurrency int

	// PollInterval is how often an idle goroutine checks for new jobs.
	PollInterval time.Duration

	// JobTimeout bounds a single job run. The job's context is canceled
	// when it elapses and the attempt counts as a failure.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs before
	// giving up during graceful shutdown.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age at which a 'running' job is assumed
	// orphaned by a crashed worker and recovered on startup.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the defaults used when settings are absent.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects values that would make the worker spin or stall.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Concurrency > 100 {
		return fmt.Errorf("concurrency too high (max 100), got %d", c.Concurrency)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	}
	if c.JobTimeout < time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleJobThreshold < time.Minute {
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	}
	return nil
}
