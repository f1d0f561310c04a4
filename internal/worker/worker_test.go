package worker

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func validConfig(mutate func(*Config)) Config {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", validConfig(nil), false},
		{"zero concurrency", validConfig(func(c *Config) { c.Concurrency = 0 }), true},
		{"excessive concurrency", validConfig(func(c *Config) { c.Concurrency = 101 }), true},
		{"sub-second poll interval", validConfig(func(c *Config) { c.PollInterval = 200 * time.Millisecond }), true},
		{"sub-second job timeout", validConfig(func(c *Config) { c.JobTimeout = 0 }), true},
		{"sub-second shutdown timeout", validConfig(func(c *Config) { c.ShutdownTimeout = 0 }), true},
		{"short stale threshold", validConfig(func(c *Config) { c.StaleJobThreshold = 30 * time.Second }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	base := errors.New("conversation deleted")

	if !IsPermanent(NewPermanentError(base)) {
		t.Error("direct permanent error should be detected")
	}
	if !IsPermanent(fmt.Errorf("handling job: %w", NewPermanentError(base))) {
		t.Error("wrapped permanent error should be detected")
	}
	if IsPermanent(base) {
		t.Error("plain error should not be permanent")
	}
	if IsPermanent(nil) {
		t.Error("nil error should not be permanent")
	}
}

func TestPermanentErrorUnwrap(t *testing.T) {
	base := errors.New("bad payload")
	perm := NewPermanentError(base)

	if !errors.Is(perm, base) {
		t.Error("errors.Is should see through PermanentError")
	}
	if perm.Error() != "bad payload" {
		t.Errorf("unexpected message: %q", perm.Error())
	}
}
