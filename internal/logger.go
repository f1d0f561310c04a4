package internal

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process-wide slog logger. Development gets the
// human-readable text handler; everything else emits JSON for log
// aggregation.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	if env == "development" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
