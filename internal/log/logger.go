// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Setup installs a JSON logger at the given level as the process default.
// Unknown levels fall back to INFO. Loggers derived before Setup keep their
// old handler, so derive after Setup.
func Setup(level string) {
	mu.Lock()
	defer mu.Unlock()
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, installing the INFO default when Setup
// has not run yet.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(logger)
	}
	return logger
}

// WithComponent tags a derived logger with the subsystem name.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithRun tags a derived logger with a test run id.
func WithRun(id string) *slog.Logger {
	return Get().With(slog.String("run_id", id))
}
