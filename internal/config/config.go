// Package config loads server and agent configuration from environment
// variables with validation and defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}

// envDuration overrides *d with the parsed value of the named variable, if set.
func envDuration(name string, d *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", name, v, err)
	}
	*d = parsed
	return nil
}
