package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/litecove/litecove/pkg/tunnel"
)

// AgentConfig holds configuration for the on-host agent.
type AgentConfig struct {
	TunnelURL  string
	APIKey     string
	SQLitePath string

	ReadOnly bool
	MaxRows  int

	Tunnel   tunnel.AgentTunnelConfig
	LogLevel slog.Level
}

// LoadAgent loads agent configuration from environment variables.
func LoadAgent() (*AgentConfig, error) {
	cfg := &AgentConfig{
		TunnelURL:  os.Getenv("TUNNEL_URL"),
		APIKey:     os.Getenv("API_KEY"),
		SQLitePath: os.Getenv("SQLITE_PATH"),
		MaxRows:    1000,
		Tunnel:     tunnel.DefaultAgentTunnelConfig(),
	}

	if cfg.TunnelURL == "" {
		return nil, fmt.Errorf("TUNNEL_URL environment variable is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable is required")
	}
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("SQLITE_PATH environment variable is required")
	}

	if v := os.Getenv("READ_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid READ_ONLY value %q: %w", v, err)
		}
		cfg.ReadOnly = b
	}

	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_ROWS value %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}

	if err := envDuration("RECONNECT_INITIAL_BACKOFF", &cfg.Tunnel.InitialBackoff); err != nil {
		return nil, err
	}
	if err := envDuration("RECONNECT_MAX_BACKOFF", &cfg.Tunnel.MaxBackoff); err != nil {
		return nil, err
	}
	if err := envDuration("DRAIN_TIMEOUT", &cfg.Tunnel.ForceCloseTimeout); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}
