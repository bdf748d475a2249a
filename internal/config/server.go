package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/litecove/litecove/pkg/tunnel"
)

// ServerConfig holds configuration for the control plane server. Exactly one
// of PostgresURL (store-backed auth and registry) or StaticKeys (fixed
// token-to-database map, no metadata store) must be set.
type ServerConfig struct {
	ListenAddr  string
	PostgresURL string
	StaticKeys  map[string]uuid.UUID

	CORSOrigin         string
	RateLimitPerMinute float64
	ReadHeaderTimeout  time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration

	Tunnel   tunnel.ServerTunnelConfig
	LogLevel slog.Level
}

// LoadServer loads server configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		ListenAddr:         ":8080",
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		CORSOrigin:         os.Getenv("CORS_ORIGIN"),
		RateLimitPerMinute: 300,
		ReadHeaderTimeout:  5 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		Tunnel:             tunnel.DefaultServerTunnelConfig(),
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("STATIC_API_KEYS"); v != "" {
		keys, err := parseStaticKeys(v)
		if err != nil {
			return nil, err
		}
		cfg.StaticKeys = keys
	}

	if cfg.PostgresURL == "" && len(cfg.StaticKeys) == 0 {
		return nil, fmt.Errorf("either POSTGRES_URL or STATIC_API_KEYS is required")
	}
	if cfg.PostgresURL != "" && len(cfg.StaticKeys) > 0 {
		return nil, fmt.Errorf("POSTGRES_URL and STATIC_API_KEYS are mutually exclusive")
	}

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE value %q: must be a positive number", v)
		}
		cfg.RateLimitPerMinute = f
	}

	if err := envDuration("READ_HEADER_TIMEOUT", &cfg.ReadHeaderTimeout); err != nil {
		return nil, err
	}
	if err := envDuration("IDLE_TIMEOUT", &cfg.IdleTimeout); err != nil {
		return nil, err
	}
	if err := envDuration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if err := envDuration("HEARTBEAT_INTERVAL", &cfg.Tunnel.Heartbeat.Interval); err != nil {
		return nil, err
	}
	if err := envDuration("HEARTBEAT_TIMEOUT", &cfg.Tunnel.Heartbeat.Timeout); err != nil {
		return nil, err
	}
	if err := envDuration("HANDSHAKE_TIMEOUT", &cfg.Tunnel.HandshakeTimeout); err != nil {
		return nil, err
	}
	if err := envDuration("QUERY_TIMEOUT", &cfg.Tunnel.QueryTimeout); err != nil {
		return nil, err
	}

	if v := os.Getenv("HEARTBEAT_MISS_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid HEARTBEAT_MISS_THRESHOLD value %q: must be a positive integer", v)
		}
		cfg.Tunnel.Heartbeat.MissThreshold = n
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

// parseStaticKeys parses "token=databaseUUID,token2=databaseUUID" into a
// token-to-database map. Every static key must be scoped to one database.
func parseStaticKeys(raw string) (map[string]uuid.UUID, error) {
	keys := make(map[string]uuid.UUID)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, dbRaw, ok := strings.Cut(entry, "=")
		if !ok || token == "" {
			return nil, fmt.Errorf("invalid STATIC_API_KEYS entry %q: expected token=databaseID", entry)
		}
		dbID, err := uuid.Parse(strings.TrimSpace(dbRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid STATIC_API_KEYS database id in %q: %w", entry, err)
		}
		keys[strings.TrimSpace(token)] = dbID
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("STATIC_API_KEYS must contain at least one key")
	}
	return keys, nil
}
