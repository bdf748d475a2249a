package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_StoreBacked(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "postgres://localhost/litecove", cfg.PostgresURL)
	assert.Empty(t, cfg.StaticKeys)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Tunnel.Heartbeat.Interval)
	assert.Equal(t, 3, cfg.Tunnel.Heartbeat.MissThreshold)
}

func TestLoadServer_StaticKeys(t *testing.T) {
	db1 := uuid.New()
	db2 := uuid.New()
	t.Setenv("STATIC_API_KEYS", "lcv_one="+db1.String()+" , lcv_two="+db2.String())

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Empty(t, cfg.PostgresURL)
	assert.Equal(t, db1, cfg.StaticKeys["lcv_one"])
	assert.Equal(t, db2, cfg.StaticKeys["lcv_two"])
}

func TestLoadServer_MissingAuthSource(t *testing.T) {
	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_URL or STATIC_API_KEYS")
}

func TestLoadServer_BothAuthSources(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("STATIC_API_KEYS", "lcv_one="+uuid.New().String())

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoadServer_StaticKeyWithoutDatabase(t *testing.T) {
	t.Setenv("STATIC_API_KEYS", "lcv_one")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token=databaseID")
}

func TestLoadServer_StaticKeyBadDatabaseID(t *testing.T) {
	t.Setenv("STATIC_API_KEYS", "lcv_one=not-a-uuid")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database id")
}

func TestLoadServer_CustomListenAddr(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoadServer_TunnelOverrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("HEARTBEAT_INTERVAL", "2s")
	t.Setenv("HEARTBEAT_MISS_THRESHOLD", "5")
	t.Setenv("QUERY_TIMEOUT", "45s")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Tunnel.Heartbeat.Interval)
	assert.Equal(t, 5, cfg.Tunnel.Heartbeat.MissThreshold)
	assert.Equal(t, 45*time.Second, cfg.Tunnel.QueryTimeout)
}

func TestLoadServer_InvalidRateLimit(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-10")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_PER_MINUTE")
}

func TestLoadServer_LogLevel(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadServer_InvalidLogLevel(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/litecove")
	t.Setenv("LOG_LEVEL", "bogus")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}
