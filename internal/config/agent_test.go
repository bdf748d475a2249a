package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAgentEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TUNNEL_URL", "ws://localhost:8080/tunnel")
	t.Setenv("API_KEY", "lcv_test-key")
	t.Setenv("SQLITE_PATH", "/var/lib/litecove/app.db")
}

func TestLoadAgent_Valid(t *testing.T) {
	setAgentEnv(t)

	cfg, err := LoadAgent()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/tunnel", cfg.TunnelURL)
	assert.Equal(t, "lcv_test-key", cfg.APIKey)
	assert.Equal(t, "/var/lib/litecove/app.db", cfg.SQLitePath)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, 1000, cfg.MaxRows)
	assert.Equal(t, time.Second, cfg.Tunnel.InitialBackoff)
}

func TestLoadAgent_MissingTunnelURL(t *testing.T) {
	t.Setenv("API_KEY", "lcv_test-key")
	t.Setenv("SQLITE_PATH", "/tmp/app.db")

	_, err := LoadAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TUNNEL_URL")
}

func TestLoadAgent_MissingAPIKey(t *testing.T) {
	t.Setenv("TUNNEL_URL", "ws://localhost:8080/tunnel")
	t.Setenv("SQLITE_PATH", "/tmp/app.db")

	_, err := LoadAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")
}

func TestLoadAgent_MissingSQLitePath(t *testing.T) {
	t.Setenv("TUNNEL_URL", "ws://localhost:8080/tunnel")
	t.Setenv("API_KEY", "lcv_test-key")

	_, err := LoadAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQLITE_PATH")
}

func TestLoadAgent_ReadOnlyAndMaxRows(t *testing.T) {
	setAgentEnv(t)
	t.Setenv("READ_ONLY", "true")
	t.Setenv("MAX_ROWS", "50")

	cfg, err := LoadAgent()
	require.NoError(t, err)

	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 50, cfg.MaxRows)
}

func TestLoadAgent_InvalidMaxRows(t *testing.T) {
	setAgentEnv(t)
	t.Setenv("MAX_ROWS", "zero")

	_, err := LoadAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_ROWS")
}

func TestLoadAgent_BackoffOverrides(t *testing.T) {
	setAgentEnv(t)
	t.Setenv("RECONNECT_INITIAL_BACKOFF", "500ms")
	t.Setenv("RECONNECT_MAX_BACKOFF", "10s")
	t.Setenv("DRAIN_TIMEOUT", "45s")

	cfg, err := LoadAgent()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Tunnel.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.Tunnel.MaxBackoff)
	assert.Equal(t, 45*time.Second, cfg.Tunnel.ForceCloseTimeout)
}

func TestLoadAgent_InvalidBackoff(t *testing.T) {
	setAgentEnv(t)
	t.Setenv("RECONNECT_INITIAL_BACKOFF", "soon")

	_, err := LoadAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONNECT_INITIAL_BACKOFF")
}
