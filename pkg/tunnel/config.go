package tunnel

import "time"

// YamuxConfig holds tunable parameters for yamux sessions.
type YamuxConfig struct {
	KeepAliveInterval      time.Duration
	ConnectionWriteTimeout time.Duration
}

// DefaultYamuxConfig returns yamux parameters suitable for tunnels that
// traverse cloud load balancers.
func DefaultYamuxConfig() YamuxConfig {
	return YamuxConfig{
		KeepAliveInterval:      30 * time.Second,
		ConnectionWriteTimeout: 10 * time.Second,
	}
}

// HeartbeatConfig controls the server-initiated heartbeat behavior.
type HeartbeatConfig struct {
	Interval      time.Duration // How often to send pings (default 10s).
	Timeout       time.Duration // Per-ping read/write deadline (default 5s).
	MissThreshold int           // Consecutive failures before closing session (default 3).
}

// AgentTunnelConfig holds tunable parameters for the tunnel agent.
type AgentTunnelConfig struct {
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	ForceCloseTimeout time.Duration
	Yamux             YamuxConfig
}

// DefaultAgentTunnelConfig returns the agent-side defaults.
func DefaultAgentTunnelConfig() AgentTunnelConfig {
	return AgentTunnelConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        60 * time.Second,
		ForceCloseTimeout: 30 * time.Second,
		Yamux:             DefaultYamuxConfig(),
	}
}

// ServerTunnelConfig holds tunable parameters for the tunnel server.
type ServerTunnelConfig struct {
	Heartbeat        HeartbeatConfig
	HandshakeTimeout time.Duration
	QueryTimeout     time.Duration
	Yamux            YamuxConfig
}

// DefaultServerTunnelConfig returns the server-side defaults.
func DefaultServerTunnelConfig() ServerTunnelConfig {
	return ServerTunnelConfig{
		Heartbeat: HeartbeatConfig{
			Interval:      10 * time.Second,
			Timeout:       5 * time.Second,
			MissThreshold: 3,
		},
		HandshakeTimeout: 10 * time.Second,
		QueryTimeout:     30 * time.Second,
		Yamux:            DefaultYamuxConfig(),
	}
}
