// Package tunnel implements the control-plane side of agent tunnels: the
// WebSocket accept endpoint, yamux session management, heartbeats, and
// query forwarding to connected agents.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/hashicorp/yamux"
	"github.com/litecove/litecove/internal/core/port"
	"github.com/litecove/litecove/pkg/tunnel"
)

// ErrNoTunnel is returned when no agent tunnel is connected for a given database.
var ErrNoTunnel = errors.New("no tunnel connected for database")

// Database status values written to the metadata store as agents come and go.
const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
)

// tunnelEntry holds a single agent tunnel and its per-database resources.
type tunnelEntry struct {
	databaseID   uuid.UUID
	yamuxSession *yamux.Session
	agentVersion string
	connectedAt  time.Time
	heartbeatCtx context.CancelFunc
}

// Registry manages multiple simultaneous agent tunnels keyed by database ID.
type Registry struct {
	logger        *slog.Logger
	authenticator port.Authenticator
	databases     port.DatabaseRepository
	cfg           tunnel.ServerTunnelConfig
	serverVersion string

	mu      sync.RWMutex
	tunnels map[uuid.UUID]*tunnelEntry
}

// NewRegistry creates a new multi-tunnel registry.
func NewRegistry(authenticator port.Authenticator, databases port.DatabaseRepository, cfg tunnel.ServerTunnelConfig, serverVersion string, logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		authenticator: authenticator,
		databases:     databases,
		cfg:           cfg,
		serverVersion: serverVersion,
		tunnels:       make(map[uuid.UUID]*tunnelEntry),
	}
}

// Connected returns true if a tunnel is connected for the given database.
func (r *Registry) Connected(databaseID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tunnels[databaseID]
	return ok
}

// AnyConnected returns true if at least one tunnel is active.
func (r *Registry) AnyConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tunnels) > 0
}

// Forward sends a single SQL statement through the tunnel for the given
// database and waits for the agent's result. Each call uses its own yamux
// stream; concurrent calls multiplex over the same session.
func (r *Registry) Forward(ctx context.Context, databaseID uuid.UUID, sql string) (*tunnel.Result, error) {
	r.mu.RLock()
	entry, ok := r.tunnels[databaseID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTunnel, databaseID)
	}

	stream, err := entry.yamuxSession.Open()
	if err != nil {
		return nil, fmt.Errorf("open query stream: %w", err)
	}
	defer stream.Close() //nolint:errcheck

	deadline := time.Now().Add(r.cfg.QueryTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := stream.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set query deadline: %w", err)
	}

	q := &tunnel.Query{
		RequestID: uuid.NewString(),
		SQL:       sql,
	}
	if err := tunnel.WriteQuery(stream, q); err != nil {
		return nil, fmt.Errorf("write query: %w", err)
	}

	res, err := tunnel.ReadResult(stream)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	return res, nil
}

// HandleTunnel is the HTTP handler for the /tunnel WebSocket endpoint.
// It authenticates the agent, determines which database it represents,
// and manages the yamux session lifecycle.
func (r *Registry) HandleTunnel(w http.ResponseWriter, req *http.Request) {
	authResult := r.authenticate(req)
	if authResult == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Agent API key must be linked to exactly one database.
	if len(authResult.DatabaseIDs) == 0 {
		http.Error(w, "api key has no database assigned", http.StatusForbidden)
		return
	}
	if len(authResult.DatabaseIDs) > 1 {
		http.Error(w, "agent api key must be linked to exactly one database", http.StatusForbidden)
		return
	}

	databaseID := authResult.DatabaseIDs[0]

	// Check for duplicate tunnel.
	r.mu.RLock()
	_, exists := r.tunnels[databaseID]
	r.mu.RUnlock()
	if exists {
		http.Error(w, "tunnel already connected for this database", http.StatusConflict)
		return
	}

	wsConn, err := websocket.Accept(w, req, nil)
	if err != nil {
		r.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer wsConn.CloseNow() //nolint:errcheck

	netConn := websocket.NetConn(req.Context(), wsConn, websocket.MessageBinary)

	// Control plane is yamux CLIENT: it opens streams to the agent.
	session, err := yamux.Client(netConn, tunnel.NewYamuxConfig(r.cfg.Yamux))
	if err != nil {
		r.logger.Error("yamux client creation failed", slog.String("error", err.Error()))
		return
	}
	defer session.Close() //nolint:errcheck

	ack, err := r.performHandshake(session)
	if err != nil {
		r.logger.Error("handshake failed", slog.String("error", err.Error()))
		return
	}
	if ack.Error != "" {
		r.logger.Error("agent rejected handshake", slog.String("error", ack.Error))
		return
	}

	r.logger.Info("handshake completed",
		slog.String("database_id", databaseID.String()),
		slog.Uint64("protocol_version", uint64(ack.ProtocolVersion)),
		slog.String("agent_version", ack.AgentVersion),
	)

	heartbeatCtx, heartbeatCancel := context.WithCancel(req.Context())
	defer heartbeatCancel()
	go r.runHeartbeat(heartbeatCtx, session, databaseID)

	entry := &tunnelEntry{
		databaseID:   databaseID,
		yamuxSession: session,
		agentVersion: ack.AgentVersion,
		connectedAt:  time.Now(),
		heartbeatCtx: heartbeatCancel,
	}

	r.mu.Lock()
	r.tunnels[databaseID] = entry
	r.mu.Unlock()

	r.setStatus(req.Context(), databaseID, statusConnected)
	r.logger.Info("agent connected", slog.String("database_id", databaseID.String()))

	// Block until the agent disconnects.
	<-session.CloseChan()

	r.mu.Lock()
	delete(r.tunnels, databaseID)
	r.mu.Unlock()

	r.setStatus(context.WithoutCancel(req.Context()), databaseID, statusDisconnected)
	r.logger.Info("agent disconnected", slog.String("database_id", databaseID.String()))
}

// runHeartbeat sends pings at the configured interval and closes the session
// if too many consecutive pings fail.
func (r *Registry) runHeartbeat(ctx context.Context, session *yamux.Session, databaseID uuid.UUID) {
	ticker := time.NewTicker(r.cfg.Heartbeat.Interval)
	defer ticker.Stop()

	misses := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rtt, draining, err := r.sendPing(session)
			if err != nil {
				misses++
				r.logger.Warn("heartbeat ping failed",
					slog.String("database_id", databaseID.String()),
					slog.Int("misses", misses),
					slog.Int("threshold", r.cfg.Heartbeat.MissThreshold),
					slog.String("error", err.Error()),
				)
				if misses >= r.cfg.Heartbeat.MissThreshold {
					r.logger.Error("heartbeat miss threshold exceeded, closing session",
						slog.String("database_id", databaseID.String()),
					)
					session.Close() //nolint:errcheck
					return
				}
				continue
			}

			misses = 0
			r.logger.Debug("heartbeat pong received",
				slog.String("database_id", databaseID.String()),
				slog.Duration("rtt", rtt),
				slog.Bool("draining", draining),
			)
		}
	}
}

// sendPing opens a stream, writes a Ping, reads a Pong, and returns RTT and draining status.
func (r *Registry) sendPing(session *yamux.Session) (rtt time.Duration, draining bool, err error) {
	stream, err := session.Open()
	if err != nil {
		return 0, false, fmt.Errorf("open heartbeat stream: %w", err)
	}
	defer stream.Close() //nolint:errcheck

	deadline := time.Now().Add(r.cfg.Heartbeat.Timeout)
	if err := stream.SetDeadline(deadline); err != nil {
		return 0, false, fmt.Errorf("set deadline: %w", err)
	}

	now := time.Now()
	ping := &tunnel.Ping{Timestamp: now.UnixNano()}
	if err := tunnel.WritePing(stream, ping); err != nil {
		return 0, false, fmt.Errorf("write ping: %w", err)
	}

	pong, err := tunnel.ReadPong(stream)
	if err != nil {
		return 0, false, fmt.Errorf("read pong: %w", err)
	}

	rtt = time.Since(now)
	return rtt, pong.Draining, nil
}

// performHandshake opens a yamux stream, writes a Handshake, and reads a HandshakeAck.
func (r *Registry) performHandshake(session *yamux.Session) (*tunnel.HandshakeAck, error) {
	stream, err := session.Open()
	if err != nil {
		return nil, fmt.Errorf("open handshake stream: %w", err)
	}
	defer stream.Close() //nolint:errcheck

	deadline := time.Now().Add(r.cfg.HandshakeTimeout)
	if err := stream.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set handshake deadline: %w", err)
	}

	h := &tunnel.Handshake{
		ProtocolVersion: tunnel.ProtocolVersion,
		ServerVersion:   r.serverVersion,
	}
	if err := tunnel.WriteHandshake(stream, h); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	ack, err := tunnel.ReadHandshakeAck(stream)
	if err != nil {
		return nil, fmt.Errorf("read handshake ack: %w", err)
	}

	return ack, nil
}

// setStatus records the agent connection state in the metadata store. Status
// writes are best effort; a store outage must not tear down a live tunnel.
func (r *Registry) setStatus(ctx context.Context, databaseID uuid.UUID, status string) {
	if r.databases == nil {
		return
	}
	if err := r.databases.UpdateDatabaseStatus(ctx, databaseID, status); err != nil {
		r.logger.Warn("failed to update database status",
			slog.String("database_id", databaseID.String()),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Registry) authenticate(req *http.Request) *port.AuthResult {
	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	result, err := r.authenticator.Authenticate(req.Context(), token)
	if err != nil {
		r.logger.Error("authentication error", slog.String("error", err.Error()))
		return nil
	}
	return result
}
