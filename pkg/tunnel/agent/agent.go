// Package agent implements the database-side end of the tunnel: an outbound
// WebSocket connection carrying a yamux server session, with handshake,
// heartbeat, and query stream handlers.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/hashicorp/yamux"
	"github.com/litecove/litecove/pkg/tunnel"
)

// QueryHandler executes one SQL statement on behalf of the control plane.
// Implementations report SQL failures inside the Result, not as Go errors.
type QueryHandler interface {
	HandleQuery(ctx context.Context, q *tunnel.Query) *tunnel.Result
}

// Agent connects to the control plane via WebSocket and serves query streams
// received through yamux.
type Agent struct {
	tunnelURL    string
	apiKey       string
	agentVersion string
	handler      QueryHandler
	logger       *slog.Logger
	cfg          tunnel.AgentTunnelConfig

	drainMu  sync.Mutex     // protects draining check + wg.Add atomicity
	wg       sync.WaitGroup // tracks in-flight handleStream goroutines
	draining atomic.Bool    // true when shutdown initiated
}

// NewAgent creates a new tunnel agent.
func NewAgent(tunnelURL, apiKey, agentVersion string, handler QueryHandler, cfg tunnel.AgentTunnelConfig, logger *slog.Logger) *Agent {
	return &Agent{
		tunnelURL:    tunnelURL,
		apiKey:       apiKey,
		agentVersion: agentVersion,
		handler:      handler,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run connects to the control plane and serves queries. It reconnects with
// exponential backoff on failure. Returns when ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	backoff := a.cfg.InitialBackoff

	for {
		err := a.connectAndServe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		a.logger.Warn("tunnel disconnected, reconnecting",
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, a.cfg.MaxBackoff)
	}
}

// Shutdown initiates a graceful shutdown. It sets the draining flag and waits
// for all in-flight handlers to complete. Returns nil if all handlers finish
// before ctx deadline, or ctx.Err() otherwise.
func (a *Agent) Shutdown(ctx context.Context) error {
	// Lock drainMu to ensure no new wg.Add calls can happen in the accept
	// loop after we set draining. This prevents a race between wg.Add and
	// wg.Wait when the counter is zero.
	a.drainMu.Lock()
	a.draining.Store(true)
	a.drainMu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectAndServe establishes a tunnel connection and serves until disconnected.
func (a *Agent) connectAndServe(ctx context.Context) error {
	session, connCtx, connCancel, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck // best-effort cleanup
	defer connCancel()

	a.logger.Info("tunnel connected")

	// When the parent context is cancelled, drain in-flight handlers then
	// close the session.
	a.watchForShutdown(ctx, session, connCancel)

	return a.acceptLoop(ctx, connCtx, session)
}

// dial establishes the WebSocket + yamux connection. Returns the yamux session,
// the connection-scoped context, and a cancel func for that context.
func (a *Agent) dial(ctx context.Context) (*yamux.Session, context.Context, context.CancelFunc, error) {
	a.logger.Info("connecting to tunnel server",
		slog.String("url", a.tunnelURL),
	)

	// Dial with parent context (respects cancellation during connection).
	wsConn, _, err := websocket.Dial(ctx, a.tunnelURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + a.apiKey},
		},
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("websocket dial: %w", err)
	}

	// Use a separate context for the connection lifetime so that cancelling
	// the parent ctx doesn't immediately tear down the WebSocket. This allows
	// in-flight handlers to finish during graceful shutdown.
	connCtx, connCancel := context.WithCancel(context.Background())

	netConn := websocket.NetConn(connCtx, wsConn, websocket.MessageBinary)

	// Agent is yamux SERVER, the control plane opens streams to us.
	session, err := yamux.Server(netConn, tunnel.NewYamuxConfig(a.cfg.Yamux))
	if err != nil {
		connCancel()
		wsConn.CloseNow() //nolint:errcheck
		return nil, nil, nil, fmt.Errorf("yamux server: %w", err)
	}

	return session, connCtx, connCancel, nil
}

// watchForShutdown starts a goroutine that drains in-flight handlers when ctx
// is cancelled, then closes the session.
func (a *Agent) watchForShutdown(ctx context.Context, session *yamux.Session, connCancel context.CancelFunc) {
	go func() {
		<-ctx.Done()
		a.drainMu.Lock()
		a.draining.Store(true)
		a.drainMu.Unlock()

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// All handlers drained gracefully.
		case <-time.After(a.cfg.ForceCloseTimeout):
			a.logger.Warn("force-closing tunnel: handlers did not drain in time")
		}

		session.Close() //nolint:errcheck
		connCancel()
	}()
}

// acceptLoop accepts yamux streams and dispatches them to handleStream.
// Returns when the session is closed or ctx is cancelled.
func (a *Agent) acceptLoop(ctx, connCtx context.Context, session *yamux.Session) error {
	for {
		stream, err := session.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("yamux accept: %w", err)
		}

		// Lock drainMu to ensure atomicity of the draining check + wg.Add,
		// preventing a race with the drain goroutine's wg.Wait.
		a.drainMu.Lock()
		if a.draining.Load() {
			a.drainMu.Unlock()
			// Still handle pings during drain (they report draining=true
			// to the server), but don't track in WaitGroup since the drain
			// goroutine may already be in wg.Wait.
			go a.handleStream(connCtx, stream)
			continue
		}
		a.wg.Add(1)
		a.drainMu.Unlock()

		go func() {
			defer a.wg.Done()
			a.handleStream(connCtx, stream)
		}()
	}
}
