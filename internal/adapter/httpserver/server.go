// Package httpserver exposes the admin API: database registry, API keys,
// schema browsing, dependency analysis, cascade simulation, schema mutations,
// and the agent tunnel endpoint.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/litecove/litecove/internal/core/port"
	"github.com/litecove/litecove/internal/core/service"
	itunnel "github.com/litecove/litecove/internal/tunnel"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr         string
	CORSOrigin         string
	RateLimitPerMinute float64
	ReadHeaderTimeout  time.Duration
	IdleTimeout        time.Duration
}

// Services bundles the dependencies the handlers need.
type Services struct {
	Graph        *service.GraphService
	Cycles       *service.CycleService
	Cascade      *service.CascadeService
	Mutations    *service.MutationService
	Introspector port.SchemaIntrospector

	Databases    port.DatabaseRepository
	Keys         port.APIKeyRepository
	MutationLogs port.MutationLogRepository
}

// Server wraps the HTTP server with chi routing, middleware, and graceful shutdown.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	cfg        Config

	svc        Services
	apiLimiter *keyRateLimiter
}

// New creates a new Server wired with the given dependencies.
func New(cfg Config, registry *itunnel.Registry, authenticator port.Authenticator, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		logger:     logger,
		cfg:        cfg,
		svc:        svc,
		apiLimiter: newKeyRateLimiter(cfg.RateLimitPerMinute),
	}

	s.setupRoutes(registry, authenticator)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// ListenAndServe starts the HTTP server and blocks until it stops.
// Returns nil if the server was shut down gracefully via Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
