package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/litecove/litecove/internal/core/port"
	itunnel "github.com/litecove/litecove/internal/tunnel"
)

func (s *Server) setupRoutes(registry *itunnel.Registry, authenticator port.Authenticator) {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	// Agent tunnel WebSocket endpoint. Connection attempts are rate limited
	// by IP so a misbehaving agent cannot hammer the handshake path.
	tunnelLimiter := newIPRateLimiter(s.cfg.RateLimitPerMinute)
	r.With(tunnelLimiter.Middleware).HandleFunc("/tunnel", registry.HandleTunnel)

	// Health probes
	r.Get("/health", s.handleHealth())
	r.Get("/ready", s.handleRegistryReady(registry))

	// Admin API
	r.Route("/api", func(api chi.Router) {
		if s.cfg.CORSOrigin != "" {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins:   []string{s.cfg.CORSOrigin},
				AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: false,
				MaxAge:           300,
			}))
		}
		api.Use(s.apiKeyAuth(authenticator))

		// Registry management requires an unscoped key.
		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdminKey)
			admin.Post("/databases", s.handleCreateDatabase())
			admin.Post("/keys", s.handleCreateKey())
			admin.Get("/keys", s.handleListKeys())
			admin.Delete("/keys/{id}", s.handleRevokeKey())
			admin.Get("/mutation-logs", s.handleListMutationLogs())
		})

		api.Get("/databases", s.handleListDatabases())

		// Per-database schema analysis and mutation routes.
		api.Route("/databases/{id}", func(db chi.Router) {
			db.Use(s.databaseScope)

			// Registered here rather than on the admin group: mounting this
			// subrouter shadows any sibling /databases/{id} pattern, so the
			// delete must live inside it, still gated on an unscoped key.
			db.With(s.requireAdminKey).Delete("/", s.handleDeleteDatabase())

			db.Get("/schema", s.handleSchema())
			db.Get("/graph", s.handleGraph())
			db.Get("/cycles", s.handleCycles())
			db.Post("/cycles/check", s.handleCycleCheck())
			db.Post("/simulate-delete", s.handleSimulateDelete())

			db.Route("/tables/{table}", func(tbl chi.Router) {
				tbl.Post("/columns", s.handleAddColumn())
				tbl.Patch("/columns/{column}", s.handleModifyColumn())
				tbl.Delete("/columns/{column}", s.handleDropColumn())
				tbl.Post("/foreign-keys", s.handleAddForeignKey())
				tbl.Patch("/foreign-keys/{constraint}", s.handleModifyForeignKey())
				tbl.Delete("/foreign-keys/{constraint}", s.handleRemoveForeignKey())
			})
		})
	})

	s.router = r
}

// handleRegistryReady returns 200 if at least one tunnel is connected, 503 otherwise.
func (s *Server) handleRegistryReady(registry *itunnel.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !registry.AnyConnected() {
			http.Error(w, "no agents connected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
