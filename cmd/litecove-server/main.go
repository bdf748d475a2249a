package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/litecove/litecove/internal/adapter/audit"
	"github.com/litecove/litecove/internal/adapter/auth"
	"github.com/litecove/litecove/internal/adapter/httpserver"
	"github.com/litecove/litecove/internal/adapter/liteapi"
	"github.com/litecove/litecove/internal/adapter/store"
	"github.com/litecove/litecove/internal/adapter/store/migrations"
	"github.com/litecove/litecove/internal/config"
	"github.com/litecove/litecove/internal/core/port"
	"github.com/litecove/litecove/internal/core/service"
	itunnel "github.com/litecove/litecove/internal/tunnel"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting litecove-server",
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("listen_addr", cfg.ListenAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Build the authenticator and metadata repositories. Store-backed mode
	// requires Postgres; static mode keeps everything in memory.
	var (
		authenticator port.Authenticator
		databases     port.DatabaseRepository
		keys          port.APIKeyRepository
		mutationLogs  port.MutationLogRepository
	)

	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connecting to metadata store: %w", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.PostgresURL); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("metadata store connected, migrations applied")

		databases = store.NewDatabaseRepository(pool)
		mutationLogs = store.NewAuditRepository(pool)

		keyRepo := store.NewAPIKeyRepository(pool)
		keys = keyRepo
		authenticator = auth.NewStoreAuthenticator(keyRepo, logger)
		logger.Info("using store-backed authenticator")
	} else {
		databaseIDs := make([]uuid.UUID, 0, len(cfg.StaticKeys))
		seen := make(map[uuid.UUID]bool)
		for _, id := range cfg.StaticKeys {
			if !seen[id] {
				seen[id] = true
				databaseIDs = append(databaseIDs, id)
			}
		}

		databases = store.NewMemoryDatabaseRepository(databaseIDs)
		mutationLogs = store.NewMemoryMutationLogRepository()
		keys = store.StaticKeyRepository{}
		authenticator = auth.NewStaticAuthenticator(cfg.StaticKeys)
		logger.Info("using static api key authenticator",
			slog.Int("key_count", len(cfg.StaticKeys)),
		)
	}

	// Tunnel registry — one yamux session per connected agent, keyed by
	// database ID.
	registry := itunnel.NewRegistry(authenticator, databases, cfg.Tunnel, version, logger)
	executor := itunnel.NewExecutor(registry)

	// Core services on top of the tunnel executor.
	introspector := liteapi.NewIntrospector(executor)
	graphSvc := service.NewGraphService(introspector, logger)
	cycleSvc := service.NewCycleService(logger)
	cascadeSvc := service.NewCascadeService(executor, logger)

	auditor := audit.NewBatchLogger(mutationLogs, logger)
	defer auditor.Close()

	mutationSvc := service.NewMutationService(introspector, executor, graphSvc, cycleSvc, auditor, logger)

	srv := httpserver.New(httpserver.Config{
		ListenAddr:         cfg.ListenAddr,
		CORSOrigin:         cfg.CORSOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReadHeaderTimeout:  cfg.ReadHeaderTimeout,
		IdleTimeout:        cfg.IdleTimeout,
	}, registry, authenticator, httpserver.Services{
		Graph:        graphSvc,
		Cycles:       cycleSvc,
		Cascade:      cascadeSvc,
		Mutations:    mutationSvc,
		Introspector: introspector,
		Databases:    databases,
		Keys:         keys,
		MutationLogs: mutationLogs,
	}, logger)

	// Second signal during shutdown = hard exit. The channel is registered
	// only after the first signal has cancelled ctx, so the first one can
	// never race the graceful path.
	go func() {
		<-ctx.Done()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		logger.Warn("forced shutdown", slog.String("signal", sig.String()))
		os.Exit(1)
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	// Shutdown trigger: when ctx is cancelled (signal or component failure),
	// gracefully stop the HTTP server.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// runMigrations applies goose migrations from the embedded migration files.
func runMigrations(dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("opening db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}
