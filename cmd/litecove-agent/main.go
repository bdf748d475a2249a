package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	iagent "github.com/litecove/litecove/internal/agent"
	"github.com/litecove/litecove/internal/config"
	"github.com/litecove/litecove/pkg/tunnel/agent"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadAgent()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting litecove-agent",
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("sqlite_path", cfg.SQLitePath),
		slog.Bool("read_only", cfg.ReadOnly),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("tunnel_url", cfg.TunnelURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	executor, err := iagent.OpenSQLiteExecutor(ctx, cfg.SQLitePath, iagent.ExecutorConfig{
		ReadOnly: cfg.ReadOnly,
		MaxRows:  cfg.MaxRows,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}

	logger.Info("sqlite database opened", slog.String("db.system", "sqlite"))

	tunnelAgent := agent.NewAgent(cfg.TunnelURL, cfg.APIKey, version, executor, cfg.Tunnel, logger)

	// Second signal during shutdown = hard exit. Registered only after the
	// first signal has cancelled ctx so it can never race the drain path.
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
		return tunnelAgent.Run(ctx)
	})

	// Shutdown trigger: drain in-flight queries when ctx is cancelled, then
	// close the database.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tunnel.ForceCloseTimeout)
		defer cancel()
		if err := tunnelAgent.Shutdown(shutdownCtx); err != nil {
			logger.Warn("drain did not complete", slog.String("error", err.Error()))
		}
		if err := executor.Close(); err != nil {
			logger.Warn("closing sqlite database", slog.String("error", err.Error()))
		} else {
			logger.Info("sqlite database closed", slog.String("db.system", "sqlite"))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
