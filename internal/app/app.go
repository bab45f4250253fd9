// Package app provides the top-level application lifecycle. It wires together
// the stores, pub/sub bus, chain client, indexer, WebSocket hub, and HTTP
// server, and runs them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenfi/perpindex/internal/config"
	"github.com/lumenfi/perpindex/internal/indexer"
	"github.com/lumenfi/perpindex/internal/server"
	"github.com/lumenfi/perpindex/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown after the root context ends.
const shutdownTimeout = 10 * time.Second

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the indexer, WebSocket hub, and HTTP
// server, and blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int64("chain_id", a.cfg.Chain.ChainID),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	handlers := indexer.NewHandlers(
		deps.Markets,
		deps.Positions,
		deps.Orders,
		deps.Trades,
		deps.SignalBus,
		a.logger.With(slog.String("component", "indexer")),
	)
	ix := indexer.New(
		deps.Node,
		deps.Checkpoints,
		indexer.NewDispatcher(handlers),
		deps.Archiver,
		indexer.Config{
			EngineAddress: engineAddress(a.cfg),
			StartBlock:    a.cfg.Chain.StartBlock,
			PollInterval:  a.cfg.Chain.PollInterval.Duration,
		},
		a.logger.With(slog.String("component", "indexer")),
	)

	hub := ws.NewHub(deps.SignalBus, a.logger.With(slog.String("component", "ws")))

	srv := server.NewServer(
		server.Config{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port},
		hub,
		server.Health{
			Postgres:   deps.Postgres,
			Redis:      deps.Redis,
			Checkpoint: deps.Checkpoints.Get,
		},
		a.logger.With(slog.String("component", "server")),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ix.Run(ctx)
	})

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}
