package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/pipeline"
	"github.com/xo-market/xobot/internal/server"
	"github.com/xo-market/xobot/internal/server/handler"
	"github.com/xo-market/xobot/internal/server/ws"
	"github.com/xo-market/xobot/internal/service"
)

// serverShutdownTimeout bounds graceful HTTP shutdown after ctx cancellation.
const serverShutdownTimeout = 10 * time.Second

// ServeMode runs the API surface only: HTTP endpoints and the WebSocket hub.
// Views are built on demand; there is no background sync, snapshotting, or
// reconciliation.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	agg := a.buildAggregator(deps, hub)
	lifecycle := a.buildLifecycle(deps)

	a.startHTTPServer(ctx, g, deps, agg, lifecycle, hub)

	return g.Wait()
}

// SyncMode runs the background workers only: periodic view sync, schedule
// reconciliation, and optional snapshot uploads. No HTTP surface.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	g, ctx := errgroup.WithContext(ctx)

	agg := a.buildAggregator(deps, nil)
	g.Go(func() error {
		return agg.Run(ctx)
	})

	a.startWorkers(ctx, g, deps, agg)

	return g.Wait()
}

// FullMode runs everything: the API surface plus all background workers.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	agg := a.buildAggregator(deps, hub)
	g.Go(func() error {
		return agg.Run(ctx)
	})

	a.startWorkers(ctx, g, deps, agg)

	lifecycle := a.buildLifecycle(deps)
	a.startHTTPServer(ctx, g, deps, agg, lifecycle, hub)

	return g.Wait()
}

// buildAggregator assembles the market aggregator. broadcaster may be nil.
func (a *App) buildAggregator(deps *Dependencies, broadcaster domain.Broadcaster) *service.Aggregator {
	return service.NewAggregator(
		deps.Indexer,
		deps.Resolver,
		deps.Gateway,
		deps.ViewCache,
		broadcaster,
		a.cfg.DefaultChainID,
		a.cfg.Aggregator.ListLimit,
		a.cfg.Aggregator.SyncInterval.Duration,
		a.logger.With(slog.String("component", "aggregator")),
	)
}

// buildLifecycle assembles the lifecycle service.
func (a *App) buildLifecycle(deps *Dependencies) *service.Lifecycle {
	return service.NewLifecycle(
		deps.Resolver,
		deps.Gateway,
		deps.Executor,
		deps.Guard,
		deps.Indexer,
		deps.ScheduleStore,
		deps.Notifier,
		a.logger.With(slog.String("component", "lifecycle")),
	)
}

// startWorkers adds the reconciler and, when S3 is configured, the snapshot
// writer to the errgroup.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies, agg *service.Aggregator) {
	if deps.ScheduleStore != nil {
		rec := service.NewReconciler(
			deps.ScheduleStore,
			deps.Indexer,
			deps.Notifier,
			a.cfg.Reconciler.Interval.Duration,
			a.cfg.Reconciler.MaxAttempts,
			a.logger.With(slog.String("component", "reconciler")),
		)
		g.Go(func() error {
			return rec.Run(ctx)
		})
	}

	if deps.BlobWriter != nil {
		snap := pipeline.NewSnapshotter(
			agg,
			deps.BlobWriter,
			a.cfg.Aggregator.SnapshotInterval.Duration,
			a.logger.With(slog.String("component", "snapshotter")),
		)
		g.Go(func() error {
			return snap.Run(ctx)
		})
	}
}

// startHTTPServer adds an HTTP server goroutine to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	agg *service.Aggregator,
	lifecycle *service.Lifecycle,
	hub *ws.Hub,
) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	logger := a.logger.With(slog.String("component", "server"))
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(logger),
		Markets: handler.NewMarketHandler(agg, logger),
		Users:   handler.NewUserHandler(deps.Indexer, logger),
		Faucet:  handler.NewFaucetHandler(lifecycle, logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
