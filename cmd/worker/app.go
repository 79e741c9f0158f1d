package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hitster/internal/catalog"
	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/cardsheet"
	"github.com/phrazzld/hitster/internal/platform/spotify"
	"github.com/phrazzld/hitster/internal/render"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/phrazzld/hitster/internal/task"
	"golang.org/x/sync/errgroup"
)

// application holds the worker's dependencies for the lifetime of the process.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jobs      store.JobStore
	playlists store.PlaylistStore

	pool      *task.Pool
	scheduler *task.RefreshScheduler
}

// newApplication wires the production ports: the Spotify catalog behind a
// rate limiter and the card sheet renderer.
func newApplication(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*application, error) {
	client, err := spotify.NewClient(cfg.Spotify, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify client: %w", err)
	}
	fetcher := catalog.NewThrottle(client, cfg.Spotify.RequestsPerSecond, cfg.Spotify.Burst)

	renderer, err := cardsheet.NewRenderer(cfg.Render.OutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create card renderer: %w", err)
	}
	return newApplicationWithPorts(cfg, db, logger, fetcher, renderer)
}

// newApplicationWithPorts wires stores, handlers, the worker pool and the
// optional refresh scheduler around the given ports.
func newApplicationWithPorts(
	cfg *config.Config,
	db *sql.DB,
	logger *slog.Logger,
	fetcher catalog.Fetcher,
	renderer render.Renderer,
) (*application, error) {
	jobs, playlists, err := newStores(cfg.Database.Driver, db, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		jobs:      jobs,
		playlists: playlists,
	}

	registry := task.NewRegistry()
	registry.Register(domain.JobKindRefetchPlaylist,
		task.NewRefetchPlaylistHandler(playlists, fetcher, cfg.Worker.FetchTimeout))
	registry.Register(domain.JobKindGeneratePdfs,
		task.NewGeneratePdfsHandler(playlists, renderer, cfg.Worker.RenderTimeout))

	app.pool = task.NewPool(jobs, registry, task.PoolConfigFrom(cfg.Worker), logger)

	if cfg.Refresh.Schedule != "" {
		app.scheduler, err = task.NewRefreshScheduler(cfg.Refresh.Schedule, playlists, jobs, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh scheduler: %w", err)
		}
	}

	logger.Info("application initialized",
		slog.String("driver", cfg.Database.Driver),
		slog.Int("workers", cfg.Worker.Count),
		slog.Bool("refresh_enabled", app.scheduler != nil))
	return app, nil
}

// Run starts the pool and scheduler, then blocks until ctx is cancelled or
// the pool reports a fatal error. Shutdown waits for in-flight jobs up to
// the configured drain timeout. A fatal pool error is returned.
func (app *application) Run(ctx context.Context) error {
	if err := app.pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-app.pool.Fatal():
		app.logger.Error("worker pool reported a fatal error", slog.String("error", err.Error()))
		runErr = fmt.Errorf("fatal worker error: %w", err)
	}

	return errors.Join(runErr, app.shutdown())
}

// shutdown stops the scheduler and drains the pool concurrently under one
// deadline.
func (app *application) shutdown() error {
	drainCtx, cancel := context.WithTimeout(context.Background(), app.config.Worker.DrainTimeout)
	defer cancel()

	var g errgroup.Group
	if app.scheduler != nil {
		g.Go(func() error {
			if err := app.scheduler.Stop(drainCtx); err != nil {
				return fmt.Errorf("stop refresh scheduler: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return app.pool.Stop(drainCtx)
	})

	err := g.Wait()
	if err == nil {
		app.logger.Info("shutdown completed")
	}
	return err
}
