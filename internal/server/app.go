// Package server initializes and runs the application server.
// It wires the blob and metadata backends, the credential cache,
// the HTTP API and the optional reconciliation sweep, and handles
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-co-op/gocron/v2"

	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/assets"
	"github.com/lavelar/admitd/internal/server/blobstore"
	"github.com/lavelar/admitd/internal/server/config"
	"github.com/lavelar/admitd/internal/server/credentials"
	"github.com/lavelar/admitd/internal/server/metadata"
	"github.com/lavelar/admitd/internal/server/reconcile"
	"github.com/lavelar/admitd/internal/server/web"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	server  *web.Server
	sweeper *reconcile.Sweeper
}

func NewApp(cfg *config.Config) (*App, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	blobs := blobstore.NewClient(cfg, logger)
	meta := metadata.NewClient(cfg, logger)

	coordinator := assets.NewCoordinator(blobs, meta, logger)
	creds := credentials.NewService(meta, cfg, logger)

	srv := web.NewServer(cfg, logger, coordinator, meta, creds)

	var sweeper *reconcile.Sweeper
	if cfg.SweepEnabled {
		sweeper = reconcile.NewSweeper(blobs, meta, cfg, logger)
	}

	return &App{config: cfg, logger: logger, server: srv, sweeper: sweeper}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startSweeper(ctx context.Context, cancelFunc context.CancelFunc) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := app.sweeper.Schedule(sched, app.config.SweepSchedule); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	sched.Start()
	app.logger.Info(ctx, "reconciliation sweep scheduled", "cron", app.config.SweepSchedule)

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startSweeper(ctx, cancelFunc)
		}()
	}

	wg.Wait()

}
