package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockBoard/internal/domain/repository"
	"StockBoard/internal/usecase"
	"StockBoard/pkg/cache"
	"StockBoard/pkg/config"
	xhttp "StockBoard/pkg/http"
	applogger "StockBoard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.RefreshScheduler
	cache      cache.Service
	publisher  repository.AlertEventPublisher
	bars       repository.BarStore
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.RefreshScheduler,
	c cache.Service,
	publisher repository.AlertEventPublisher,
	bars repository.BarStore,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		scheduler:  scheduler,
		cache:      c,
		publisher:  publisher,
		bars:       bars,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.scheduler.Start(); err != nil {
		a.log.Error("scheduler start error", applogger.Error(err))
		return err
	}
	a.log.Info("refresh scheduler started", applogger.Duration("tick", a.cfg.Scheduler.Tick))

	if a.cfg.Scheduler.RunOnStart {
		go func() {
			stats := a.scheduler.RunOnce(ctx)
			a.log.Info("initial refresh done",
				applogger.Int("symbols", stats.Symbols),
				applogger.Int("refreshed", stats.Refreshed),
				applogger.Int("failed", stats.Failed),
			)
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops producers of work first, then closes infrastructure.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(ctx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// flush aggregated logs before the producer goes away
	a.log.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if a.bars != nil {
		if err := a.bars.Close(); err != nil {
			a.log.Warn("bar store close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
