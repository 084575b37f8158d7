// Package server owns the application lifecycle: warm-up, background
// scheduling, the HTTP server and graceful shutdown.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FundPulse/internal/scheduler"
	"FundPulse/internal/store"
	"FundPulse/internal/usecase"
	pkgch "FundPulse/pkg/clickhouse"
	"FundPulse/pkg/config"
	xhttp "FundPulse/pkg/http"
	applogger "FundPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      *store.Store
	market     *usecase.MarketData
	scheduler  *scheduler.Scheduler
	httpServer *xhttp.Server
	mirror     *store.RedisMirror
	chClient   *pkgch.Client
}

// New creates the App. mirror and chClient may be nil when those backends
// are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	st *store.Store,
	market *usecase.MarketData,
	sched *scheduler.Scheduler,
	httpServer *xhttp.Server,
	mirror *store.RedisMirror,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		store:      st,
		market:     market,
		scheduler:  sched,
		httpServer: httpServer,
		mirror:     mirror,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.store.LoadAll(); err != nil {
		a.log.Warn("snapshot rehydration failed, starting cold", applogger.Error(err))
	}
	if err := a.market.Load(); err != nil {
		a.log.Warn("benchmark snapshot rehydration failed", applogger.Error(err))
	}

	if err := a.scheduler.Start(); err != nil {
		return err
	}
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	a.log.Info("service started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	if err := a.scheduler.Stop(ctx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
