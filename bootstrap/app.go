package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"argus/api"
	"argus/config"
	"argus/detect"
	"argus/storage"
)

// App represents the Argus application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	DB               *storage.SQLite
	EventStorage     *storage.EventStorage
	AlertStorage     *storage.AlertStorage
	AllowlistStorage *storage.AllowlistStorage

	Rules     []detect.Rule
	Engine    *detect.Engine
	APIServer *api.API

	serviceWg  sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates an application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{shutdownCh: make(chan struct{})}

	cfg, err := InitConfig()
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	logger, sugar, err := InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("argus starting...")
	LogStartup(cfg, sugar)

	db, err := storage.NewSQLite(cfg.DataPaths.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite: %w", err)
	}
	app.DB = db
	app.EventStorage = storage.NewEventStorage(db, sugar)
	app.AlertStorage = storage.NewAlertStorage(db, sugar)
	app.AllowlistStorage = storage.NewAllowlistStorage(db, sugar)

	catalogCfg, err := detect.LoadCatalogConfig(cfg.DataPaths.RulesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule config: %w", err)
	}
	app.Rules = detect.BuildRules(catalogCfg)
	sugar.Infow("rule catalog loaded", "rules", len(app.Rules))

	app.Engine = detect.NewEngine(detect.EngineConfig{
		Rules:         app.Rules,
		Events:        app.EventStorage,
		Alerts:        app.AlertStorage,
		Allowlist:     app.AllowlistStorage,
		Workers:       cfg.Engine.Workers,
		DedupLookback: cfg.Engine.DedupLookback,
		Logger:        sugar,
	})

	app.APIServer = api.NewAPI(app.EventStorage, app.AlertStorage, app.AllowlistStorage, app.Engine, cfg, sugar)

	return app, nil
}

// Start launches the scheduler and the API server.
func (a *App) Start(ctx context.Context) error {
	if a.Config.Engine.SchedulerEnabled {
		a.serviceWg.Add(1)
		go a.runScheduler(ctx)
		a.Sugar.Infow("detection scheduler started", "interval", a.Config.Engine.RunInterval)
	} else {
		a.Sugar.Info("detection scheduler disabled, runs trigger via API only")
	}

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		a.Sugar.Infow("api server listening", "host", a.Config.API.Host, "port", a.Config.API.Port)
		if err := a.APIServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("api server failed", "error", err)
		}
	}()

	return nil
}

// runScheduler triggers a detection run every RunInterval until shutdown.
// A slow run never overlaps the next one; the engine serializes runs.
func (a *App) runScheduler(ctx context.Context) {
	defer a.serviceWg.Done()

	ticker := time.NewTicker(a.Config.Engine.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summary, err := a.Engine.Run(ctx, time.Now().UTC())
			if err != nil {
				a.Sugar.Errorw("scheduled detection run failed", "error", err)
				continue
			}
			if summary.AlertsGenerated > 0 {
				a.Sugar.Infow("scheduled run generated alerts", "alerts", summary.AlertsGenerated)
			}
		case <-ctx.Done():
			return
		case <-a.shutdownCh:
			return
		}
	}
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully stops all components: scheduler first so no new run
// starts, then the API server, then storage.
func (a *App) Shutdown() {
	a.Sugar.Info("shutting down...")
	close(a.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorw("failed to stop api server", "error", err)
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("timed out waiting for service goroutines")
	}

	if err := a.DB.Close(); err != nil {
		a.Sugar.Errorw("failed to close database", "error", err)
	}

	a.Sugar.Info("shutdown complete")
	_ = a.Logger.Sync()
}
