// Package api exposes the Argus HTTP API: event ingestion, detection run
// triggering, alert triage and allowlist management.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"argus/config"
	"argus/core"
	"argus/storage"
)

// rateLimiterEntry holds a per-IP rate limiter with last seen time.
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// EventStorer is the event storage capability the API consumes.
type EventStorer interface {
	InsertEvent(ctx context.Context, event *core.Event) error
	CountEvents(ctx context.Context) (int64, error)
}

// AlertStorer is the alert storage capability the API consumes.
type AlertStorer interface {
	GetAlerts(ctx context.Context, filter storage.AlertFilter) ([]core.Alert, error)
	GetAlert(ctx context.Context, id string) (*core.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, newStatus core.AlertStatus, now time.Time) (*core.Alert, error)
	MarkFalsePositive(ctx context.Context, id, reason, markedBy string, now time.Time) (*core.Alert, *core.FalsePositive, error)
	ListFalsePositives(ctx context.Context, alertID string) ([]core.FalsePositive, error)
}

// AllowlistStorer is the allowlist storage capability the API consumes.
type AllowlistStorer interface {
	GetEntries(ctx context.Context) ([]core.AllowlistEntry, error)
	CreateEntry(ctx context.Context, entry *core.AllowlistEntry) error
	DeleteEntry(ctx context.Context, id string) error
}

// DetectionRunner triggers a detection run.
type DetectionRunner interface {
	Run(ctx context.Context, now time.Time) (*core.RunSummary, error)
}

// API holds the HTTP server and its dependencies.
type API struct {
	router         *mux.Router
	server         *http.Server
	events         EventStorer
	alerts         AlertStorer
	allowlist      AllowlistStorer
	engine         DetectionRunner
	config         *config.Config
	logger         *zap.SugaredLogger
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates the API server and registers its routes.
func NewAPI(events EventStorer, alerts AlertStorer, allowlist AllowlistStorer, engine DetectionRunner, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:       mux.NewRouter(),
		events:       events,
		alerts:       alerts,
		allowlist:    allowlist,
		engine:       engine,
		config:       cfg,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	a.setupRoutes()
	go a.cleanupRateLimiters()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(a.loggingMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/api/events", a.ingestEvent).Methods("POST")
	a.router.HandleFunc("/api/alerts", a.getAlerts).Methods("GET")
	a.router.HandleFunc("/api/alerts/{id}", a.getAlert).Methods("GET")
	a.router.HandleFunc("/api/alerts/{id}/status", a.updateAlertStatus).Methods("PATCH")
	a.router.HandleFunc("/api/alerts/{id}/false-positive", a.markFalsePositive).Methods("POST")
	a.router.HandleFunc("/api/alerts/{id}/false-positives", a.listFalsePositives).Methods("GET")
	a.router.HandleFunc("/api/allowlist", a.getAllowlist).Methods("GET")
	a.router.HandleFunc("/api/allowlist", a.createAllowlistEntry).Methods("POST")
	a.router.HandleFunc("/api/allowlist/{id}", a.deleteAllowlistEntry).Methods("DELETE")
	a.router.HandleFunc("/api/detections/run", a.runDetection).Methods("POST")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the configured handler, mainly for tests.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the HTTP server and blocks until it stops.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.API.Host, a.config.API.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
