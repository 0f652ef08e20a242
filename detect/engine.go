package detect

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"argus/core"
	"argus/metrics"

	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrent rule evaluation within one run.
const DefaultWorkers = 3

// AlertStore is the alert storage capability the engine consumes: inserts
// for materialization, recent-alert counts for deduplication.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *core.Alert) error
	CountAlertsSince(ctx context.Context, ruleID string, since time.Time) (int64, error)
}

// AllowlistSource yields the allowlist entries active at a given instant.
type AllowlistSource interface {
	ActiveEntries(ctx context.Context, at time.Time) ([]core.AllowlistEntry, error)
}

// Engine orchestrates one detection run: window scheduling, concurrent
// rule execution with per-rule failure isolation, allowlist filtering,
// deduplication and materialization. The engine holds no timers; an
// external trigger (scheduler tick or API call) invokes Run.
type Engine struct {
	rules     []Rule
	events    EventQuerier
	alerts    AlertStore
	allowlist AllowlistSource
	dedup     *Deduplicator
	workers   int
	logger    *zap.SugaredLogger

	// runMu serializes runs: evaluating overlapping windows concurrently
	// would double-count candidates not yet persisted and bypass
	// deduplication.
	runMu sync.Mutex
}

// EngineConfig carries engine construction parameters.
type EngineConfig struct {
	Rules         []Rule
	Events        EventQuerier
	Alerts        AlertStore
	Allowlist     AllowlistSource
	Workers       int
	DedupLookback time.Duration
	Logger        *zap.SugaredLogger
}

// NewEngine creates a detection engine. The rule list is fixed for the
// engine's lifetime.
func NewEngine(cfg EngineConfig) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		rules:     cfg.Rules,
		events:    cfg.Events,
		alerts:    cfg.Alerts,
		allowlist: cfg.Allowlist,
		dedup:     NewDeduplicator(cfg.Alerts, cfg.DedupLookback),
		workers:   workers,
		logger:    logger,
	}
}

// ruleResult carries one rule's outcome back from the worker pool.
type ruleResult struct {
	findings []core.Finding
	err      error
}

// Run executes all rules against their windows ending at now and
// materializes the surviving candidates as open alerts. At most one run is
// in flight at a time. A per-rule failure is recorded in the summary and
// never aborts sibling rules; only store unavailability fails the run.
func (e *Engine) Run(ctx context.Context, now time.Time) (*core.RunSummary, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	now = now.UTC()

	results := e.evaluateRules(ctx, now)

	summary := &core.RunSummary{
		RulesExecuted: make([]string, 0, len(e.rules)),
		RulesFailed:   make(map[string]string),
	}

	// Aggregate in rule declaration order for stable run reporting.
	var candidates []core.Finding
	for i, rule := range e.rules {
		if err := results[i].err; err != nil {
			e.logger.Errorw("rule evaluation failed", "rule", rule.ID(), "error", err)
			metrics.RuleFailures.WithLabelValues(rule.ID()).Inc()
			summary.RulesFailed[rule.ID()] = err.Error()
			continue
		}
		summary.RulesExecuted = append(summary.RulesExecuted, rule.ID())
		candidates = append(candidates, results[i].findings...)
	}

	if err := ctx.Err(); err != nil {
		metrics.DetectionRuns.WithLabelValues("aborted").Inc()
		return nil, fmt.Errorf("run aborted: %w", err)
	}

	// Snapshot allowlist state as of run start so every candidate is
	// judged against the same entries.
	entries, err := e.allowlist.ActiveEntries(ctx, now)
	if err != nil {
		metrics.DetectionRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to load allowlist: %w", err)
	}

	kept, allowlisted := FilterAllowlisted(candidates, entries, now)
	for _, f := range allowlisted {
		e.logger.Infow("candidate suppressed by allowlist", "rule", f.RuleID, "summary", f.Summary)
		metrics.CandidatesSuppressed.WithLabelValues("allowlist").Inc()
	}

	survivors, duplicates, err := e.dedup.Filter(ctx, kept, now)
	if err != nil {
		metrics.DetectionRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	for _, f := range duplicates {
		e.logger.Debugw("candidate suppressed as duplicate", "rule", f.RuleID)
		metrics.CandidatesSuppressed.WithLabelValues("duplicate").Inc()
	}

	e.materialize(ctx, survivors, now, summary)

	elapsed := time.Since(start)
	summary.ExecutionTimeMs = math.Round(float64(elapsed.Microseconds())/1000*100) / 100
	metrics.DetectionRunDuration.Observe(elapsed.Seconds())
	metrics.DetectionRuns.WithLabelValues("ok").Inc()

	e.logger.Infow("detection run complete",
		"alerts_generated", summary.AlertsGenerated,
		"rules_executed", len(summary.RulesExecuted),
		"rules_failed", len(summary.RulesFailed),
		"execution_time_ms", summary.ExecutionTimeMs,
	)

	return summary, nil
}

// evaluateRules runs every rule against its own window in a bounded worker
// pool. Rules share no mutable state; each reads the event store for its
// own window only.
func (e *Engine) evaluateRules(ctx context.Context, now time.Time) []ruleResult {
	results := make([]ruleResult, len(e.rules))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, rule := range e.rules {
		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// A panicking rule is a failed rule, not a failed run.
			defer func() {
				if r := recover(); r != nil {
					results[i].err = fmt.Errorf("rule panicked: %v", r)
				}
			}()

			window := WindowFor(now, rule.WindowMinutes())
			findings, err := rule.Detect(ctx, e.events, window)
			results[i] = ruleResult{findings: findings, err: err}
		}(i, rule)
	}

	wg.Wait()
	return results
}

// materialize persists survivors as open alerts. Writes are serial within
// the run; a single write failure is reported in the summary and does not
// block the remaining candidates. Already-committed writes stand if the
// run is aborted mid-way (at-least-once semantics, absorbed by
// deduplication on the next run).
func (e *Engine) materialize(ctx context.Context, survivors []core.Finding, now time.Time, summary *core.RunSummary) {
	for i := range survivors {
		if ctx.Err() != nil {
			e.logger.Warnw("materialization aborted", "written", summary.AlertsGenerated,
				"remaining", len(survivors)-i)
			return
		}

		alert := core.NewAlert(&survivors[i], now)
		if err := e.alerts.InsertAlert(ctx, alert); err != nil {
			e.logger.Errorw("failed to materialize alert", "rule", alert.RuleID, "error", err)
			metrics.MaterializationFailures.Inc()
			summary.AlertsFailed = append(summary.AlertsFailed,
				fmt.Sprintf("%s: %v", alert.RuleID, err))
			continue
		}

		summary.AlertsGenerated++
		metrics.AlertsGenerated.WithLabelValues(alert.Severity).Inc()
	}
}
