// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_events_ingested_total",
			Help: "Total number of canonical events accepted for storage",
		},
	)

	DetectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_detection_runs_total",
			Help: "Total number of detection runs",
		},
		[]string{"outcome"},
	)

	RuleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_rule_failures_total",
			Help: "Total number of per-rule evaluation failures",
		},
		[]string{"rule"},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_generated_total",
			Help: "Total number of alerts materialized",
		},
		[]string{"severity"},
	)

	CandidatesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_candidates_suppressed_total",
			Help: "Total number of candidate findings suppressed before materialization",
		},
		[]string{"reason"},
	)

	MaterializationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_materialization_failures_total",
			Help: "Total number of alert store write failures",
		},
	)

	DetectionRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_detection_run_duration_seconds",
			Help:    "Time taken for a full detection run",
			Buckets: prometheus.DefBuckets,
		},
	)
)
