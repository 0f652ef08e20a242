// Package detect implements the Argus detection engine: a catalog of
// time-windowed rules evaluated over canonical events, an allowlist
// filter, a rule-level deduplicator and the alert materializer.
package detect

import (
	"context"
	"time"

	"argus/core"
)

// loginActions is the fixed alias set for login-family actions.
var loginActions = []string{"user.login", "login", "signin"}

// Window is the half-open interval [Start, End) a rule aggregates over.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor computes the evaluation window for a rule ending at now.
// Each rule gets its own window; rules are not forced onto a shared one.
func WindowFor(now time.Time, windowMinutes int) Window {
	return Window{
		Start: now.Add(-time.Duration(windowMinutes) * time.Minute),
		End:   now,
	}
}

// Seconds returns the window span in seconds.
func (w Window) Seconds() float64 {
	return w.End.Sub(w.Start).Seconds()
}

// EventFilter narrows an event-store window query. Zero value matches all
// events in the window.
type EventFilter struct {
	// Actions matches events whose action equals any listed value.
	Actions []string
	// ActionContains matches events whose lowercased action contains any
	// listed substring. Used by privilege_escalation.
	ActionContains []string
	// Outcome, when non-empty, matches events with that outcome.
	Outcome string
	// RequireSourceIP drops events without a source IP.
	RequireSourceIP bool
	// RequireActor drops events without an actor.
	RequireActor bool
	// RequireUserAgent drops events where no user_agent was captured.
	// Events with an empty-but-present user agent are kept.
	RequireUserAgent bool
}

// EventQuerier is the read-only capability rules consume from the event
// store. Results are ordered by timestamp then event ID, ascending.
type EventQuerier interface {
	EventsInWindow(ctx context.Context, start, end time.Time, filter EventFilter) ([]core.Event, error)
}

// Rule is a pure function over a bounded event window producing zero or
// more candidate findings. The catalog is a closed set of six rules; rules
// hold no mutable state and may be evaluated concurrently.
type Rule interface {
	ID() string
	Name() string
	Description() string
	// Severity is the default severity for findings. privilege_escalation
	// assigns severity per event and may deviate from it.
	Severity() string
	WindowMinutes() int
	Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error)
}
