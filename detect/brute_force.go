package detect

import (
	"context"
	"fmt"

	"argus/core"
)

const (
	defaultBruteForceThreshold = 5
	defaultBruteForceWindow    = 15
)

// BruteForceRule detects repeated failed login attempts from a single
// source IP. MITRE ATT&CK: T1110 (Brute Force).
type BruteForceRule struct {
	threshold     int
	windowMinutes int
}

// NewBruteForceRule creates the rule with catalog settings applied.
func NewBruteForceRule(settings RuleSettings) *BruteForceRule {
	return &BruteForceRule{
		threshold:     settings.thresholdOr(defaultBruteForceThreshold),
		windowMinutes: settings.windowOr(defaultBruteForceWindow),
	}
}

func (r *BruteForceRule) ID() string   { return "brute_force_login" }
func (r *BruteForceRule) Name() string { return "Brute Force Login Detection" }
func (r *BruteForceRule) Description() string {
	return "Detects multiple failed login attempts from the same IP address"
}
func (r *BruteForceRule) Severity() string   { return core.SeverityHigh }
func (r *BruteForceRule) WindowMinutes() int { return r.windowMinutes }

// Detect groups failed login-family events by source IP and emits one
// finding per IP at or above the threshold.
func (r *BruteForceRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		Actions:         loginActions,
		Outcome:         core.OutcomeFailure,
		RequireSourceIP: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query login failures: %w", err)
	}

	byIP := make(map[string][]core.Event)
	for _, e := range matched {
		byIP[e.SourceIP] = append(byIP[e.SourceIP], e)
	}

	var findings []core.Finding
	for _, ip := range sortedKeys(byIP) {
		group := byIP[ip]
		if len(group) < r.threshold {
			continue
		}

		actors := make([]string, 0, len(group))
		for _, e := range group {
			actors = append(actors, e.Actor)
		}
		first := group[0].Timestamp
		last := group[len(group)-1].Timestamp

		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: r.Severity(),
			Summary: fmt.Sprintf("Brute force attack detected: %d failed login attempts from %s",
				len(group), ip),
			Evidence: core.Evidence{
				"source_ip":         ip,
				"attempt_count":     len(group),
				"targeted_users":    uniqueSorted(actors),
				"event_ids":         eventIDs(group),
				"first_attempt":     timestamp(first),
				"last_attempt":      timestamp(last),
				"time_span_seconds": last.Sub(first).Seconds(),
			},
			AlertTime:   window.End,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    []core.Subject{{Type: core.SubjectIP, Value: ip}},
		})
	}

	return findings, nil
}
