package detect

import (
	"context"
	"fmt"
	"time"

	"argus/core"
)

// DefaultDedupLookback is how far back a prior alert suppresses a new
// candidate for the same rule.
const DefaultDedupLookback = time.Hour

// RecentAlertSource is the slice of alert storage the deduplicator needs.
type RecentAlertSource interface {
	CountAlertsSince(ctx context.Context, ruleID string, since time.Time) (int64, error)
}

// Deduplicator suppresses candidates that echo a very recent alert for the
// same rule. Deduplication is rule-level and subject-agnostic: successive
// runs re-scan overlapping windows and would otherwise storm the alert
// queue. Finer evidence-hash fingerprinting is future work.
type Deduplicator struct {
	alerts   RecentAlertSource
	lookback time.Duration
}

// NewDeduplicator creates a deduplicator over the given alert source.
// A zero lookback gets the default.
func NewDeduplicator(alerts RecentAlertSource, lookback time.Duration) *Deduplicator {
	if lookback <= 0 {
		lookback = DefaultDedupLookback
	}
	return &Deduplicator{alerts: alerts, lookback: lookback}
}

// Filter returns the candidates that are not duplicates of a recent alert.
// Candidates are processed in order; once one candidate for a rule
// survives, later candidates for the same rule in the same run are
// suppressed too, keeping at most one alert per rule per lookback.
func (d *Deduplicator) Filter(ctx context.Context, candidates []core.Finding, now time.Time) (kept, suppressed []core.Finding, err error) {
	since := now.Add(-d.lookback)
	isDup := make(map[string]bool)

	for _, candidate := range candidates {
		dup, seen := isDup[candidate.RuleID]
		if !seen {
			count, err := d.alerts.CountAlertsSince(ctx, candidate.RuleID, since)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to query recent alerts for rule %s: %w", candidate.RuleID, err)
			}
			dup = count > 0
		}

		if dup {
			suppressed = append(suppressed, candidate)
		} else {
			kept = append(kept, candidate)
		}
		// The first survivor will be materialized, making any later
		// candidate for the same rule a duplicate of it.
		isDup[candidate.RuleID] = true
	}

	return kept, suppressed, nil
}
