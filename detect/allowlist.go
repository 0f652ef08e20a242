package detect

import (
	"time"

	"argus/core"
)

// FilterAllowlisted drops candidates whose subject matches an active
// allowlist entry scoped to their rule (or globally). A multi-subject
// candidate is suppressed if ANY subject matches: for known-safe
// infrastructure the design errs toward suppression, not alerting.
// Returns the survivors and the suppressed candidates.
func FilterAllowlisted(candidates []core.Finding, entries []core.AllowlistEntry, at time.Time) (kept, suppressed []core.Finding) {
	if len(entries) == 0 {
		return candidates, nil
	}

	for _, candidate := range candidates {
		if isAllowlisted(&candidate, entries, at) {
			suppressed = append(suppressed, candidate)
			continue
		}
		kept = append(kept, candidate)
	}
	return kept, suppressed
}

func isAllowlisted(candidate *core.Finding, entries []core.AllowlistEntry, at time.Time) bool {
	for _, subject := range candidate.Subjects {
		for i := range entries {
			entry := &entries[i]
			if !entry.IsActive(at) {
				continue
			}
			if entry.Matches(subject, candidate.RuleID) {
				return true
			}
		}
	}
	return false
}
