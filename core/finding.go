package core

import (
	"time"
)

// SubjectType identifies what kind of entity a finding or allowlist entry
// is keyed on.
type SubjectType string

const (
	SubjectIP    SubjectType = "ip"
	SubjectActor SubjectType = "actor"
)

// IsValid checks if the subject type is valid
func (t SubjectType) IsValid() bool {
	return t == SubjectIP || t == SubjectActor
}

// Subject is the (type, value) pair allowlist matching and suppression are
// keyed on. A finding may carry zero, one or several subjects.
type Subject struct {
	Type  SubjectType `json:"type"`
	Value string      `json:"value"`
}

// Finding is an unpersisted candidate detection result produced by a rule.
// It becomes an Alert only after surviving allowlist filtering and
// deduplication.
type Finding struct {
	RuleID      string    `json:"rule_id"`
	Severity    string    `json:"severity"`
	Summary     string    `json:"summary"`
	Evidence    Evidence  `json:"evidence"`
	AlertTime   time.Time `json:"alert_time"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Subjects    []Subject `json:"subjects,omitempty"`
}

// RunSummary reports the outcome of one detection run.
type RunSummary struct {
	AlertsGenerated int               `json:"alerts_generated"`
	RulesExecuted   []string          `json:"rules_executed"`
	RulesFailed     map[string]string `json:"rules_failed,omitempty"`
	AlertsFailed    []string          `json:"alerts_failed,omitempty"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
}
