package core

import (
	"time"

	"github.com/google/uuid"
)

// Severity levels for rules and alerts, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// IsValidSeverity checks whether s is a known severity level.
func IsValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// AlertStatus represents the triage status of an alert
type AlertStatus string

const (
	// AlertStatusOpen indicates a newly created alert awaiting triage
	AlertStatusOpen AlertStatus = "open"
	// AlertStatusTriaged indicates an alert an analyst has picked up
	AlertStatusTriaged AlertStatus = "triaged"
	// AlertStatusClosed indicates a resolved alert
	AlertStatusClosed AlertStatus = "closed"
	// AlertStatusFalsePositive indicates an alert dismissed as benign
	AlertStatusFalsePositive AlertStatus = "false_positive"
)

// String returns the string representation
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusTriaged, AlertStatusClosed, AlertStatusFalsePositive:
		return true
	default:
		return false
	}
}

// Evidence is the forensic payload attached to a finding or alert.
// Shape is rule-specific and consumed opaquely by the UI; values are
// scalars, lists or nested maps and must survive JSON round-trips.
type Evidence map[string]interface{}

// Alert is a persisted detection result. Created by the materializer in
// status open; mutated only through explicit status transitions afterwards;
// never physically deleted.
type Alert struct {
	ID          string      `json:"id"`
	RuleID      string      `json:"rule_id"`
	Severity    string      `json:"severity"`
	Status      AlertStatus `json:"status"`
	Summary     string      `json:"summary"`
	Evidence    Evidence    `json:"evidence"`
	AlertTime   time.Time   `json:"alert_time"`
	WindowStart time.Time   `json:"window_start"`
	WindowEnd   time.Time   `json:"window_end"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewAlert materializes a finding as an open alert at the given instant.
func NewAlert(f *Finding, now time.Time) *Alert {
	return &Alert{
		ID:          uuid.New().String(),
		RuleID:      f.RuleID,
		Severity:    f.Severity,
		Status:      AlertStatusOpen,
		Summary:     f.Summary,
		Evidence:    f.Evidence,
		AlertTime:   f.AlertTime,
		WindowStart: f.WindowStart,
		WindowEnd:   f.WindowEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FalsePositive is an append-only audit record created when an alert is
// marked false positive. It survives later reopen/re-close cycles of the
// alert itself.
type FalsePositive struct {
	ID       string    `json:"id"`
	AlertID  string    `json:"alert_id"`
	Reason   string    `json:"reason"`
	MarkedBy string    `json:"marked_by,omitempty"`
	MarkedAt time.Time `json:"marked_at"`
}
