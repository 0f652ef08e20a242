package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAllowlistEntry is returned when an allowlist entry is malformed.
// Invalid entries are rejected at creation and never reach the filter.
var ErrInvalidAllowlistEntry = errors.New("invalid allowlist entry")

// AllowlistEntry suppresses findings whose subject matches EntryValue.
// RuleID scopes the entry to a single rule; empty means all rules.
// ExpiresAt of nil means the entry never expires.
type AllowlistEntry struct {
	ID         string      `json:"id"`
	EntryType  SubjectType `json:"entry_type"`
	EntryValue string      `json:"entry_value"`
	Reason     string      `json:"reason"`
	RuleID     string      `json:"rule_id,omitempty"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	CreatedBy  string      `json:"created_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IsActive reports whether the entry is in force at the given instant.
func (e *AllowlistEntry) IsActive(at time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(at)
}

// Matches reports whether the entry suppresses a subject for ruleID.
// Matching is exact-value; no CIDR or prefix matching.
func (e *AllowlistEntry) Matches(subject Subject, ruleID string) bool {
	if e.EntryType != subject.Type || e.EntryValue != subject.Value {
		return false
	}
	return e.RuleID == "" || e.RuleID == ruleID
}

// Validate performs basic validation on the entry.
func (e *AllowlistEntry) Validate() error {
	if !e.EntryType.IsValid() {
		return fmt.Errorf("%w: entry_type must be %q or %q, got %q",
			ErrInvalidAllowlistEntry, SubjectIP, SubjectActor, e.EntryType)
	}
	if e.EntryValue == "" {
		return fmt.Errorf("%w: entry_value is required", ErrInvalidAllowlistEntry)
	}
	if e.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidAllowlistEntry)
	}
	return nil
}
