package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when an alert status change is not
// permitted by the lifecycle state machine. Callers match it with errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

// validTransitions defines the allowed lifecycle transitions.
// Marking a closed alert false positive is disallowed: it must be
// reopened first. Reopening never erases false-positive history records.
var validTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusOpen:          {AlertStatusTriaged, AlertStatusClosed, AlertStatusFalsePositive},
	AlertStatusTriaged:       {AlertStatusClosed, AlertStatusFalsePositive},
	AlertStatusClosed:        {AlertStatusOpen},
	AlertStatusFalsePositive: {AlertStatusOpen},
}

// TransitionTo validates and executes an alert status transition,
// refreshing UpdatedAt. The alert is left unchanged on error.
func (a *Alert) TransitionTo(newStatus AlertStatus, now time.Time) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	if !a.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, a.Status, newStatus)
	}

	a.Status = newStatus
	a.UpdatedAt = now
	return nil
}

// CanTransitionTo checks if a transition is allowed without executing it.
func (a *Alert) CanTransitionTo(newStatus AlertStatus) bool {
	for _, status := range validTransitions[a.Status] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all valid transitions from the current state.
func (a *Alert) AllowedTransitions() []AlertStatus {
	allowed := validTransitions[a.Status]
	result := make([]AlertStatus, len(allowed))
	copy(result, allowed)
	return result
}
