package storage

import "errors"

var (
	// ErrAlertNotFound is returned when an alert ID does not exist.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAllowlistEntryNotFound is returned when an allowlist entry ID does
	// not exist.
	ErrAllowlistEntryNotFound = errors.New("allowlist entry not found")
)
