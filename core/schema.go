package core

import (
	"time"
)

// Outcome values for canonical events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Event is the canonical security event produced by the normalizer.
// Events are immutable once stored; the detection engine only reads them.
// Timestamp is always timezone-aware UTC.
//
// Actor, SourceIP, Resource, Outcome and RequestID use "" for absent.
// UserAgent is a pointer because the suspicious_user_agent rule must
// distinguish a request that sent an empty User-Agent header (suspicious)
// from one where no header was captured at all.
type Event struct {
	ID        int64                  `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor,omitempty"`
	SourceIP  string                 `json:"source_ip,omitempty"`
	UserAgent *string                `json:"user_agent,omitempty"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource,omitempty"`
	Outcome   string                 `json:"outcome,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	RawData   map[string]interface{} `json:"raw_data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
