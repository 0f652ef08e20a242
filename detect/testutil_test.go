package detect

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"argus/core"
)

// memEventStore is an in-memory EventQuerier for rule tests.
type memEventStore struct {
	events []core.Event
	err    error
}

func (s *memEventStore) add(e core.Event) {
	if e.ID == 0 {
		e.ID = int64(len(s.events) + 1)
	}
	s.events = append(s.events, e)
}

func (s *memEventStore) EventsInWindow(_ context.Context, start, end time.Time, filter EventFilter) ([]core.Event, error) {
	if s.err != nil {
		return nil, s.err
	}

	var matched []core.Event
	for _, e := range s.events {
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		if len(filter.Actions) > 0 && !containsString(filter.Actions, e.Action) {
			continue
		}
		if len(filter.ActionContains) > 0 && !actionMatchesAny(e.Action, filter.ActionContains) {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if filter.RequireSourceIP && e.SourceIP == "" {
			continue
		}
		if filter.RequireActor && e.Actor == "" {
			continue
		}
		if filter.RequireUserAgent && e.UserAgent == nil {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	return matched, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func actionMatchesAny(action string, substrings []string) bool {
	lowered := strings.ToLower(action)
	for _, s := range substrings {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}

// memAlertStore is an in-memory AlertStore for engine and dedup tests.
type memAlertStore struct {
	mu        sync.Mutex
	alerts    []core.Alert
	failAfter int // fail inserts once len(alerts) reaches this; 0 disables
	countErr  error
}

func (s *memAlertStore) InsertAlert(_ context.Context, alert *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.alerts) >= s.failAfter {
		return errors.New("disk full")
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *memAlertStore) CountAlertsSince(_ context.Context, ruleID string, since time.Time) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, a := range s.alerts {
		if a.RuleID == ruleID && !a.AlertTime.Before(since) {
			count++
		}
	}
	return count, nil
}

// memAllowlist is an in-memory AllowlistSource.
type memAllowlist struct {
	entries []core.AllowlistEntry
	err     error
}

func (s *memAllowlist) ActiveEntries(_ context.Context, at time.Time) ([]core.AllowlistEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var active []core.AllowlistEntry
	for _, e := range s.entries {
		if e.IsActive(at) {
			active = append(active, e)
		}
	}
	return active, nil
}

// ua returns a pointer for Event.UserAgent literals in tests.
func ua(s string) *string {
	return &s
}
