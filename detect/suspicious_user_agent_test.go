package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/core"
)

func TestMatchSuspiciousPattern(t *testing.T) {
	testCases := []struct {
		userAgent  string
		suspicious bool
		pattern    string
	}{
		{"", true, ""},
		{"curl/8.4.0", true, "curl"},
		{"Wget/1.21", true, "wget"},
		{"python-requests/2.31.0", true, "python-requests"},
		{"Scrapy/2.11", true, "scrapy"},
		{"Googlebot/2.1", true, "bot"},
		{"my-crawler 1.0", true, "crawler"},
		{"httpx/0.27", true, "httpx"},
		{"Python http.client", true, "http.client"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.userAgent, func(t *testing.T) {
			pattern, ok := matchSuspiciousPattern(tc.userAgent)
			assert.Equal(t, tc.suspicious, ok)
			if ok {
				assert.Equal(t, tc.pattern, pattern)
			}
		})
	}
}

func TestSuspiciousUserAgentRule_Detect(t *testing.T) {
	rule := NewSuspiciousUserAgentRule(RuleSettings{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := WindowFor(now, rule.WindowMinutes())

	store := &memEventStore{}
	for i := 0; i < 6; i++ {
		store.add(core.Event{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Actor:     "scanner",
			SourceIP:  "203.0.113.45",
			UserAgent: ua("curl/8.4.0"),
			Action:    "api.read",
		})
	}
	// A browser UA and an uncaptured UA must not count.
	store.add(core.Event{Timestamp: now.Add(-time.Minute), SourceIP: "10.0.0.1", UserAgent: ua("Mozilla/5.0"), Action: "api.read"})
	store.add(core.Event{Timestamp: now.Add(-time.Minute), SourceIP: "10.0.0.2", Action: "api.read"})

	findings, err := rule.Detect(context.Background(), store, window)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "suspicious_user_agent", f.RuleID)
	assert.Equal(t, core.SeverityMedium, f.Severity)
	assert.Equal(t, "curl/8.4.0", f.Evidence["user_agent"])
	assert.Equal(t, 6, f.Evidence["request_count"])
	assert.Equal(t, "curl", f.Evidence["pattern_matched"])
	assert.Contains(t, f.Subjects, core.Subject{Type: core.SubjectIP, Value: "203.0.113.45"})
	assert.Contains(t, f.Subjects, core.Subject{Type: core.SubjectActor, Value: "scanner"})
}

func TestSuspiciousUserAgentRule_EmptyUserAgent(t *testing.T) {
	rule := NewSuspiciousUserAgentRule(RuleSettings{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := WindowFor(now, rule.WindowMinutes())

	store := &memEventStore{}
	for i := 0; i < 5; i++ {
		store.add(core.Event{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SourceIP:  "198.51.100.7",
			UserAgent: ua(""),
			Action:    "api.read",
		})
	}

	findings, err := rule.Detect(context.Background(), store, window)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "empty", findings[0].Evidence["pattern_matched"])
}

func TestSuspiciousUserAgentRule_BelowThreshold(t *testing.T) {
	rule := NewSuspiciousUserAgentRule(RuleSettings{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := WindowFor(now, rule.WindowMinutes())

	store := &memEventStore{}
	for i := 0; i < 4; i++ {
		store.add(core.Event{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SourceIP:  "198.51.100.7",
			UserAgent: ua("wget/1.21"),
			Action:    "api.read",
		})
	}

	findings, err := rule.Detect(context.Background(), store, window)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
