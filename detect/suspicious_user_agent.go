package detect

import (
	"context"
	"fmt"
	"strings"

	"argus/core"
)

const (
	defaultSuspiciousUAThreshold = 5
	defaultSuspiciousUAWindow    = 15
)

// suspiciousUAPatterns are matched case-insensitively as substrings against
// the user agent. The empty pattern matches only an empty user agent.
var suspiciousUAPatterns = []string{
	"",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"scrapy",
	"bot",
	"crawler",
	"spider",
	"httpx",
	"http.client",
}

// SuspiciousUserAgentRule detects traffic from automation tools, scrapers
// and clients hiding their identity. MITRE ATT&CK: T1071.
type SuspiciousUserAgentRule struct {
	threshold     int
	windowMinutes int
}

// NewSuspiciousUserAgentRule creates the rule with catalog settings applied.
func NewSuspiciousUserAgentRule(settings RuleSettings) *SuspiciousUserAgentRule {
	return &SuspiciousUserAgentRule{
		threshold:     settings.thresholdOr(defaultSuspiciousUAThreshold),
		windowMinutes: settings.windowOr(defaultSuspiciousUAWindow),
	}
}

func (r *SuspiciousUserAgentRule) ID() string   { return "suspicious_user_agent" }
func (r *SuspiciousUserAgentRule) Name() string { return "Suspicious User-Agent Detection" }
func (r *SuspiciousUserAgentRule) Description() string {
	return "Detects requests with suspicious or automated user agent strings"
}
func (r *SuspiciousUserAgentRule) Severity() string   { return core.SeverityMedium }
func (r *SuspiciousUserAgentRule) WindowMinutes() int { return r.windowMinutes }

// Detect groups suspicious events by user agent and emits a finding for
// every group at or above the threshold.
func (r *SuspiciousUserAgentRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		RequireUserAgent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events with user agents: %w", err)
	}

	byUA := make(map[string][]core.Event)
	for _, e := range matched {
		if e.UserAgent == nil {
			continue
		}
		ua := *e.UserAgent
		if _, suspicious := matchSuspiciousPattern(ua); suspicious {
			byUA[ua] = append(byUA[ua], e)
		}
	}

	var findings []core.Finding
	for _, ua := range sortedKeys(byUA) {
		group := byUA[ua]
		if len(group) < r.threshold {
			continue
		}

		pattern, _ := matchSuspiciousPattern(ua)

		actors := make([]string, 0, len(group))
		ips := make([]string, 0, len(group))
		subjects := make([]core.Subject, 0)
		for _, e := range group {
			actors = append(actors, e.Actor)
			ips = append(ips, e.SourceIP)
		}
		for _, ip := range uniqueSorted(ips) {
			subjects = append(subjects, core.Subject{Type: core.SubjectIP, Value: ip})
		}
		for _, actor := range uniqueSorted(actors) {
			subjects = append(subjects, core.Subject{Type: core.SubjectActor, Value: actor})
		}

		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: r.Severity(),
			Summary: fmt.Sprintf("Suspicious user agent detected: %d requests with automated/suspicious UA",
				len(group)),
			Evidence: core.Evidence{
				"user_agent":      ua,
				"request_count":   len(group),
				"actors":          uniqueSorted(actors),
				"source_ips":      uniqueSorted(ips),
				"event_ids":       eventIDs(group),
				"pattern_matched": patternLabel(pattern),
			},
			AlertTime:   window.End,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    subjects,
		})
	}

	return findings, nil
}

// matchSuspiciousPattern returns the first pattern the user agent matches.
func matchSuspiciousPattern(userAgent string) (string, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	for _, pattern := range suspiciousUAPatterns {
		if pattern == "" {
			if ua == "" {
				return pattern, true
			}
			continue
		}
		if strings.Contains(ua, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// patternLabel names the empty pattern for evidence readability.
func patternLabel(pattern string) string {
	if pattern == "" {
		return "empty"
	}
	return pattern
}
