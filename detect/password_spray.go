package detect

import (
	"context"
	"fmt"

	"argus/core"
)

const (
	defaultPasswordSprayThreshold = 10
	defaultPasswordSprayWindow    = 30
)

// PasswordSprayRule detects a single IP attempting logins as many distinct
// users, the signature of common-password spraying. Counts both successful
// and failed attempts. MITRE ATT&CK: T1110.003 (Password Spraying).
type PasswordSprayRule struct {
	threshold     int
	windowMinutes int
}

// NewPasswordSprayRule creates the rule with catalog settings applied.
func NewPasswordSprayRule(settings RuleSettings) *PasswordSprayRule {
	return &PasswordSprayRule{
		threshold:     settings.thresholdOr(defaultPasswordSprayThreshold),
		windowMinutes: settings.windowOr(defaultPasswordSprayWindow),
	}
}

func (r *PasswordSprayRule) ID() string   { return "password_spray" }
func (r *PasswordSprayRule) Name() string { return "Password Spray Detection" }
func (r *PasswordSprayRule) Description() string {
	return "Detects login attempts targeting multiple users from a single IP"
}
func (r *PasswordSprayRule) Severity() string   { return core.SeverityCritical }
func (r *PasswordSprayRule) WindowMinutes() int { return r.windowMinutes }

// Detect groups login-family events by source IP and fires when the count
// of distinct targeted actors reaches the threshold.
func (r *PasswordSprayRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		Actions:         loginActions,
		RequireSourceIP: true,
		RequireActor:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}

	byIP := make(map[string][]core.Event)
	for _, e := range matched {
		byIP[e.SourceIP] = append(byIP[e.SourceIP], e)
	}

	var findings []core.Finding
	for _, ip := range sortedKeys(byIP) {
		group := byIP[ip]

		actors := make([]string, 0, len(group))
		for _, e := range group {
			actors = append(actors, e.Actor)
		}
		targeted := uniqueSorted(actors)
		if len(targeted) < r.threshold {
			continue
		}

		first := group[0].Timestamp
		last := group[len(group)-1].Timestamp

		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: r.Severity(),
			Summary: fmt.Sprintf("Password spray attack detected: %s targeted %d different users",
				ip, len(targeted)),
			Evidence: core.Evidence{
				"source_ip":              ip,
				"unique_users_targeted":  len(targeted),
				"total_attempts":         len(group),
				"targeted_users":         targeted,
				"event_ids":              eventIDs(group),
				"first_attempt":          timestamp(first),
				"last_attempt":           timestamp(last),
				"time_span_seconds":      last.Sub(first).Seconds(),
			},
			AlertTime:   window.End,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    []core.Subject{{Type: core.SubjectIP, Value: ip}},
		})
	}

	return findings, nil
}
