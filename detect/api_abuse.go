package detect

import (
	"context"
	"fmt"

	"argus/core"
)

const (
	defaultAPIAbuseThreshold = 100
	defaultAPIAbuseWindow    = 5
)

// APIAbuseRule detects rate spikes: abnormally many requests from a single
// IP or a single actor inside a short window. The per-IP and per-actor
// aggregations are independent and may both fire for the same traffic.
// MITRE ATT&CK: T1498 (Network Denial of Service).
type APIAbuseRule struct {
	threshold     int
	windowMinutes int
}

// NewAPIAbuseRule creates the rule with catalog settings applied.
func NewAPIAbuseRule(settings RuleSettings) *APIAbuseRule {
	return &APIAbuseRule{
		threshold:     settings.thresholdOr(defaultAPIAbuseThreshold),
		windowMinutes: settings.windowOr(defaultAPIAbuseWindow),
	}
}

func (r *APIAbuseRule) ID() string   { return "api_abuse" }
func (r *APIAbuseRule) Name() string { return "API Abuse / Rate Spike Detection" }
func (r *APIAbuseRule) Description() string {
	return "Detects abnormally high API request rates indicating abuse"
}
func (r *APIAbuseRule) Severity() string   { return core.SeverityMedium }
func (r *APIAbuseRule) WindowMinutes() int { return r.windowMinutes }

// Detect runs the per-IP aggregation followed by the per-actor one.
func (r *APIAbuseRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	byIP, err := r.detectBySourceIP(ctx, events, window)
	if err != nil {
		return nil, err
	}

	byActor, err := r.detectByActor(ctx, events, window)
	if err != nil {
		return nil, err
	}

	return append(byIP, byActor...), nil
}

func (r *APIAbuseRule) detectBySourceIP(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		RequireSourceIP: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events by source IP: %w", err)
	}

	groups := make(map[string][]core.Event)
	for _, e := range matched {
		groups[e.SourceIP] = append(groups[e.SourceIP], e)
	}

	var findings []core.Finding
	for _, ip := range sortedKeys(groups) {
		group := groups[ip]
		if len(group) < r.threshold {
			continue
		}

		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: r.Severity(),
			Summary: fmt.Sprintf("API abuse detected: %d requests from %s in %d minutes",
				len(group), ip, r.windowMinutes),
			Evidence:    r.evidence(group, window, core.Evidence{"source_ip": ip}),
			AlertTime:   window.End,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    []core.Subject{{Type: core.SubjectIP, Value: ip}},
		})
	}
	return findings, nil
}

func (r *APIAbuseRule) detectByActor(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		RequireActor: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events by actor: %w", err)
	}

	groups := make(map[string][]core.Event)
	for _, e := range matched {
		groups[e.Actor] = append(groups[e.Actor], e)
	}

	var findings []core.Finding
	for _, actor := range sortedKeys(groups) {
		group := groups[actor]
		if len(group) < r.threshold {
			continue
		}

		ips := make([]string, 0, len(group))
		for _, e := range group {
			ips = append(ips, e.SourceIP)
		}

		extra := core.Evidence{
			"actor":      actor,
			"source_ips": uniqueSorted(ips),
		}
		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: r.Severity(),
			Summary: fmt.Sprintf("API abuse detected: %d requests from user %s in %d minutes",
				len(group), actor, r.windowMinutes),
			Evidence:    r.evidence(group, window, extra),
			AlertTime:   window.End,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    []core.Subject{{Type: core.SubjectActor, Value: actor}},
		})
	}
	return findings, nil
}

// evidence assembles the shared evidence fields for one aggregation group.
func (r *APIAbuseRule) evidence(group []core.Event, window Window, extra core.Evidence) core.Evidence {
	actions := make([]string, 0, len(group))
	for _, e := range group {
		actions = append(actions, e.Action)
	}

	ev := core.Evidence{
		"request_count":       len(group),
		"unique_actions":      len(uniqueSorted(actions)),
		"requests_per_second": round2(float64(len(group)) / window.Seconds()),
		"first_request":       timestamp(group[0].Timestamp),
		"last_request":        timestamp(group[len(group)-1].Timestamp),
		"event_ids":           eventIDs(group),
	}
	for k, v := range extra {
		ev[k] = v
	}
	return ev
}
