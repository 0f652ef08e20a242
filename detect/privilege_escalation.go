package detect

import (
	"context"
	"fmt"
	"strings"

	"argus/core"
)

const defaultPrivEscWindow = 60

// privilegeActionSeverity maps each watched IAM/permission action to the
// severity it warrants. Actions implying admin access, policy attachment
// or principal/policy creation are critical; the rest are high. Matching
// is case-insensitive substring against the event action, so provider
// spellings like "iam:CreateRole" still hit "createrole".
var privilegeActionSeverity = map[string]string{
	"iam.role.create":        core.SeverityCritical,
	"iam.role.update":        core.SeverityHigh,
	"iam.role.delete":        core.SeverityHigh,
	"iam.role.attach_policy": core.SeverityCritical,
	"iam.role.detach_policy": core.SeverityHigh,
	"iam.user.create":        core.SeverityCritical,
	"iam.user.update":        core.SeverityHigh,
	"iam.user.promote":       core.SeverityHigh,
	"iam.user.add_to_group":  core.SeverityHigh,
	"iam.policy.create":      core.SeverityCritical,
	"iam.policy.attach":      core.SeverityCritical,
	"permissions.grant":      core.SeverityHigh,
	"permissions.modify":     core.SeverityHigh,
	"admin.action":           core.SeverityCritical,
	"createrole":             core.SeverityCritical,
	"updaterole":             core.SeverityHigh,
	"attachrolepolicy":       core.SeverityCritical,
	"createuser":             core.SeverityCritical,
	"addusertogroup":         core.SeverityHigh,
}

// PrivilegeEscalationRule alerts on every IAM/permission change event in
// the window; no count threshold, each matching event is a finding.
// MITRE ATT&CK: T1078.004, T1548.
type PrivilegeEscalationRule struct {
	windowMinutes int
}

// NewPrivilegeEscalationRule creates the rule with catalog settings applied.
func NewPrivilegeEscalationRule(settings RuleSettings) *PrivilegeEscalationRule {
	return &PrivilegeEscalationRule{
		windowMinutes: settings.windowOr(defaultPrivEscWindow),
	}
}

func (r *PrivilegeEscalationRule) ID() string   { return "privilege_escalation" }
func (r *PrivilegeEscalationRule) Name() string { return "Privilege Escalation Detection" }
func (r *PrivilegeEscalationRule) Description() string {
	return "Detects IAM privilege changes and role elevations"
}
func (r *PrivilegeEscalationRule) Severity() string   { return core.SeverityCritical }
func (r *PrivilegeEscalationRule) WindowMinutes() int { return r.windowMinutes }

// Detect emits one finding per matching event, severity decided by the
// per-action mapping.
func (r *PrivilegeEscalationRule) Detect(ctx context.Context, events EventQuerier, window Window) ([]core.Finding, error) {
	patterns := sortedKeys(privilegeActionSeverity)

	matched, err := events.EventsInWindow(ctx, window.Start, window.End, EventFilter{
		ActionContains: patterns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query privilege events: %w", err)
	}

	var findings []core.Finding
	for _, e := range matched {
		severity, ok := severityForAction(e.Action)
		if !ok {
			continue
		}

		actor := e.Actor
		if actor == "" {
			actor = "unknown"
		}
		resource := e.Resource
		if resource == "" {
			resource = "unknown resource"
		}

		var userAgent interface{}
		if e.UserAgent != nil {
			userAgent = *e.UserAgent
		}

		var subjects []core.Subject
		if e.Actor != "" {
			subjects = append(subjects, core.Subject{Type: core.SubjectActor, Value: e.Actor})
		}
		if e.SourceIP != "" {
			subjects = append(subjects, core.Subject{Type: core.SubjectIP, Value: e.SourceIP})
		}

		findings = append(findings, core.Finding{
			RuleID:   r.ID(),
			Severity: severity,
			Summary: fmt.Sprintf("Privilege escalation detected: %s performed %s on %s",
				actor, e.Action, resource),
			Evidence: core.Evidence{
				"actor":      e.Actor,
				"action":     e.Action,
				"resource":   e.Resource,
				"outcome":    e.Outcome,
				"source_ip":  e.SourceIP,
				"timestamp":  timestamp(e.Timestamp),
				"event_id":   e.ID,
				"user_agent": userAgent,
			},
			AlertTime:   e.Timestamp,
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Subjects:    subjects,
		})
	}

	return findings, nil
}

// severityForAction finds the most severe mapping matching the action.
func severityForAction(action string) (string, bool) {
	lowered := strings.ToLower(action)
	severity := ""
	for pattern, sev := range privilegeActionSeverity {
		if !strings.Contains(lowered, pattern) {
			continue
		}
		if severity == "" || sev == core.SeverityCritical {
			severity = sev
		}
	}
	return severity, severity != ""
}
