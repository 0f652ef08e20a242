package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/core"
)

func TestSeverityForAction(t *testing.T) {
	testCases := []struct {
		action   string
		severity string
		match    bool
	}{
		{"iam.role.attach_policy", core.SeverityCritical, true},
		{"iam.policy.create", core.SeverityCritical, true},
		{"admin.action", core.SeverityCritical, true},
		{"iam:CreateRole", core.SeverityCritical, true},
		{"permissions.grant", core.SeverityHigh, true},
		{"iam.user.add_to_group", core.SeverityHigh, true},
		{"AddUserToGroup", core.SeverityHigh, true},
		{"user.login", "", false},
		{"document.read", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.action, func(t *testing.T) {
			severity, ok := severityForAction(tc.action)
			assert.Equal(t, tc.match, ok)
			if tc.match {
				assert.Equal(t, tc.severity, severity)
			}
		})
	}
}

func TestPrivilegeEscalationRule_Detect(t *testing.T) {
	rule := NewPrivilegeEscalationRule(RuleSettings{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := WindowFor(now, rule.WindowMinutes())

	store := &memEventStore{}
	store.add(core.Event{
		ID: 7, Timestamp: now.Add(-30 * time.Minute),
		Actor: "mallory", SourceIP: "203.0.113.45",
		Action: "iam.role.attach_policy", Resource: "role/admin", Outcome: core.OutcomeSuccess,
	})
	store.add(core.Event{
		ID: 8, Timestamp: now.Add(-20 * time.Minute),
		Actor: "mallory", SourceIP: "203.0.113.45",
		Action: "permissions.grant", Resource: "project/secrets", Outcome: core.OutcomeSuccess,
	})
	store.add(core.Event{Timestamp: now.Add(-10 * time.Minute), Actor: "alice", Action: "user.login", Outcome: core.OutcomeSuccess})

	findings, err := rule.Detect(context.Background(), store, window)
	require.NoError(t, err)
	require.Len(t, findings, 2, "one finding per matching event, no count threshold")

	attach := findings[0]
	assert.Equal(t, "privilege_escalation", attach.RuleID)
	assert.Equal(t, core.SeverityCritical, attach.Severity)
	assert.Equal(t, "iam.role.attach_policy", attach.Evidence["action"])
	assert.Equal(t, int64(7), attach.Evidence["event_id"])
	// Per-event findings are attributed to the triggering event's time.
	assert.Equal(t, now.Add(-30*time.Minute), attach.AlertTime)
	assert.Contains(t, attach.Subjects, core.Subject{Type: core.SubjectActor, Value: "mallory"})
	assert.Contains(t, attach.Subjects, core.Subject{Type: core.SubjectIP, Value: "203.0.113.45"})

	grant := findings[1]
	assert.Equal(t, core.SeverityHigh, grant.Severity)
	assert.Contains(t, grant.Summary, "permissions.grant")
}

func TestPrivilegeEscalationRule_UnknownActorInSummary(t *testing.T) {
	rule := NewPrivilegeEscalationRule(RuleSettings{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := WindowFor(now, rule.WindowMinutes())

	store := &memEventStore{}
	store.add(core.Event{
		Timestamp: now.Add(-5 * time.Minute),
		Action:    "createuser",
	})

	findings, err := rule.Detect(context.Background(), store, window)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Summary, "unknown performed createuser")
	assert.Empty(t, findings[0].Subjects)
}
