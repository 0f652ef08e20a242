package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"argus/core"
)

func candidate(ruleID string, subjects ...core.Subject) core.Finding {
	return core.Finding{RuleID: ruleID, Severity: core.SeverityHigh, Subjects: subjects}
}

func TestFilterAllowlisted(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	entries := []core.AllowlistEntry{
		{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "vpn"},
		{EntryType: core.SubjectActor, EntryValue: "svc-backup", Reason: "batch", RuleID: "api_abuse"},
		{EntryType: core.SubjectIP, EntryValue: "10.0.0.2", Reason: "expired", ExpiresAt: &past},
	}

	candidates := []core.Finding{
		candidate("brute_force_login", core.Subject{Type: core.SubjectIP, Value: "10.0.0.1"}),
		candidate("api_abuse", core.Subject{Type: core.SubjectActor, Value: "svc-backup"}),
		candidate("brute_force_login", core.Subject{Type: core.SubjectActor, Value: "svc-backup"}),
		candidate("password_spray", core.Subject{Type: core.SubjectIP, Value: "10.0.0.2"}),
		candidate("password_spray", core.Subject{Type: core.SubjectIP, Value: "203.0.113.45"}),
	}

	kept, suppressed := FilterAllowlisted(candidates, entries, now)

	assert.Len(t, suppressed, 2)
	assert.Len(t, kept, 3)
	// Global IP entry suppresses regardless of rule.
	assert.Equal(t, "brute_force_login", suppressed[0].RuleID)
	// Rule-scoped actor entry only suppresses its own rule.
	assert.Equal(t, "api_abuse", suppressed[1].RuleID)
	// Expired entries never suppress.
	assert.Equal(t, "password_spray", kept[1].RuleID)
	assert.Equal(t, "10.0.0.2", kept[1].Subjects[0].Value)
}

func TestFilterAllowlisted_AnySubjectMatches(t *testing.T) {
	now := time.Now().UTC()
	entries := []core.AllowlistEntry{
		{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "scanner"},
	}

	// Multi-subject finding: one of three subjects is allowlisted, the
	// whole candidate is suppressed.
	multi := candidate("suspicious_user_agent",
		core.Subject{Type: core.SubjectIP, Value: "203.0.113.45"},
		core.Subject{Type: core.SubjectIP, Value: "10.0.0.1"},
		core.Subject{Type: core.SubjectActor, Value: "alice"},
	)

	kept, suppressed := FilterAllowlisted([]core.Finding{multi}, entries, now)
	assert.Empty(t, kept)
	assert.Len(t, suppressed, 1)
}

func TestFilterAllowlisted_NoSubjectsNeverSuppressed(t *testing.T) {
	now := time.Now().UTC()
	entries := []core.AllowlistEntry{
		{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "vpn"},
	}

	kept, suppressed := FilterAllowlisted([]core.Finding{candidate("privilege_escalation")}, entries, now)
	assert.Len(t, kept, 1)
	assert.Empty(t, suppressed)
}
