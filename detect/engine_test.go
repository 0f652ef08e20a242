package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/core"
)

// stubRule returns canned findings, an error, or panics, so engine tests
// control rule outcomes without building event fixtures.
type stubRule struct {
	id       string
	severity string
	findings []core.Finding
	err      error
	panics   bool
}

func (r *stubRule) ID() string          { return r.id }
func (r *stubRule) Name() string        { return r.id }
func (r *stubRule) Description() string { return "" }
func (r *stubRule) Severity() string    { return r.severity }
func (r *stubRule) WindowMinutes() int  { return 15 }

func (r *stubRule) Detect(context.Context, EventQuerier, Window) ([]core.Finding, error) {
	if r.panics {
		panic("index out of range")
	}
	return r.findings, r.err
}

func finding(ruleID string, alertTime time.Time, subjects ...core.Subject) core.Finding {
	return core.Finding{
		RuleID:      ruleID,
		Severity:    core.SeverityHigh,
		Summary:     ruleID + " fired",
		Evidence:    core.Evidence{"rule": ruleID},
		AlertTime:   alertTime,
		WindowStart: alertTime.Add(-15 * time.Minute),
		WindowEnd:   alertTime,
		Subjects:    subjects,
	}
}

func newTestEngine(rules []Rule, alerts *memAlertStore, allowlist *memAllowlist) *Engine {
	return NewEngine(EngineConfig{
		Rules:     rules,
		Events:    &memEventStore{},
		Alerts:    alerts,
		Allowlist: allowlist,
	})
}

func TestEngineRun_MaterializesSurvivors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerts := &memAlertStore{}

	engine := newTestEngine([]Rule{
		&stubRule{id: "brute_force_login", findings: []core.Finding{finding("brute_force_login", now)}},
		&stubRule{id: "password_spray"},
	}, alerts, &memAllowlist{})

	summary, err := engine.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.AlertsGenerated)
	assert.Equal(t, []string{"brute_force_login", "password_spray"}, summary.RulesExecuted)
	assert.Empty(t, summary.RulesFailed)
	assert.Empty(t, summary.AlertsFailed)
	assert.GreaterOrEqual(t, summary.ExecutionTimeMs, 0.0)

	require.Len(t, alerts.alerts, 1)
	a := alerts.alerts[0]
	assert.Equal(t, "brute_force_login", a.RuleID)
	assert.Equal(t, core.AlertStatusOpen, a.Status)
	assert.NotEmpty(t, a.ID)
}

func TestEngineRun_RuleFailureIsolation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerts := &memAlertStore{}

	engine := newTestEngine([]Rule{
		&stubRule{id: "brute_force_login", err: errors.New("query timeout")},
		&stubRule{id: "impossible_travel", panics: true},
		&stubRule{id: "api_abuse", findings: []core.Finding{finding("api_abuse", now)}},
	}, alerts, &memAllowlist{})

	summary, err := engine.Run(context.Background(), now)
	require.NoError(t, err, "per-rule failures never fail the run")

	assert.Equal(t, []string{"api_abuse"}, summary.RulesExecuted)
	assert.Equal(t, "query timeout", summary.RulesFailed["brute_force_login"])
	assert.Contains(t, summary.RulesFailed["impossible_travel"], "rule panicked")
	assert.Equal(t, 1, summary.AlertsGenerated)
}

func TestEngineRun_SecondRunDeduplicates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerts := &memAlertStore{}

	engine := newTestEngine([]Rule{
		&stubRule{id: "brute_force_login", findings: []core.Finding{finding("brute_force_login", now)}},
	}, alerts, &memAllowlist{})

	first, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AlertsGenerated)

	// The attack is still inside the next run's window five minutes later,
	// but the prior alert suppresses it.
	second, err := engine.Run(context.Background(), now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, second.AlertsGenerated)
	assert.Len(t, alerts.alerts, 1)
}

func TestEngineRun_AllowlistSuppression(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerts := &memAlertStore{}
	allowlist := &memAllowlist{entries: []core.AllowlistEntry{
		{EntryType: core.SubjectIP, EntryValue: "10.0.0.1", Reason: "office vpn"},
	}}

	engine := newTestEngine([]Rule{
		&stubRule{id: "brute_force_login", findings: []core.Finding{
			finding("brute_force_login", now, core.Subject{Type: core.SubjectIP, Value: "10.0.0.1"}),
		}},
	}, alerts, allowlist)

	summary, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.AlertsGenerated)
	assert.Equal(t, []string{"brute_force_login"}, summary.RulesExecuted)
	assert.Empty(t, alerts.alerts)
}

func TestEngineRun_PartialMaterializationFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerts := &memAlertStore{failAfter: 1}

	engine := newTestEngine([]Rule{
		&stubRule{id: "brute_force_login", findings: []core.Finding{finding("brute_force_login", now)}},
		&stubRule{id: "password_spray", findings: []core.Finding{finding("password_spray", now)}},
	}, alerts, &memAllowlist{})

	summary, err := engine.Run(context.Background(), now)
	require.NoError(t, err, "a failed insert is reported, not fatal")

	assert.Equal(t, 1, summary.AlertsGenerated)
	require.Len(t, summary.AlertsFailed, 1)
	assert.Contains(t, summary.AlertsFailed[0], "password_spray")
	assert.Len(t, alerts.alerts, 1)
}

func TestEngineRun_AllowlistUnavailableFailsRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine([]Rule{
		&stubRule{id: "api_abuse"},
	}, &memAlertStore{}, &memAllowlist{err: errors.New("database locked")})

	_, err := engine.Run(context.Background(), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowlist")
}

func TestEngineRun_CancelledContext(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine([]Rule{
		&stubRule{id: "api_abuse", findings: []core.Finding{finding("api_abuse", now)}},
	}, &memAlertStore{}, &memAllowlist{})

	_, err := engine.Run(ctx, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
