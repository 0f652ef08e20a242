package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/core"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "run")

	flag := root.PersistentFlags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRenderRunSummary_DoesNotPanic(t *testing.T) {
	renderRunSummary(&core.RunSummary{
		AlertsGenerated: 2,
		RulesExecuted:   []string{"brute_force_login", "password_spray"},
		RulesFailed:     map[string]string{"api_abuse": "window query failed"},
		AlertsFailed:    []string{"password_spray"},
		ExecutionTimeMs: 12.5,
	})
}
