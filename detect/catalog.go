package detect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleSettings overrides the compiled-in defaults of one rule. Zero values
// mean "use the default".
type RuleSettings struct {
	Threshold     int `yaml:"threshold"`
	WindowMinutes int `yaml:"window_minutes"`
}

func (s RuleSettings) thresholdOr(def int) int {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return def
}

func (s RuleSettings) windowOr(def int) int {
	if s.WindowMinutes > 0 {
		return s.WindowMinutes
	}
	return def
}

// CatalogConfig maps rule IDs to setting overrides, loaded from an
// optional YAML file. Unknown rule IDs are rejected so typos in tuning
// files fail loudly instead of silently keeping defaults.
type CatalogConfig map[string]RuleSettings

// knownRuleIDs is the closed catalog; there is no open-ended registry.
var knownRuleIDs = map[string]struct{}{
	"brute_force_login":     {},
	"password_spray":        {},
	"impossible_travel":     {},
	"suspicious_user_agent": {},
	"api_abuse":             {},
	"privilege_escalation":  {},
}

// LoadCatalogConfig reads rule setting overrides from a YAML file.
// A missing path returns an empty config.
func LoadCatalogConfig(path string) (CatalogConfig, error) {
	if path == "" {
		return CatalogConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CatalogConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read rule config: %w", err)
	}

	var cfg CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rule config: %w", err)
	}

	for ruleID := range cfg {
		if _, ok := knownRuleIDs[ruleID]; !ok {
			return nil, fmt.Errorf("rule config references unknown rule %q", ruleID)
		}
	}

	return cfg, nil
}

// BuildRules constructs the full rule catalog in declaration order. The
// list is immutable once built and passed into the engine explicitly.
func BuildRules(cfg CatalogConfig) []Rule {
	return []Rule{
		NewBruteForceRule(cfg["brute_force_login"]),
		NewPasswordSprayRule(cfg["password_spray"]),
		NewImpossibleTravelRule(cfg["impossible_travel"]),
		NewSuspiciousUserAgentRule(cfg["suspicious_user_agent"]),
		NewAPIAbuseRule(cfg["api_abuse"]),
		NewPrivilegeEscalationRule(cfg["privilege_escalation"]),
	}
}
