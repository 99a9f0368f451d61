// Package config provides configuration management for treelint.
package config

import (
	"fmt"
	"net/url"
	"runtime"

	"github.com/solatis/treelint/internal/types"
)

// LintConfig holds configuration for the lint runner and the findings store.
type LintConfig struct {
	Workers     int
	NodeTypeKey string
	MaxFileSize int64
	Ignore      []string
	// VisitorKeys overrides child traversal order per node type.
	VisitorKeys map[string][]string
	Rules       map[string]types.RuleSetting
	DatabaseURL string
}

// DefaultIgnore lists globs that are never linted unless configuration replaces it.
var DefaultIgnore = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
}

// DefaultLintConfig returns configuration with default values.
func DefaultLintConfig() *LintConfig {
	return &LintConfig{
		Workers:     defaultWorkers(),
		NodeTypeKey: types.DefaultNodeTypeKey,
		MaxFileSize: types.MaxFileSize,
		Ignore:      append([]string(nil), DefaultIgnore...),
		VisitorKeys: map[string][]string{},
		Rules: map[string]types.RuleSetting{
			"no-eval":     {Severity: types.SeverityError},
			"no-debugger": {Severity: types.SeverityError},
		},
	}
}

// Validate checks worker range, type key, file size bounds and ignore
// patterns. Every failure wraps types.ErrInvalidConfig.
func (c *LintConfig) Validate() error {
	if c.Workers <= 0 || c.Workers > types.MaxWorkers {
		return fmt.Errorf("%w: workers must be between 1 and %d, got %d", types.ErrInvalidConfig, types.MaxWorkers, c.Workers)
	}
	if c.NodeTypeKey == "" {
		return fmt.Errorf("%w: node_type_key must not be empty", types.ErrInvalidConfig)
	}
	if c.MaxFileSize <= 0 || c.MaxFileSize > types.MaxFileSize {
		return fmt.Errorf("%w: max_file_size must be between 1 and %d, got %d", types.ErrInvalidConfig, types.MaxFileSize, c.MaxFileSize)
	}
	for _, pattern := range c.Ignore {
		if pattern == "" {
			return fmt.Errorf("%w: ignore patterns must not be empty", types.ErrInvalidConfig)
		}
	}
	return nil
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > types.MaxWorkers {
		return types.MaxWorkers
	}
	return n
}

// ParseRuleSetting accepts the three configuration shapes of a rule:
//
//	"warn" or 1                      severity only
//	["error", opt1, opt2]            severity followed by options
//	{severity: "error", options: []} explicit object
func ParseRuleSetting(name string, raw any) (types.RuleSetting, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return types.RuleSetting{}, fmt.Errorf("rule %s: empty setting list", name)
		}
		sev, err := parseSeverityValue(v[0])
		if err != nil {
			return types.RuleSetting{}, fmt.Errorf("rule %s: %w", name, err)
		}
		return types.RuleSetting{Severity: sev, Options: v[1:]}, nil

	case map[string]any:
		sev, err := parseSeverityValue(v["severity"])
		if err != nil {
			return types.RuleSetting{}, fmt.Errorf("rule %s: %w", name, err)
		}
		setting := types.RuleSetting{Severity: sev}
		switch opts := v["options"].(type) {
		case nil:
		case []any:
			setting.Options = opts
		default:
			setting.Options = []any{opts}
		}
		return setting, nil

	default:
		sev, err := parseSeverityValue(v)
		if err != nil {
			return types.RuleSetting{}, fmt.Errorf("rule %s: %w", name, err)
		}
		return types.RuleSetting{Severity: sev}, nil
	}
}

func parseSeverityValue(raw any) (types.Severity, error) {
	switch v := raw.(type) {
	case string:
		return types.ParseSeverity(v)
	case int:
		return types.ParseSeverity(fmt.Sprint(v))
	case int64:
		return types.ParseSeverity(fmt.Sprint(v))
	case float64:
		return types.ParseSeverity(fmt.Sprint(v))
	case nil:
		return types.SeverityOff, fmt.Errorf("missing severity")
	default:
		return types.SeverityOff, fmt.Errorf("invalid severity %v", raw)
	}
}

// hasCredentials reports whether a database URL embeds a password.
func hasCredentials(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return false
	}
	_, set := u.User.Password()
	return set
}
