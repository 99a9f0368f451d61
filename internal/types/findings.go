// internal/types/findings.go
package types

import (
	"fmt"
	"strings"
)

/*
 * Domain types for lint results.
 *
 * Provides Severity and Finding structures used by internal/rules for
 * reporting, internal/lint for aggregation and internal/core/db for
 * persistence. These types are output-format agnostic - text and JSON
 * rendering happens at the CLI boundary.
 *
 * Key types:
 *   - Severity: off/warn/error, parsed from configuration strings or numbers
 *   - Finding: one report from one rule at one node
 */

// Severity controls whether a rule runs and how its findings are surfaced.
type Severity int

const (
	SeverityOff Severity = iota
	SeverityWarn
	SeverityError
)

// String returns the configuration spelling of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "off"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output carries the name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts "off", "warn", "warning", "error" (case-insensitive)
// and the numeric forms 0, 1, 2.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "0":
		return SeverityOff, nil
	case "warn", "warning", "1":
		return SeverityWarn, nil
	case "error", "2":
		return SeverityError, nil
	default:
		return SeverityOff, fmt.Errorf("invalid severity %q (expected off, warn or error)", s)
	}
}

// Finding is a single report produced by a rule.
type Finding struct {
	RuleID   string   `json:"ruleId"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Path     string   `json:"path"`
	Line     int      `json:"line"`   // 1-based, 0 when the node has no location
	Column   int      `json:"column"` // 1-based, 0 when the node has no location
	NodeType string   `json:"nodeType"`
}

// Less orders findings by position, then rule, then message.
func (f Finding) Less(other Finding) bool {
	if f.Line != other.Line {
		return f.Line < other.Line
	}
	if f.Column != other.Column {
		return f.Column < other.Column
	}
	if f.RuleID != other.RuleID {
		return f.RuleID < other.RuleID
	}
	return f.Message < other.Message
}

// RuleSetting is the configured state of one rule: its severity and the
// rule-specific options list.
type RuleSetting struct {
	Severity Severity `json:"severity"`
	Options  []any    `json:"options,omitempty"`
}
