// internal/rules/rule.go
package rules

import (
	"fmt"
	"log/slog"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/types"
)

/*
 * Rule API.
 *
 * A rule is instantiated once per file: Create receives a Context describing
 * the file and returns Listeners keyed by selector. The lint runner registers
 * every listener on one events.Emitter, so rules never traverse the tree
 * themselves.
 *
 * Findings are collected on the Context and read back by the runner once the
 * walk finishes. A Context belongs to a single file and is not shared between
 * goroutines.
 */

// Meta describes a rule for registries and CLI listings.
type Meta struct {
	Name            string
	Description     string
	DefaultSeverity types.Severity
}

// Handler is called for every node a selector matches.
type Handler func(node *ast.Node) error

// Listeners maps selector text to the handler notified for it.
type Listeners map[string]Handler

// On adds h under selector. A second handler for the same selector runs after
// the first.
func (l Listeners) On(selector string, h Handler) {
	prev, ok := l[selector]
	if !ok {
		l[selector] = h
		return
	}
	l[selector] = func(node *ast.Node) error {
		if err := prev(node); err != nil {
			return err
		}
		return h(node)
	}
}

// Rule produces listeners for one file.
type Rule interface {
	Meta() Meta
	Create(ctx *Context) (Listeners, error)
}

// Context carries per-file state into a rule and collects its findings.
type Context struct {
	RuleID   string
	Severity types.Severity
	Language string
	Path     string
	TypeKey  string
	Options  []any
	Logger   *slog.Logger

	findings []types.Finding
}

// NewContext returns a context for running ruleID on path.
func NewContext(ruleID string, setting types.RuleSetting, language, path string) *Context {
	return &Context{
		RuleID:   ruleID,
		Severity: setting.Severity,
		Language: language,
		Path:     path,
		TypeKey:  types.DefaultNodeTypeKey,
		Options:  setting.Options,
		Logger:   slog.Default().With("rule", ruleID),
	}
}

// Report records a finding at node. Columns are reported 1-based.
func (c *Context) Report(node *ast.Node, format string, args ...any) {
	f := types.Finding{
		RuleID:   c.RuleID,
		Severity: c.Severity,
		Message:  fmt.Sprintf(format, args...),
		Path:     c.Path,
	}
	if node != nil {
		f.NodeType = node.Type(c.TypeKey)
		if node.Loc != nil {
			f.Line = node.Loc.Start.Line
			f.Column = node.Loc.Start.Column + 1
		}
	}
	c.findings = append(c.findings, f)
}

// Findings returns the findings reported so far.
func (c *Context) Findings() []types.Finding {
	return c.findings
}

// firstOption returns Options[0] or nil.
func (c *Context) firstOption() any {
	if len(c.Options) == 0 {
		return nil
	}
	return c.Options[0]
}

func invalidOptions(rule, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", types.ErrInvalidRuleOptions, rule, fmt.Sprintf(format, args...))
}
