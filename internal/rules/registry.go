package rules

import (
	"fmt"
	"sort"

	"github.com/hbollon/go-edlib"

	"github.com/solatis/treelint/internal/types"
)

// maxSuggestDistance bounds how far a misspelled rule name may be from a
// registered one before no suggestion is offered.
const maxSuggestDistance = 3

// Registry holds rules by name.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Builtins returns a registry holding every built-in rule.
func Builtins() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		NoRestrictedSyntax{},
		NoEval{},
		NoDebugger{},
		MaxNestedFunctions{},
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds rule under its Meta name. Names are unique.
func (r *Registry) Register(rule Rule) error {
	name := rule.Meta().Name
	if name == "" {
		return fmt.Errorf("rule has no name")
	}
	if _, exists := r.rules[name]; exists {
		return fmt.Errorf("rule %q already registered", name)
	}
	r.rules[name] = rule
	return nil
}

// Lookup returns the rule registered under name. Unknown names wrap
// types.ErrUnknownRule and suggest the closest registered name.
func (r *Registry) Lookup(name string) (Rule, error) {
	if rule, ok := r.rules[name]; ok {
		return rule, nil
	}
	if suggestion := r.suggest(name); suggestion != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", types.ErrUnknownRule, name, suggestion)
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownRule, name)
}

// Names returns registered rule names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// suggest finds the registered name with the smallest Levenshtein distance.
func (r *Registry) suggest(name string) string {
	best, bestDistance := "", maxSuggestDistance+1
	for _, candidate := range r.Names() {
		if d := edlib.LevenshteinDistance(name, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// Enabled is a rule paired with its resolved setting.
type Enabled struct {
	ID      string
	Rule    Rule
	Setting types.RuleSetting
}

// Resolve validates settings against the registry and returns the rules that
// are not switched off, sorted by name. The first unknown name fails.
func (r *Registry) Resolve(settings map[string]types.RuleSetting) ([]Enabled, error) {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	enabled := make([]Enabled, 0, len(names))
	for _, name := range names {
		rule, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		setting := settings[name]
		if setting.Severity == types.SeverityOff {
			continue
		}
		enabled = append(enabled, Enabled{ID: name, Rule: rule, Setting: setting})
	}
	return enabled, nil
}
