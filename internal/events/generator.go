package events

import (
	"log/slog"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/query"
	"github.com/solatis/treelint/internal/selector"
)

// Generator turns enter/leave traversal callbacks into selector events.
//
// At construction every selector registered on the emitter is compiled and
// placed in a dispatch table: one bucket per node type it can match, or the
// any-type list when its types are unbounded, separately for the enter and
// exit phases. Each bucket is sorted least specific first.
//
// For every node the generator merges the node type's bucket with the
// any-type list in specificity order, runs the matcher on each candidate and
// emits the matches. A Generator serves one traversal at a time and is not
// safe for concurrent use.
type Generator struct {
	emitter *Emitter
	opts    query.Options
	typeKey string
	cache   *selector.Cache
	logger  *slog.Logger

	enter phaseTable
	exit  phaseTable

	stack ancestry
}

type phaseTable struct {
	byType  map[string][]*selector.Compiled
	anyType []*selector.Compiled
}

// Option configures a Generator.
type Option func(*Generator)

// WithQueryOptions sets the matcher options, including the node type key used
// for bucketing.
func WithQueryOptions(opts query.Options) Option {
	return func(g *Generator) {
		g.opts = opts
	}
}

// WithCache compiles selectors through c instead of the process-wide cache.
func WithCache(c *selector.Cache) Option {
	return func(g *Generator) {
		g.cache = c
	}
}

// WithLogger sets the logger for dispatch table diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// NewGenerator builds the dispatch table for every selector registered on
// emitter. The first selector that fails to compile aborts construction and
// its error is returned unchanged.
func NewGenerator(emitter *Emitter, opts ...Option) (*Generator, error) {
	g := &Generator{
		emitter: emitter,
		cache:   selector.Default(),
		logger:  slog.Default(),
		enter:   phaseTable{byType: make(map[string][]*selector.Compiled)},
		exit:    phaseTable{byType: make(map[string][]*selector.Compiled)},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.typeKey = g.opts.TypeKey()

	for _, source := range emitter.Selectors() {
		c, err := g.cache.Compile(source)
		if err != nil {
			return nil, err
		}

		table := &g.enter
		if c.IsExit {
			table = &g.exit
		}
		if c.CandidateTypes == nil {
			table.anyType = append(table.anyType, c)
			continue
		}
		for _, typ := range c.CandidateTypes {
			table.byType[typ] = append(table.byType[typ], c)
		}
	}

	for _, table := range []*phaseTable{&g.enter, &g.exit} {
		selector.Sort(table.anyType)
		for _, list := range table.byType {
			selector.Sort(list)
		}
	}

	g.logger.Debug("dispatch table built",
		"selectors", len(emitter.Selectors()),
		"enter_types", len(g.enter.byType),
		"exit_types", len(g.exit.byType),
		"enter_any", len(g.enter.anyType),
		"exit_any", len(g.exit.anyType),
	)
	return g, nil
}

// EnterNode emits enter-phase events for node, then makes it the nearest
// ancestor of the nodes visited next.
func (g *Generator) EnterNode(node *ast.Node) error {
	if err := g.dispatch(node, &g.enter); err != nil {
		return err
	}
	g.stack.push(node)
	return nil
}

// LeaveNode restores node's own ancestry, then emits exit-phase events.
func (g *Generator) LeaveNode(node *ast.Node) error {
	g.stack.pop()
	return g.dispatch(node, &g.exit)
}

// Ancestry returns a copy of the current ancestry, nearest first. While a
// listener runs it holds the proper ancestors of the notified node.
func (g *Generator) Ancestry() []*ast.Node {
	view := g.stack.view()
	out := make([]*ast.Node, len(view))
	copy(out, view)
	return out
}

// Depth returns the number of open ancestors.
func (g *Generator) Depth() int {
	return g.stack.len()
}

// dispatch merges the type bucket and the any-type list by specificity and
// emits every selector that matches node. An any-type selector goes first
// only when it is strictly less specific than the next typed one.
func (g *Generator) dispatch(node *ast.Node, table *phaseTable) error {
	typed := table.byType[node.Type(g.typeKey)]
	anyType := table.anyType

	i, j := 0, 0
	for i < len(typed) || j < len(anyType) {
		var next *selector.Compiled
		if i >= len(typed) || (j < len(anyType) && selector.Compare(anyType[j], typed[i]) < 0) {
			next = anyType[j]
			j++
		} else {
			next = typed[i]
			i++
		}

		if !query.Match(node, next.Root, g.stack.view(), &g.opts) {
			continue
		}
		if err := g.emitter.Emit(next.Source, node); err != nil {
			return err
		}
	}
	return nil
}
