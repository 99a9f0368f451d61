// Package lint runs rules over source files.
//
// A Linter resolves the configured rules once and then lints files
// independently: each file gets its own rule contexts, emitter and event
// generator, so files can be processed in parallel while the compiled
// selector cache is shared.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/core/config"
	"github.com/solatis/treelint/internal/events"
	"github.com/solatis/treelint/internal/query"
	"github.com/solatis/treelint/internal/rules"
	"github.com/solatis/treelint/internal/selector"
	"github.com/solatis/treelint/internal/types"
)

// ParseErrorRuleID is the rule ID of the finding reported for a file that
// could not be parsed.
const ParseErrorRuleID = "parse-error"

// FileResult is the outcome of linting one file.
type FileResult struct {
	Path     string          `json:"path"`
	Language string          `json:"language"`
	Hash     uint64          `json:"hash"`
	Findings []types.Finding `json:"findings"`
	Errors   int             `json:"errorCount"`
	Warnings int             `json:"warningCount"`
}

// NodeError reports a failure raised while a node was being visited.
type NodeError struct {
	Path string
	Node *ast.Node
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: while visiting %s: %v", e.Path, e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Linter lints files with a fixed rule set.
type Linter struct {
	cfg         *config.LintConfig
	enabled     []rules.Enabled
	registry    *rules.Registry
	languages   *Languages
	visitorKeys ast.VisitorKeys
	cache       *selector.Cache
	logger      *slog.Logger
}

// Option configures a Linter.
type Option func(*Linter)

// WithRegistry resolves rules against r instead of the built-ins.
func WithRegistry(r *rules.Registry) Option {
	return func(l *Linter) {
		l.registry = r
	}
}

// WithLanguages replaces the default language set.
func WithLanguages(ls *Languages) Option {
	return func(l *Linter) {
		l.languages = ls
	}
}

// WithCache compiles selectors through c.
func WithCache(c *selector.Cache) Option {
	return func(l *Linter) {
		l.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linter) {
		l.logger = logger
	}
}

// New validates cfg, resolves cfg.Rules and returns a linter. Unknown rule
// names fail here rather than per file.
func New(cfg *config.LintConfig, opts ...Option) (*Linter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Linter{
		cfg:         cfg,
		registry:    rules.Builtins(),
		visitorKeys: ast.VisitorKeys(cfg.VisitorKeys),
		cache:       selector.Default(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.languages == nil {
		l.languages = DefaultLanguages(cfg.NodeTypeKey)
	}

	enabled, err := l.registry.Resolve(cfg.Rules)
	if err != nil {
		return nil, err
	}
	l.enabled = enabled

	l.logger.Debug("linter configured", "rules", len(enabled), "workers", cfg.Workers)
	return l, nil
}

// Languages returns the language set used to resolve file paths.
func (l *Linter) Languages() *Languages {
	return l.languages
}

// LintFile lints content as the file at path. A file that fails to parse
// yields a single parse-error finding rather than an error.
func (l *Linter) LintFile(ctx context.Context, path string, content []byte) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	if int64(len(content)) > l.cfg.MaxFileSize {
		return FileResult{}, fmt.Errorf("%w: %s (%d bytes)", types.ErrFileTooLarge, path, len(content))
	}

	lang, err := l.languages.ForPath(path)
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{
		Path:     path,
		Language: lang.Name(),
		Hash:     xxhash.Sum64(content),
	}

	root, err := lang.Parse(content)
	if err != nil {
		l.logger.Debug("parse failed", "path", path, "error", err)
		result.Findings = []types.Finding{{
			RuleID:   ParseErrorRuleID,
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("Parsing error: %v", err),
			Path:     path,
		}}
		result.Errors = 1
		return result, nil
	}

	emitter := events.NewEmitter()
	contexts := make([]*rules.Context, 0, len(l.enabled))
	for _, e := range l.enabled {
		rctx := rules.NewContext(e.ID, e.Setting, lang.Name(), path)
		rctx.TypeKey = lang.TypeKey()
		rctx.Logger = l.logger.With("rule", e.ID, "path", path)

		listeners, err := e.Rule.Create(rctx)
		if err != nil {
			return FileResult{}, fmt.Errorf("rule %s: %w", e.ID, err)
		}
		selectors := make([]string, 0, len(listeners))
		for s := range listeners {
			selectors = append(selectors, s)
		}
		sort.Strings(selectors)
		for _, s := range selectors {
			if err := emitter.On(s, events.ListenerFunc(listeners[s])); err != nil {
				return FileResult{}, fmt.Errorf("rule %s: %w", e.ID, err)
			}
		}
		contexts = append(contexts, rctx)
	}

	gen, err := events.NewGenerator(emitter,
		events.WithQueryOptions(query.Options{NodeTypeKey: lang.TypeKey(), VisitorKeys: l.visitorKeys}),
		events.WithCache(l.cache),
		events.WithLogger(l.logger),
	)
	if err != nil {
		return FileResult{}, err
	}

	t := &tracker{ctx: ctx, gen: gen}
	err = ast.Walk(root, t, ast.WalkOptions{TypeKey: lang.TypeKey(), VisitorKeys: l.visitorKeys})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return FileResult{}, err
		}
		return FileResult{}, &NodeError{Path: path, Node: t.current, Err: err}
	}

	for _, rctx := range contexts {
		result.Findings = append(result.Findings, rctx.Findings()...)
	}
	slices.SortStableFunc(result.Findings, func(a, b types.Finding) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	for _, f := range result.Findings {
		switch f.Severity {
		case types.SeverityError:
			result.Errors++
		case types.SeverityWarn:
			result.Warnings++
		}
	}
	return result, nil
}

// LintFiles reads and lints paths on a bounded worker pool. Results keep the
// order of paths. The first failure cancels the remaining files.
func (l *Linter) LintFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)

	for i, path := range paths {
		g.Go(func() error {
			content, err := l.readFile(path)
			if err != nil {
				return err
			}
			res, err := l.LintFile(ctx, path, content)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readFile checks the size limit before reading so oversized files are
// never loaded.
func (l *Linter) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", types.ErrFileTooLarge, path, info.Size())
	}
	return os.ReadFile(path)
}

// tracker remembers the node being visited so traversal failures can name it,
// and stops the walk once ctx is done.
type tracker struct {
	ctx     context.Context
	gen     *events.Generator
	current *ast.Node
}

func (t *tracker) EnterNode(n *ast.Node) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	t.current = n
	return t.gen.EnterNode(n)
}

func (t *tracker) LeaveNode(n *ast.Node) error {
	t.current = n
	return t.gen.LeaveNode(n)
}
