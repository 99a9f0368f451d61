package lint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/core/config"
	"github.com/solatis/treelint/internal/rules"
	"github.com/solatis/treelint/internal/selector"
	"github.com/solatis/treelint/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(settings map[string]types.RuleSetting) *config.LintConfig {
	cfg := config.DefaultLintConfig()
	cfg.Workers = 2
	cfg.Rules = settings
	return cfg
}

const estreeSource = `{"type": "Program", "body": [
 {"type": "DebuggerStatement", "loc": {"start": {"line": 3, "column": 0}, "end": {"line": 3, "column": 9}}},
 {"type": "ExpressionStatement", "expression": {"type": "CallExpression",
   "callee": {"type": "Identifier", "name": "eval", "loc": {"start": {"line": 1, "column": 2}, "end": {"line": 1, "column": 6}}},
   "arguments": []}}
]}`

func TestLintFile_ESTree(t *testing.T) {
	l, err := New(testConfig(map[string]types.RuleSetting{
		"no-eval":     {Severity: types.SeverityError},
		"no-debugger": {Severity: types.SeverityWarn},
	}))
	require.NoError(t, err)

	res, err := l.LintFile(context.Background(), "prog.estree.json", []byte(estreeSource))
	require.NoError(t, err)

	assert.Equal(t, "estree", res.Language)
	assert.Equal(t, xxhash.Sum64String(estreeSource), res.Hash)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "no-eval", res.Findings[0].RuleID, "findings are sorted by position")
	assert.Equal(t, 1, res.Findings[0].Line)
	assert.Equal(t, 3, res.Findings[0].Column)
	assert.Equal(t, "no-debugger", res.Findings[1].RuleID)
	assert.Equal(t, types.SeverityWarn, res.Findings[1].Severity)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Warnings)
}

func TestLintFile_TreeSitter(t *testing.T) {
	l, err := New(testConfig(map[string]types.RuleSetting{
		"no-eval":              {Severity: types.SeverityError},
		"max-nested-functions": {Severity: types.SeverityWarn, Options: []any{1}},
	}))
	require.NoError(t, err)

	src := "function outer() {\n  return () => eval('x');\n}\n"
	res, err := l.LintFile(context.Background(), "src/app.ts", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "typescript", res.Language)
	var got []string
	for _, f := range res.Findings {
		got = append(got, f.RuleID)
	}
	assert.Equal(t, []string{"max-nested-functions", "no-eval"}, got)
	assert.Equal(t, 2, res.Findings[0].Line)
}

func TestLintFile_ParseError(t *testing.T) {
	l, err := New(testConfig(map[string]types.RuleSetting{"no-eval": {Severity: types.SeverityError}}))
	require.NoError(t, err)

	res, err := l.LintFile(context.Background(), "broken.estree.json", []byte(`{"type": `))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, ParseErrorRuleID, res.Findings[0].RuleID)
	assert.True(t, strings.HasPrefix(res.Findings[0].Message, "Parsing error: "))
	assert.Equal(t, 1, res.Errors)
}

func TestLintFile_Limits(t *testing.T) {
	cfg := testConfig(nil)
	cfg.MaxFileSize = 8
	l, err := New(cfg)
	require.NoError(t, err)

	_, err = l.LintFile(context.Background(), "big.js", []byte("var x = 1;"))
	assert.ErrorIs(t, err, types.ErrFileTooLarge)

	_, err = l.LintFile(context.Background(), "notes.txt", []byte("x"))
	assert.ErrorIs(t, err, types.ErrUnsupportedLanguage)
}

func TestLintFile_InvalidSelector(t *testing.T) {
	l, err := New(testConfig(map[string]types.RuleSetting{
		"no-restricted-syntax": {Severity: types.SeverityError, Options: []any{"Foo >"}},
	}), WithCache(selector.NewCache()))
	require.NoError(t, err)

	_, err = l.LintFile(context.Background(), "a.js", []byte("foo;"))
	var se *selector.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Foo >", se.Source)
}

// failing reports an error from its Identifier listener.
type failing struct{}

func (failing) Meta() rules.Meta { return rules.Meta{Name: "failing"} }

func (failing) Create(*rules.Context) (rules.Listeners, error) {
	return rules.Listeners{
		"Identifier": func(*ast.Node) error { return errors.New("Test error") },
	}, nil
}

func TestLintFile_ListenerErrorCarriesNode(t *testing.T) {
	reg := rules.NewRegistry()
	require.NoError(t, reg.Register(failing{}))

	l, err := New(testConfig(map[string]types.RuleSetting{"failing": {Severity: types.SeverityError}}), WithRegistry(reg))
	require.NoError(t, err)

	_, err = l.LintFile(context.Background(), "prog.estree.json", []byte(estreeSource))
	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "Identifier", ne.Node.Type("type"))
	assert.Equal(t, "prog.estree.json", ne.Path)
	assert.EqualError(t, ne.Unwrap(), "Test error")
}

func TestNew_UnknownRule(t *testing.T) {
	_, err := New(testConfig(map[string]types.RuleSetting{"no-evall": {Severity: types.SeverityError}}))
	assert.ErrorIs(t, err, types.ErrUnknownRule)
	assert.Contains(t, err.Error(), `did you mean "no-eval"?`)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.LintConfig)
	}{
		{"zero workers", func(c *config.LintConfig) { c.Workers = 0 }},
		{"too many workers", func(c *config.LintConfig) { c.Workers = types.MaxWorkers + 1 }},
		{"zero max file size", func(c *config.LintConfig) { c.MaxFileSize = 0 }},
		{"empty type key", func(c *config.LintConfig) { c.NodeTypeKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(nil)
			tt.mutate(cfg)
			l, err := New(cfg)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
			assert.Nil(t, l)
		})
	}

	// A hand-built config missing the worker count is rejected instead of
	// stalling the pool.
	_, err := New(&config.LintConfig{MaxFileSize: types.MaxFileSize, NodeTypeKey: "type"})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func TestLintFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.js":            "eval('a');\n",
		"b.py":            "eval('b')\n",
		"c.go":            "package c\n",
		"d.estree.json":   estreeSource,
		"e/clean.js":      "let x = 1;\n",
		"e/deeper/f.tsx":  "debugger;\n",
		"e/deeper/g.json": "{}",
	})
	paths := []string{
		filepath.Join(dir, "e/deeper/f.tsx"),
		filepath.Join(dir, "a.js"),
		filepath.Join(dir, "b.py"),
		filepath.Join(dir, "c.go"),
		filepath.Join(dir, "d.estree.json"),
		filepath.Join(dir, "e/clean.js"),
	}

	l, err := New(testConfig(map[string]types.RuleSetting{
		"no-eval":     {Severity: types.SeverityError},
		"no-debugger": {Severity: types.SeverityError},
	}))
	require.NoError(t, err)

	results, err := l.LintFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	counts := make([]int, len(results))
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path, "results keep input order")
		counts[i] = len(res.Findings)
	}
	assert.Equal(t, []int{1, 1, 1, 0, 2, 0}, counts)
}

func TestLintFiles_Errors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.js": "x;\n"})
	l, err := New(testConfig(nil))
	require.NoError(t, err)

	_, err = l.LintFiles(context.Background(), []string{filepath.Join(dir, "missing.js")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LintFiles(ctx, []string{filepath.Join(dir, "a.js")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/a.js":                  "",
		"src/b.txt":                 "",
		"src/node_modules/dep/x.js": "",
		"src/gen/out.estree.json":   "",
		"lib/c.py":                  "",
		"lib/skip_test.py":          "",
	})
	langs := DefaultLanguages("type")
	rel := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			r, err := filepath.Rel(dir, p)
			require.NoError(t, err)
			out = append(out, filepath.ToSlash(r))
		}
		return out
	}

	files, err := Discover([]string{filepath.Join(dir, "src")}, config.DefaultIgnore, langs)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js", "src/gen/out.estree.json"}, rel(files))

	files, err = Discover([]string{filepath.Join(dir, "lib")}, []string{"**/*_test.py"}, langs)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/c.py"}, rel(files))

	files, err = Discover([]string{filepath.ToSlash(dir) + "/**/*.js", filepath.Join(dir, "src/a.js")}, config.DefaultIgnore, langs)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js"}, rel(files), "duplicates are dropped")

	files, err = Discover([]string{filepath.Join(dir, "src/b.txt")}, nil, langs)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.txt"}, rel(files), "explicit files are kept")

	_, err = Discover([]string{filepath.Join(dir, "absent")}, nil, langs)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Discover(nil, []string{"[unclosed"}, langs)
	assert.Error(t, err)
}

func TestLanguages_ForPath(t *testing.T) {
	langs := DefaultLanguages("type")

	tests := []struct {
		path string
		want string
	}{
		{"a/b.estree.json", "estree"},
		{"x.js", "javascript"},
		{"x.MJS", "javascript"},
		{"x.ts", "typescript"},
		{"x.tsx", "tsx"},
		{"x.go", "go"},
		{"x.pyi", "python"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			lang, err := langs.ForPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lang.Name())
		})
	}

	_, err := langs.ForPath("data.json")
	assert.ErrorIs(t, err, types.ErrUnsupportedLanguage)
	assert.Contains(t, langs.Extensions(), ".estree.json")
}
