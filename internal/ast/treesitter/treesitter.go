// Package treesitter turns tree-sitter concrete syntax trees into *ast.Node
// trees so selectors can run over any grammar the linter ships with.
//
// Conversion rules:
//   - the node kind is stored under "type"
//   - named children reached through a grammar field are stored under the
//     field name (an array when the field repeats)
//   - other named children are collected, in order, under "children"
//   - anonymous tokens reached through a field (operators, keywords) are stored
//     as their source text under the field name
//   - named leaves carry their source text under "text"
//
// Field names that collide with the keys above ("type" in the Go and
// TypeScript grammars) get a "Field" suffix, so a Go parameter's type is
// reachable as [typeField.type="type_identifier"].
package treesitter

import (
	"fmt"
	"slices"
	"sort"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/types"
)

// Grammar describes one tree-sitter language binding.
type Grammar struct {
	Name       string
	Extensions []string
	language   func() unsafe.Pointer
}

var reserved = map[string]bool{
	types.DefaultNodeTypeKey: true,
	"text":                   true,
	"children":               true,
	"error":                  true,
}

var grammars = []Grammar{
	{Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, language: tree_sitter_javascript.Language},
	{Name: "typescript", Extensions: []string{".ts", ".mts", ".cts"}, language: tree_sitter_typescript.LanguageTypescript},
	{Name: "tsx", Extensions: []string{".tsx"}, language: tree_sitter_typescript.LanguageTSX},
	{Name: "go", Extensions: []string{".go"}, language: tree_sitter_go.Language},
	{Name: "python", Extensions: []string{".py", ".pyi"}, language: tree_sitter_python.Language},
}

// Grammars returns the available grammars sorted by name.
func Grammars() []Grammar {
	out := slices.Clone(grammars)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a grammar by name.
func Lookup(name string) (Grammar, bool) {
	for _, g := range grammars {
		if g.Name == name {
			return g, true
		}
	}
	return Grammar{}, false
}

// Parse parses src with the grammar and converts the result.
// Syntax errors inside the source do not fail the parse; tree-sitter recovers
// and marks them as ERROR nodes, which stay selectable.
func (g Grammar) Parse(src []byte) (*ast.Node, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tree_sitter.NewLanguage(g.language())); err != nil {
		return nil, fmt.Errorf("%w: loading %s grammar: %v", types.ErrUnsupportedLanguage, g.Name, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s parser returned no tree", types.ErrInvalidTree, g.Name)
	}
	defer tree.Close()

	root := tree.RootNode()
	return Convert(root, src), nil
}

// Convert copies a tree-sitter subtree into an ast.Node tree.
// The result does not reference the tree-sitter tree, which may be closed afterwards.
func Convert(n *tree_sitter.Node, src []byte) *ast.Node {
	out := ast.NewTyped(n.Kind())
	start, end := n.StartPosition(), n.EndPosition()
	out.At(int(start.Row)+1, int(start.Column), int(end.Row)+1, int(end.Column))

	if n.IsError() || n.IsMissing() {
		out.Set("error", true)
	}

	var (
		order    []string
		fields   = map[string][]any{}
		children []any
	)
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		field := n.FieldNameForChild(uint32(i))
		if reserved[field] {
			field += "Field"
		}

		var value any
		switch {
		case child.IsNamed():
			value = Convert(child, src)
		case field != "":
			value = child.Utf8Text(src)
		default:
			continue
		}

		if field == "" {
			children = append(children, value)
			continue
		}
		if _, seen := fields[field]; !seen {
			order = append(order, field)
		}
		fields[field] = append(fields[field], value)
	}

	for _, field := range order {
		if vals := fields[field]; len(vals) == 1 {
			out.Set(field, vals[0])
		} else {
			out.Set(field, vals)
		}
	}
	if len(children) > 0 {
		out.Set("children", children)
	}
	if n.NamedChildCount() == 0 {
		out.Set("text", n.Utf8Text(src))
	}
	return out
}
