// internal/query/classes.go
package query

import (
	"slices"
	"strings"

	"github.com/solatis/treelint/internal/ast"
)

var functionTypes = []string{
	"FunctionDeclaration",
	"FunctionExpression",
	"ArrowFunctionExpression",
}

// FunctionTypes returns the node types matched by ":function".
// The class is bound to this list for every language so selector analysis can
// narrow it statically.
func FunctionTypes() []string {
	return slices.Clone(functionTypes)
}

// ClassMatcher decides custom ":name" classes. name is lower-case.
type ClassMatcher func(name string, node *ast.Node, ancestry []*ast.Node) bool

// estreeClass implements the ESTree categories ":statement", ":declaration",
// ":pattern" and ":expression".
func estreeClass(name string, typ string, ancestry []*ast.Node, typeKey string) bool {
	switch name {
	case "statement":
		return strings.HasSuffix(typ, "Statement") || strings.HasSuffix(typ, "Declaration")
	case "declaration":
		return strings.HasSuffix(typ, "Declaration")
	case "pattern":
		return strings.HasSuffix(typ, "Pattern") || isExpression(typ, ancestry, typeKey)
	case "expression":
		return isExpression(typ, ancestry, typeKey)
	default:
		return false
	}
}

// isExpression treats literals and identifiers as expressions, except the
// identifiers that name the parts of a MetaProperty (new.target).
func isExpression(typ string, ancestry []*ast.Node, typeKey string) bool {
	switch {
	case strings.HasSuffix(typ, "Expression"), strings.HasSuffix(typ, "Literal"):
		return true
	case typ == "MetaProperty":
		return true
	case typ == "Identifier":
		return len(ancestry) == 0 || ancestry[0].Type(typeKey) != "MetaProperty"
	default:
		return false
	}
}
