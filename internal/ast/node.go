// Package ast provides the generic syntax tree consumed by the selector engine.
//
// Trees come from different producers (ESTree JSON, tree-sitter grammars) so
// a Node is an ordered field map rather than a fixed struct. The node's type
// tag lives in one of its fields; which field is configurable per language
// (DefaultNodeTypeKey for ESTree). Field values are limited to string,
// float64, bool, nil, *Node, []any and map[string]any.
package ast

import (
	"fmt"

	"github.com/solatis/treelint/internal/types"
)

// Position is a point in the source text. Line is 1-based, Column is 0-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location is the source span covered by a node.
type Location struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Node is a single syntax tree node.
// A Node is never mutated once traversal starts; producers build it fully first.
type Node struct {
	keys      []string
	traversal []string // keys eligible for fallback child traversal
	fields    map[string]any

	// Loc is nil when the producer supplied no position information.
	Loc *Location
}

// New creates an empty node.
func New() *Node {
	return &Node{fields: make(map[string]any)}
}

// NewTyped creates a node whose DefaultNodeTypeKey field is set to typ.
func NewTyped(typ string) *Node {
	return New().Set(types.DefaultNodeTypeKey, typ)
}

// Set assigns a field and returns the node for chaining.
// Keys keep their first insertion order.
func (n *Node) Set(key string, value any) *Node {
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
		if !skipKeys[key] {
			n.traversal = append(n.traversal, key)
		}
	}
	n.fields[key] = value
	return n
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (any, bool) {
	v, ok := n.fields[key]
	return v, ok
}

// Keys returns field names in insertion order. The slice must not be modified.
func (n *Node) Keys() []string {
	return n.keys
}

// Type returns the string stored under typeKey, or "" when absent or not a string.
func (n *Node) Type(typeKey string) string {
	s, _ := n.fields[typeKey].(string)
	return s
}

// String renders the default type tag and start position, for diagnostics.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	typ := n.Type(types.DefaultNodeTypeKey)
	if n.Loc == nil {
		return typ
	}
	return fmt.Sprintf("%s@%d:%d", typ, n.Loc.Start.Line, n.Loc.Start.Column)
}

// At sets the node's location and returns the node for chaining.
func (n *Node) At(startLine, startCol, endLine, endCol int) *Node {
	n.Loc = &Location{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
	return n
}
