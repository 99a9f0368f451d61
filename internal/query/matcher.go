// internal/query/matcher.go
package query

import (
	"slices"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/types"
)

/*
 * Selector matching.
 *
 * Match tests one node against a parsed selector given the node's ancestry
 * (nearest ancestor first). It is read-only with respect to the node and the
 * ancestry slice, and total: every selector/node pair yields true or false.
 *
 * Relations test the right operand against the node itself and the left
 * operand against a related node:
 *   - child: ancestry[0]
 *   - descendant: any ancestor
 *   - sibling: any earlier element of the array holding the node
 *   - adjacent: the element right before the node in that array
 *
 * :has() walks the node's subtree with an ancestry that stops at the node,
 * so relations written inside it cannot reach outside the subtree.
 *
 * Type tags compare case-sensitively. Selector analysis buckets selectors by
 * exact type name; case-folding here would let a selector fire on a type it
 * was never bucketed under.
 */

// Options configures matching. The zero value matches ESTree trees.
type Options struct {
	// NodeTypeKey names the field holding each node's type tag.
	NodeTypeKey string
	// VisitorKeys selects child fields for :has(), sibling and nth-child tests.
	VisitorKeys ast.VisitorKeys
	// MatchClass decides classes other than ":function". When nil the ESTree
	// categories are used.
	MatchClass ClassMatcher
}

// TypeKey returns the configured type key or the default.
func (o *Options) TypeKey() string {
	if o == nil || o.NodeTypeKey == "" {
		return types.DefaultNodeTypeKey
	}
	return o.NodeTypeKey
}

// Match reports whether node satisfies sel. ancestry lists the node's
// ancestors, nearest first. opts may be nil.
func Match(node *ast.Node, sel Selector, ancestry []*ast.Node, opts *Options) bool {
	if node == nil || sel == nil {
		return false
	}
	m := matcher{typeKey: opts.TypeKey()}
	if opts != nil {
		m.keys = opts.VisitorKeys
		m.class = opts.MatchClass
	}
	return m.match(node, sel, ancestry)
}

type matcher struct {
	typeKey string
	keys    ast.VisitorKeys
	class   ClassMatcher
}

func (m *matcher) match(node *ast.Node, sel Selector, ancestry []*ast.Node) bool {
	switch s := sel.(type) {
	case Wildcard:
		return true

	case Identifier:
		return node.Type(m.typeKey) == s.Name

	case Field:
		if len(s.Path) > len(ancestry) {
			return false
		}
		return inPath(node, ancestry[len(s.Path)-1], s.Path, 0)

	case Attribute:
		value, found := resolvePath(node, s.Path)
		return compareAttribute(s, value, found)

	case NthChild:
		return m.nthChild(node, s, ancestry)

	case Class:
		return m.matchClass(node, s.Name, ancestry)

	case Not:
		for _, inner := range s.Selectors {
			if m.match(node, inner, ancestry) {
				return false
			}
		}
		return true

	case Matches:
		for _, inner := range s.Selectors {
			if m.match(node, inner, ancestry) {
				return true
			}
		}
		return false

	case Compound:
		for _, inner := range s.Selectors {
			if !m.match(node, inner, ancestry) {
				return false
			}
		}
		return true

	case Has:
		return m.has(node, s)

	case Scope:
		return len(ancestry) == 0

	case Relation:
		if !m.match(node, s.Right, ancestry) {
			return false
		}
		return m.related(node, s, ancestry)

	default:
		return false
	}
}

func (m *matcher) related(node *ast.Node, s Relation, ancestry []*ast.Node) bool {
	switch s.Kind {
	case Child:
		return len(ancestry) > 0 && m.match(ancestry[0], s.Left, ancestry[1:])

	case Descendant:
		for i, anc := range ancestry {
			if m.match(anc, s.Left, ancestry[i+1:]) {
				return true
			}
		}
		return false

	case Sibling, Adjacent:
		siblings, idx := m.siblings(node, ancestry)
		if idx < 0 {
			return false
		}
		lo := 0
		if s.Kind == Adjacent {
			lo = idx - 1
		}
		for k := max(lo, 0); k < idx; k++ {
			sib, ok := siblings[k].(*ast.Node)
			if ok && sib != nil && m.match(sib, s.Left, ancestry) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// siblings returns the array holding node in its parent and node's index in
// it, or -1 when the node is not an array element.
func (m *matcher) siblings(node *ast.Node, ancestry []*ast.Node) ([]any, int) {
	if len(ancestry) == 0 {
		return nil, -1
	}
	parent := ancestry[0]
	slot, ok := m.keys.SlotOf(parent, node, m.typeKey)
	if !ok || slot.Index < 0 {
		return nil, -1
	}
	arr, _ := parent.Get(slot.Key)
	list, _ := arr.([]any)
	return list, slot.Index
}

func (m *matcher) nthChild(node *ast.Node, s NthChild, ancestry []*ast.Node) bool {
	siblings, idx := m.siblings(node, ancestry)
	if idx < 0 {
		return false
	}
	want := s.Index - 1
	if s.FromEnd {
		want = len(siblings) - s.Index
	}
	return idx == want
}

func (m *matcher) matchClass(node *ast.Node, name string, ancestry []*ast.Node) bool {
	typ := node.Type(m.typeKey)
	if name == "function" {
		return slices.Contains(functionTypes, typ)
	}
	if m.class != nil {
		return m.class(name, node, ancestry)
	}
	return estreeClass(name, typ, ancestry, m.typeKey)
}

func (m *matcher) has(node *ast.Node, s Has) bool {
	found := false
	ast.Inspect(node, m.keys, m.typeKey, func(n *ast.Node, ancestry []*ast.Node) bool {
		if found {
			return false
		}
		if n == node {
			return true
		}
		for _, inner := range s.Selectors {
			if m.match(n, inner, ancestry) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
