package ast

import "github.com/solatis/treelint/internal/types"

// Visitor receives enter/leave callbacks for every node in depth-first order.
type Visitor interface {
	EnterNode(node *Node) error
	LeaveNode(node *Node) error
}

// WalkOptions selects how children are discovered.
type WalkOptions struct {
	TypeKey     string      // defaults to types.DefaultNodeTypeKey
	VisitorKeys VisitorKeys // nil uses fallback keys for every type
}

// Walk visits root and its descendants: EnterNode, then children in key
// order, then LeaveNode. The first error stops the walk and is returned
// unchanged.
func Walk(root *Node, v Visitor, opts WalkOptions) error {
	if root == nil {
		return types.ErrNilNode
	}
	if opts.TypeKey == "" {
		opts.TypeKey = types.DefaultNodeTypeKey
	}
	return walk(root, v, &opts)
}

func walk(n *Node, v Visitor, opts *WalkOptions) error {
	if err := v.EnterNode(n); err != nil {
		return err
	}

	for _, key := range opts.VisitorKeys.ChildKeys(n, opts.TypeKey) {
		switch val := n.fields[key].(type) {
		case *Node:
			if val == nil {
				continue
			}
			if err := walk(val, v, opts); err != nil {
				return err
			}
		case []any:
			for _, elem := range val {
				child, ok := elem.(*Node)
				if !ok || child == nil {
					continue
				}
				if err := walk(child, v, opts); err != nil {
					return err
				}
			}
		}
	}

	return v.LeaveNode(n)
}

// Inspect calls fn for n and every descendant in pre-order until fn returns false.
// Descendants of a node for which fn returns false are skipped.
// The ancestry passed to fn is nearest first and only valid during the call.
func Inspect(n *Node, keys VisitorKeys, typeKey string, fn func(node *Node, ancestry []*Node) bool) {
	var stack ancestorStack
	var rec func(node *Node)
	rec = func(node *Node) {
		if !fn(node, stack.view()) {
			return
		}
		stack.push(node)
		for _, key := range keys.ChildKeys(node, typeKey) {
			for _, child := range Children(node, key) {
				rec(child)
			}
		}
		stack.pop()
	}
	rec(n)
}

// ancestorStack keeps entries right-aligned in back so pushing the nearest
// ancestor moves start only and view is a plain subslice.
type ancestorStack struct {
	back  []*Node
	start int
}

func (s *ancestorStack) push(n *Node) {
	if s.start == 0 {
		size := max(2*len(s.back), 16)
		next := make([]*Node, size)
		used := len(s.back) - s.start
		copy(next[size-used:], s.back[s.start:])
		s.back, s.start = next, size-used
	}
	s.start--
	s.back[s.start] = n
}

func (s *ancestorStack) pop() {
	s.back[s.start] = nil
	s.start++
}

func (s *ancestorStack) view() []*Node {
	return s.back[s.start:]
}
