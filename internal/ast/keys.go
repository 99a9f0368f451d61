package ast

// skipKeys are never traversed as children: back-references, position data
// and token/comment side tables.
var skipKeys = map[string]bool{
	"parent":   true,
	"loc":      true,
	"range":    true,
	"tokens":   true,
	"comments": true,
	"start":    true,
	"end":      true,
}

// VisitorKeys maps a node type to the ordered field names holding its children.
// Types without an entry fall back to every field except skipKeys.
type VisitorKeys map[string][]string

// ChildKeys returns the fields of n to traverse, in order.
func (vk VisitorKeys) ChildKeys(n *Node, typeKey string) []string {
	if keys, ok := vk[n.Type(typeKey)]; ok {
		return keys
	}
	return n.traversal
}

// Children returns the direct child nodes of n stored under key, in order.
// Arrays may contain holes (nil) and scalars; both are skipped.
func Children(n *Node, key string) []*Node {
	switch v := n.fields[key].(type) {
	case *Node:
		if v == nil {
			return nil
		}
		return []*Node{v}
	case []any:
		out := make([]*Node, 0, len(v))
		for _, elem := range v {
			if child, ok := elem.(*Node); ok && child != nil {
				out = append(out, child)
			}
		}
		return out
	default:
		return nil
	}
}

// Slot is a child's position within its parent: the field it lives in and its
// index within that field's array (-1 for a single-node field).
type Slot struct {
	Key   string
	Index int
	Len   int
}

// SlotOf locates child among the children of parent.
func (vk VisitorKeys) SlotOf(parent, child *Node, typeKey string) (Slot, bool) {
	for _, key := range vk.ChildKeys(parent, typeKey) {
		switch v := parent.fields[key].(type) {
		case *Node:
			if v == child {
				return Slot{Key: key, Index: -1, Len: 1}, true
			}
		case []any:
			for i, elem := range v {
				if c, ok := elem.(*Node); ok && c == child {
					return Slot{Key: key, Index: i, Len: len(v)}, true
				}
			}
		}
	}
	return Slot{}, false
}
