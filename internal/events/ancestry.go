package events

import "github.com/solatis/treelint/internal/ast"

// ancestry is the stack of open nodes, nearest first.
//
// Entries are right-aligned in back, so a push at the front only moves
// start and view is a plain subslice. Growing copies the entries once per
// doubling, which keeps push amortized O(1).
type ancestry struct {
	// back holds nearest-first entries in back[start:].
	back  []*ast.Node
	start int
}

// push makes n the nearest ancestor.
func (a *ancestry) push(n *ast.Node) {
	if a.start == 0 {
		a.grow()
	}
	a.start--
	a.back[a.start] = n
}

// pop removes and returns the nearest ancestor, or nil when empty.
func (a *ancestry) pop() *ast.Node {
	if a.start == len(a.back) {
		return nil
	}
	n := a.back[a.start]
	a.back[a.start] = nil
	a.start++
	return n
}

// view returns the stack nearest first. The slice is only valid until the
// next push or pop and must not be modified.
func (a *ancestry) view() []*ast.Node {
	return a.back[a.start:]
}

func (a *ancestry) len() int {
	return len(a.back) - a.start
}

// grow doubles capacity, keeping entries right-aligned.
func (a *ancestry) grow() {
	size := len(a.back) * 2
	if size < 16 {
		size = 16
	}
	next := make([]*ast.Node, size)
	used := len(a.back) - a.start
	copy(next[size-used:], a.back[a.start:])
	a.back = next
	a.start = size - used
}
