// internal/query/path.go
package query

import (
	"strconv"

	"github.com/solatis/treelint/internal/ast"
)

/*
 * Attribute path resolution.
 *
 * Follows a dotted path from a node through nested nodes, plain objects and
 * arrays. Array segments must be decimal indexes. Resolution never fails
 * loudly: a missing key, an out-of-range index or a scalar in the middle of the
 * path all report found=false, which attribute operators treat as undefined.
 *
 * Path length is bounded at parse time (types.MaxPathDepth), so resolution is
 * a simple loop.
 */

// resolvePath returns the value at path below n.
func resolvePath(n *ast.Node, path []string) (any, bool) {
	var current any = n
	for _, seg := range path {
		switch v := current.(type) {
		case *ast.Node:
			if v == nil {
				return nil, false
			}
			val, ok := v.Get(seg)
			if !ok {
				return nil, false
			}
			current = val
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			// scalar or nil with path remaining
			return nil, false
		}
	}
	return current, true
}

// inPath reports whether target is reached from current by following
// path[from:], fanning out across arrays. Used by field selectors.
func inPath(target *ast.Node, current any, path []string, from int) bool {
	for i := from; i < len(path); i++ {
		var next any
		switch v := current.(type) {
		case *ast.Node:
			if v == nil {
				return false
			}
			next, _ = v.Get(path[i])
		case map[string]any:
			next = v[path[i]]
		default:
			return false
		}

		if arr, ok := next.([]any); ok {
			for _, elem := range arr {
				if inPath(target, elem, path, i+1) {
					return true
				}
			}
			return false
		}
		current = next
	}

	n, ok := current.(*ast.Node)
	return ok && n == target
}
