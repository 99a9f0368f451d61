// internal/query/typeof.go
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/treelint/internal/ast"
)

/*
 * Value classification for attribute comparison.
 *
 * Node field values are a small closed set (string, float64, bool, nil,
 * *ast.Node, []any, map[string]any). Selectors written against ESTree trees
 * expect script-language names for them, so typeOf uses "undefined" for a
 * missing field, "object" for null, nodes, arrays and maps, and the obvious
 * names otherwise.
 *
 * textOf renders the string form used by = and != with literal values:
 * numbers without trailing zeros, arrays as comma-joined elements and
 * objects as "[object Object]".
 */

// typeOf names the type of an attribute value.
func typeOf(value any, found bool) string {
	if !found {
		return "undefined"
	}
	switch value.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "object"
	}
}

// textOf renders value as text for literal comparison.
func textOf(value any, found bool) string {
	if !found {
		return "undefined"
	}
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			if elem != nil {
				parts[i] = textOf(elem, true)
			}
		}
		return strings.Join(parts, ",")
	case *ast.Node, map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
