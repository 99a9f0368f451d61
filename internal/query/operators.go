// internal/query/operators.go
package query

import (
	"strconv"
	"strings"
)

/*
 * Attribute operator comparison logic.
 *
 * Values come from resolvePath and may be any node field value. Comparison
 * rules follow script-language loose semantics where they are unambiguous:
 *
 *   - exists: value present and not null
 *   - = / != with a string or number: compare the text forms, so [value=5]
 *     matches the number 5 and [raw="5"] matches the string "5"
 *   - = / != with type(name): compare typeOf(value) with name
 *   - = / != with a regexp: the value must be a string that matches
 *   - < <= > >=: numeric when both sides read as numbers, lexicographic
 *     when both are strings, false otherwise
 */

// compareAttribute applies sel's operator to the resolved value.
func compareAttribute(sel Attribute, value any, found bool) bool {
	switch sel.Op {
	case OpExists:
		return found && value != nil
	case OpEq:
		return compareEqual(sel.Value, value, found)
	case OpNeq:
		return !compareEqual(sel.Value, value, found)
	case OpLt, OpLte, OpGt, OpGte:
		c, ok := compareOrdered(value, found, sel.Value)
		if !ok {
			return false
		}
		switch sel.Op {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	default:
		return false
	}
}

func compareEqual(want Value, value any, found bool) bool {
	switch want.Kind {
	case ValueRegexp:
		s, ok := value.(string)
		return ok && want.Regexp.MatchString(s)
	case ValueType:
		return typeOf(value, found) == want.Text
	case ValueNumber:
		if n, ok := toFloat64(value); ok {
			return n == want.Number
		}
		return textOf(value, found) == want.String()
	default:
		return textOf(value, found) == want.Text
	}
}

// compareOrdered performs a three-way comparison (-1/0/1) of value against
// want. ok is false when the two have no ordering.
func compareOrdered(value any, found bool, want Value) (int, bool) {
	if !found {
		return 0, false
	}

	if want.Kind == ValueString {
		if s, ok := value.(string); ok {
			return strings.Compare(s, want.Text), true
		}
	}

	target, ok := asNumber(want)
	if !ok {
		return 0, false
	}
	n, ok := coerceNumeric(value)
	if !ok {
		return 0, false
	}
	switch {
	case n < target:
		return -1, true
	case n > target:
		return 1, true
	default:
		return 0, true
	}
}

func asNumber(v Value) (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Number, true
	case ValueString:
		return coerceNumeric(v.Text)
	default:
		return 0, false
	}
}

// coerceNumeric converts value to float64. Numeric strings are accepted after
// trimming; booleans and null are not numbers here.
func coerceNumeric(value any) (float64, bool) {
	if n, ok := toFloat64(value); ok {
		return n, true
	}
	s, ok := value.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// toFloat64 converts value to float64 if it's a numeric type.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
