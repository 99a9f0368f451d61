// internal/query/selector.go
package query

import (
	"regexp"
	"strconv"
	"strings"
)

/*
 * Selector syntax tree.
 *
 * A parsed selector is a closed sum type: every variant implements the
 * unexported selector() marker, so only this package can add shapes. Consumers
 * (the matcher here, the analyzer in internal/selector) switch on the concrete
 * type.
 *
 * Values are immutable after Parse returns. String() renders canonical
 * selector text that parses back to an equal tree.
 */

// Selector is one node of a parsed selector.
type Selector interface {
	selector()
	String() string
}

// Wildcard matches every node: "*".
type Wildcard struct{}

// Identifier matches nodes whose type tag equals Name: "Identifier".
type Identifier struct {
	Name string
}

// Field matches a node reached from an ancestor along a key path: ".init.callee".
type Field struct {
	Path []string
}

// AttrOp is the comparison operator of an attribute selector.
type AttrOp int

const (
	OpExists AttrOp = iota // [attr]
	OpEq                   // [attr=v]
	OpNeq                  // [attr!=v]
	OpLt                   // [attr<v]
	OpLte                  // [attr<=v]
	OpGt                   // [attr>v]
	OpGte                  // [attr>=v]
)

var opText = map[AttrOp]string{
	OpEq:  "=",
	OpNeq: "!=",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

func (op AttrOp) String() string {
	if op == OpExists {
		return ""
	}
	return opText[op]
}

// ValueKind distinguishes attribute value forms.
type ValueKind int

const (
	ValueString ValueKind = iota // "foo", 'foo' or a bare name
	ValueNumber                  // 42, 1.5
	ValueType                    // type(string)
	ValueRegexp                  // /^foo/i
)

// Value is the right-hand side of an attribute comparison.
type Value struct {
	Kind   ValueKind
	Text   string // string literal, type name or regexp source
	Number float64
	Flags  string // regexp flags as written
	Regexp *regexp.Regexp
}

func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueType:
		return "type(" + v.Text + ")"
	case ValueRegexp:
		return "/" + v.Text + "/" + v.Flags
	default:
		return strconv.Quote(v.Text)
	}
}

// Attribute tests a value found by following Path from the node: "[name='foo']".
type Attribute struct {
	Path  []string
	Op    AttrOp
	Value Value
}

// NthChild matches a node by its 1-based position in the parent's child
// array, counted from the end when FromEnd is set.
type NthChild struct {
	Index   int
	FromEnd bool
}

// Class matches a named category of nodes: ":function", ":statement".
type Class struct {
	Name string
}

// Not matches when none of Selectors match: ":not(A, B)".
type Not struct {
	Selectors []Selector
}

// Matches matches when any of Selectors match: "A, B" or ":matches(A, B)".
type Matches struct {
	Selectors []Selector
}

// Has matches when some descendant matches one of Selectors: ":has(A)".
type Has struct {
	Selectors []Selector
}

// Scope stands for the node a :has() search starts from. It only appears as
// the left operand of a relation written with a leading combinator, as in
// ":has(> Identifier)".
type Scope struct{}

// Compound matches when every one of Selectors matches: "Identifier[name='x']".
type Compound struct {
	Selectors []Selector
}

// RelationKind is a combinator between two selectors.
type RelationKind int

const (
	Descendant RelationKind = iota // "A B"
	Child                          // "A > B"
	Sibling                        // "A ~ B"
	Adjacent                       // "A + B"
)

var relationText = [...]string{
	Descendant: " ",
	Child:      " > ",
	Sibling:    " ~ ",
	Adjacent:   " + ",
}

func (k RelationKind) String() string {
	switch k {
	case Child:
		return "child"
	case Sibling:
		return "sibling"
	case Adjacent:
		return "adjacent"
	default:
		return "descendant"
	}
}

// Relation matches a node against Right and a related node against Left.
type Relation struct {
	Kind  RelationKind
	Left  Selector
	Right Selector
}

func (Wildcard) selector()   {}
func (Identifier) selector() {}
func (Field) selector()      {}
func (Attribute) selector()  {}
func (NthChild) selector()   {}
func (Class) selector()      {}
func (Not) selector()        {}
func (Matches) selector()    {}
func (Has) selector()        {}
func (Scope) selector()      {}
func (Compound) selector()   {}
func (Relation) selector()   {}

func (Wildcard) String() string     { return "*" }
func (s Identifier) String() string { return s.Name }
func (s Field) String() string      { return "." + strings.Join(s.Path, ".") }
func (s Class) String() string      { return ":" + s.Name }
func (Scope) String() string        { return "" }

func (s Attribute) String() string {
	if s.Op == OpExists {
		return "[" + strings.Join(s.Path, ".") + "]"
	}
	return "[" + strings.Join(s.Path, ".") + s.Op.String() + s.Value.String() + "]"
}

func (s NthChild) String() string {
	if s.FromEnd {
		return ":nth-last-child(" + strconv.Itoa(s.Index) + ")"
	}
	return ":nth-child(" + strconv.Itoa(s.Index) + ")"
}

func (s Not) String() string      { return ":not(" + joinSelectors(s.Selectors, ", ") + ")" }
func (s Matches) String() string  { return ":matches(" + joinSelectors(s.Selectors, ", ") + ")" }
func (s Has) String() string      { return ":has(" + joinSelectors(s.Selectors, ", ") + ")" }
func (s Compound) String() string { return joinSelectors(s.Selectors, "") }

func (s Relation) String() string {
	sep := relationText[s.Kind]
	if _, ok := s.Left.(Scope); ok {
		return strings.TrimLeft(sep, " ") + s.Right.String()
	}
	return s.Left.String() + sep + s.Right.String()
}

func joinSelectors(sels []Selector, sep string) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}
	return strings.Join(parts, sep)
}
