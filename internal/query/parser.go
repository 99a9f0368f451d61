// internal/query/parser.go
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/solatis/treelint/internal/types"
)

/*
 * Selector parser.
 *
 * Hand-written recursive descent over the selector text:
 *
 *   selectors := selector ("," selector)*
 *   selector  := sequence (combinator sequence)*      left-associative
 *   sequence  := atom+                                no whitespace between atoms
 *   atom      := "*" | "#"? name | attribute | field | pseudo
 *
 * Every syntax error is a *ParseError carrying the byte offset where parsing
 * stopped. Nesting of pseudo-class argument lists is bounded by
 * types.MaxSelectorDepth; exceeding it returns types.ErrSelectorTooDeep,
 * which has no meaningful offset.
 */

// ParseError is a syntax error at a byte offset in the selector text.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

// Parse parses selector text into a Selector tree.
func Parse(text string) (Selector, error) {
	p := &parser{src: text}
	p.skipSpace()
	sel, err := p.parseSelectors()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("expected \",\" or combinator")
	}
	return sel, nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// errorf reports a failure at the current position, naming what was found there.
func (p *parser) errorf(format string, args ...any) *ParseError {
	found := "end of input"
	if !p.eof() {
		found = strconv.Quote(string(p.src[p.pos]))
	}
	return &ParseError{
		Offset:  p.pos,
		Message: fmt.Sprintf(format, args...) + " but " + found + " found",
	}
}

func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c && !p.eof() {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if !p.consume(c) {
		return p.errorf("expected %q", string(c))
	}
	return nil
}

func (p *parser) parseSelectors() (Selector, error) {
	var list []Selector
	for {
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		list = append(list, sel)

		mark := p.pos
		p.skipSpace()
		if !p.consume(',') {
			p.pos = mark
			break
		}
		p.skipSpace()
	}
	if len(list) == 1 {
		return list[0], nil
	}
	return Matches{Selectors: list}, nil
}

func (p *parser) parseSelector() (Selector, error) {
	left, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	for {
		mark := p.pos
		spaced := p.skipSpace()

		kind, explicit := combinator(p.peek())
		switch {
		case explicit && !p.eof():
			p.pos++
			p.skipSpace()
		case spaced && startsSequence(p.peek()) && !p.eof():
			kind = Descendant
		default:
			p.pos = mark
			return left, nil
		}

		right, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		left = Relation{Kind: kind, Left: left, Right: right}
	}
}

func (p *parser) parseSequence() (Selector, error) {
	var atoms []Selector
	for !p.eof() && startsSequence(p.peek()) {
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}

	switch len(atoms) {
	case 0:
		return nil, p.errorf("expected selector")
	case 1:
		return atoms[0], nil
	default:
		return Compound{Selectors: atoms}, nil
	}
}

func (p *parser) parseAtom() (Selector, error) {
	switch c := p.peek(); {
	case c == '*':
		p.pos++
		return Wildcard{}, nil
	case c == '#':
		p.pos++
		name := p.scanName()
		if name == "" {
			return nil, p.errorf("expected node type")
		}
		return Identifier{Name: name}, nil
	case c == '[':
		return p.parseAttribute()
	case c == '.':
		p.pos++
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return Field{Path: path}, nil
	case c == ':':
		return p.parsePseudo()
	default:
		return Identifier{Name: p.scanName()}, nil
	}
}

func (p *parser) parseAttribute() (Selector, error) {
	p.pos++ // [
	p.skipSpace()
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	p.skipSpace()

	if p.consume(']') {
		return Attribute{Path: path, Op: OpExists}, nil
	}

	opStart := p.pos
	op, ok := p.scanOp()
	if !ok {
		return nil, p.errorf("expected attribute operator or \"]\"")
	}
	p.skipSpace()

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if (value.Kind == ValueType || value.Kind == ValueRegexp) && op != OpEq && op != OpNeq {
		return nil, &ParseError{Offset: opStart, Message: fmt.Sprintf("operator %q cannot compare %s", op.String(), kindName(value.Kind))}
	}

	p.skipSpace()
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return Attribute{Path: path, Op: op, Value: value}, nil
}

func (p *parser) scanOp() (AttrOp, bool) {
	rest := p.src[p.pos:]
	for _, cand := range []struct {
		text string
		op   AttrOp
	}{
		{"!=", OpNeq}, {"<=", OpLte}, {">=", OpGte}, {"=", OpEq}, {"<", OpLt}, {">", OpGt},
	} {
		if strings.HasPrefix(rest, cand.text) {
			p.pos += len(cand.text)
			return cand.op, true
		}
	}
	return 0, false
}

func (p *parser) parseValue() (Value, error) {
	switch c := p.peek(); {
	case p.eof():
		return Value{}, p.errorf("expected attribute value")
	case c == '"' || c == '\'':
		s, err := p.scanString(c)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueString, Text: s}, nil
	case c == '/':
		return p.parseRegexp()
	case strings.HasPrefix(p.src[p.pos:], "type("):
		p.pos += len("type(")
		p.skipSpace()
		name := p.scanName()
		if name == "" {
			return Value{}, p.errorf("expected type name")
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueType, Text: name}, nil
	}

	if n, ok := p.scanNumber(); ok {
		return Value{Kind: ValueNumber, Number: n}, nil
	}
	path, err := p.parsePath()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: ValueString, Text: strings.Join(path, ".")}, nil
}

// scanNumber reads [0-9]*\.?[0-9]+ when it forms the whole value token.
func (p *parser) scanNumber() (float64, bool) {
	start := p.pos
	end := start
	for end < len(p.src) && isDigit(p.src[end]) {
		end++
	}
	if end < len(p.src) && p.src[end] == '.' {
		frac := end + 1
		for frac < len(p.src) && isDigit(p.src[frac]) {
			frac++
		}
		if frac > end+1 {
			end = frac
		}
	}
	if end == start || (end < len(p.src) && !isSpace(p.src[end]) && p.src[end] != ']') {
		return 0, false
	}
	n, err := strconv.ParseFloat(p.src[start:end], 64)
	if err != nil {
		return 0, false
	}
	p.pos = end
	return n, true
}

func (p *parser) scanString(quote byte) (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src):
			b.WriteByte(unescape(p.src[p.pos+1]))
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", &ParseError{Offset: start, Message: "unterminated string"}
}

func (p *parser) parseRegexp() (Value, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return Value{}, &ParseError{Offset: start, Message: "unterminated regular expression"}
		}
		c := p.src[p.pos]
		if c == '/' {
			p.pos++
			break
		}
		if c == '\\' && p.pos+1 < len(p.src) {
			b.WriteString(p.src[p.pos : p.pos+2])
			p.pos += 2
			continue
		}
		b.WriteByte(c)
		p.pos++
	}

	flagStart := p.pos
	for !p.eof() && strings.IndexByte("imsu", p.peek()) >= 0 {
		p.pos++
	}
	flags := p.src[flagStart:p.pos]

	source := b.String()
	re, err := regexp.Compile(goFlags(flags) + source)
	if err != nil {
		return Value{}, &ParseError{Offset: start, Message: "invalid regular expression: " + err.Error()}
	}
	return Value{Kind: ValueRegexp, Text: source, Flags: flags, Regexp: re}, nil
}

// goFlags maps regexp flags onto an RE2 flag group. "u" is implied by RE2.
func goFlags(flags string) string {
	var out strings.Builder
	for _, f := range "ims" {
		if strings.ContainsRune(flags, f) {
			out.WriteRune(f)
		}
	}
	if out.Len() == 0 {
		return ""
	}
	return "(?" + out.String() + ")"
}

func (p *parser) parsePath() ([]string, error) {
	var path []string
	for {
		name := p.scanName()
		if name == "" {
			return nil, p.errorf("expected name")
		}
		path = append(path, name)
		if len(path) > types.MaxPathDepth {
			return nil, &ParseError{Offset: p.pos, Message: fmt.Sprintf("path deeper than %d segments", types.MaxPathDepth)}
		}
		if p.peek() != '.' || p.eof() {
			return path, nil
		}
		p.pos++
	}
}

func (p *parser) parsePseudo() (Selector, error) {
	p.pos++ // :
	nameStart := p.pos
	for !p.eof() && (isAlnum(p.peek()) || p.peek() == '-') {
		p.pos++
	}
	name := strings.ToLower(p.src[nameStart:p.pos])
	if name == "" {
		return nil, p.errorf("expected pseudo-class name")
	}

	switch name {
	case "not", "matches", "is", "has":
		return p.parseList(name)
	case "nth-child", "nth-last-child":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		p.skipSpace()
		numStart := p.pos
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
		if numStart == p.pos {
			return nil, p.errorf("expected integer")
		}
		idx, err := strconv.Atoi(p.src[numStart:p.pos])
		if err != nil {
			return nil, &ParseError{Offset: numStart, Message: "invalid integer"}
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return NthChild{Index: idx, FromEnd: name == "nth-last-child"}, nil
	case "first-child":
		return NthChild{Index: 1}, nil
	case "last-child":
		return NthChild{Index: 1, FromEnd: true}, nil
	default:
		return Class{Name: name}, nil
	}
}

func (p *parser) parseList(name string) (Selector, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.depth++
	if p.depth > types.MaxSelectorDepth {
		return nil, fmt.Errorf("%w: more than %d nested argument lists", types.ErrSelectorTooDeep, types.MaxSelectorDepth)
	}
	defer func() { p.depth-- }()

	p.skipSpace()
	var list []Selector
	for {
		var (
			sel Selector
			err error
		)
		if name == "has" {
			sel, err = p.parseRelative()
		} else {
			sel, err = p.parseSelector()
		}
		if err != nil {
			return nil, err
		}
		list = append(list, sel)

		p.skipSpace()
		if !p.consume(',') {
			break
		}
		p.skipSpace()
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}

	switch name {
	case "not":
		return Not{Selectors: list}, nil
	case "has":
		return Has{Selectors: list}, nil
	default:
		return Matches{Selectors: list}, nil
	}
}

// parseRelative parses a :has() argument, which may open with a combinator
// relating it to the node being tested.
func (p *parser) parseRelative() (Selector, error) {
	kind, ok := combinator(p.peek())
	if !ok || p.eof() {
		return p.parseSelector()
	}
	p.pos++
	p.skipSpace()

	sel, err := p.parseSelector()
	if err != nil {
		return nil, err
	}
	return anchor(sel, kind), nil
}

// anchor attaches Scope with the given combinator to the leftmost sequence of
// a left-associative relation chain.
func anchor(sel Selector, kind RelationKind) Selector {
	if rel, ok := sel.(Relation); ok {
		rel.Left = anchor(rel.Left, kind)
		return rel
	}
	return Relation{Kind: kind, Left: Scope{}, Right: sel}
}

func (p *parser) scanName() string {
	start := p.pos
	for !p.eof() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func combinator(c byte) (RelationKind, bool) {
	switch c {
	case '>':
		return Child, true
	case '~':
		return Sibling, true
	case '+':
		return Adjacent, true
	default:
		return Descendant, false
	}
}

func kindName(k ValueKind) string {
	if k == ValueType {
		return "type()"
	}
	return "regular expressions"
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func startsSequence(c byte) bool {
	return c == '*' || c == '#' || c == '[' || c == '.' || c == ':' || isNameChar(c)
}

func isNameChar(c byte) bool {
	if c >= 0x80 {
		return true
	}
	return isAlnum(c) || c == '_' || c == '$' || c == '-'
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
