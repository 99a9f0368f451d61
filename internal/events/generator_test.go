package events

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/query"
	"github.com/solatis/treelint/internal/selector"
	"github.com/solatis/treelint/internal/types"
)

// emission is one listener notification observed by a test.
type emission struct {
	selector string
	node     *ast.Node
}

// record registers a recording listener under every selector.
func record(t *testing.T, selectors ...string) (*Emitter, *[]emission) {
	t.Helper()
	var got []emission
	e := NewEmitter()
	for _, s := range selectors {
		s := s
		err := e.On(s, ListenerFunc(func(n *ast.Node) error {
			got = append(got, emission{selector: s, node: n})
			return nil
		}))
		if err != nil {
			t.Fatalf("On(%q) error = %v", s, err)
		}
	}
	return e, &got
}

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, err := ast.ParseJSON([]byte(src), "type")
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	return root
}

func walk(t *testing.T, root *ast.Node, e *Emitter, opts ...Option) {
	t.Helper()
	g, err := NewGenerator(e, opts...)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if err := ast.Walk(root, g, ast.WalkOptions{}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
}

func child(n *ast.Node, key string) *ast.Node {
	return ast.Children(n, key)[0]
}

func assertEmissions(t *testing.T, got []emission, want []emission) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d emissions %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].selector != want[i].selector || got[i].node != want[i].node {
			t.Errorf("emission %d = (%s, %v), want (%s, %v)", i, got[i].selector, got[i].node, want[i].selector, want[i].node)
		}
	}
}

// fooPlusBar is "foo + bar;"
const fooPlusBar = `{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {
  "type": "BinaryExpression", "operator": "+",
  "left": {"type": "Identifier", "name": "foo"},
  "right": {"type": "Identifier", "name": "bar"}}}]}`

// fooPlusFive is "foo + 5"
const fooPlusFive = `{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {
  "type": "BinaryExpression", "operator": "+",
  "left": {"type": "Identifier", "name": "foo"},
  "right": {"type": "Literal", "value": 5, "raw": "5"}}}]}`

// bareFoo is "foo"
const bareFoo = `{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {"type": "Identifier", "name": "foo"}}]}`

func TestGenerator_TypeAndExitEvents(t *testing.T) {
	root := parse(t, fooPlusBar)
	e, got := record(t, "Program", "Program:exit", "ExpressionStatement", "BinaryExpression", "BinaryExpression:exit", "Identifier")
	walk(t, root, e)

	stmt := child(root, "body")
	bin := child(stmt, "expression")
	assertEmissions(t, *got, []emission{
		{"Program", root},
		{"ExpressionStatement", stmt},
		{"BinaryExpression", bin},
		{"Identifier", child(bin, "left")},
		{"Identifier", child(bin, "right")},
		{"BinaryExpression:exit", bin},
		{"Program:exit", root},
	})
}

func TestGenerator_ChildRelations(t *testing.T) {
	root := parse(t, fooPlusFive)
	e, got := record(t, "BinaryExpression > Identifier", "BinaryExpression > Literal:exit")
	walk(t, root, e)

	bin := child(child(root, "body"), "expression")
	assertEmissions(t, *got, []emission{
		{"BinaryExpression > Identifier", child(bin, "left")},
		{"BinaryExpression > Literal:exit", child(bin, "right")},
	})
}

func TestGenerator_Negation(t *testing.T) {
	root := parse(t, bareFoo)
	e, got := record(t, "*:not(ExpressionStatement)")
	walk(t, root, e)

	assertEmissions(t, *got, []emission{
		{"*:not(ExpressionStatement)", root},
		{"*:not(ExpressionStatement)", child(child(root, "body"), "expression")},
	})
}

func TestGenerator_NestedSpecificityOrder(t *testing.T) {
	bar := ast.NewTyped("Bar").Set("value", float64(2))
	foo := ast.NewTyped("Foo").Set("value", float64(1)).Set("child", bar)

	e, got := record(t, "Foo", "Bar", "Foo > Bar", "Foo:exit")
	walk(t, foo, e)

	assertEmissions(t, *got, []emission{
		{"Foo", foo},
		{"Bar", bar},
		{"Foo > Bar", bar},
		{"Foo:exit", foo},
	})
}

func TestGenerator_MergesTypedAndAnyTypeBuckets(t *testing.T) {
	root := parse(t, bareFoo)
	id := child(child(root, "body"), "expression")

	// weights: * (0,0) < Identifier (0,1) < [name] (1,0) < Identifier[name] (1,1) < *[name="foo"][name] (2,0)
	e, got := record(t, `*[name="foo"][name]`, "Identifier[name]", "[name]", "Identifier", "*")
	walk(t, root, e)

	var onID []string
	for _, em := range *got {
		if em.node == id {
			onID = append(onID, em.selector)
		}
	}
	want := []string{"*", "Identifier", "[name]", "Identifier[name]", `*[name="foo"][name]`}
	if strings.Join(onID, " | ") != strings.Join(want, " | ") {
		t.Errorf("order on Identifier = %v, want %v", onID, want)
	}
}

func TestGenerator_EqualWeightsAcrossBucketsFollowSource(t *testing.T) {
	// Every selector below weighs (0,1); :not(B) is any-type, the others are
	// bucketed under A.
	tests := []struct {
		name      string
		selectors []string
		want      []string
	}{
		{"any-type source sorts first", []string{"A", ":not(B)"}, []string{":not(B)", "A"}},
		{"typed source sorts first", []string{":not(B)", ":matches(A)"}, []string{":matches(A)", ":not(B)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, got := record(t, tt.selectors...)
			walk(t, ast.NewTyped("A"), e, WithCache(selector.NewCache()))

			var order []string
			for _, em := range *got {
				order = append(order, em.selector)
			}
			if strings.Join(order, " | ") != strings.Join(tt.want, " | ") {
				t.Errorf("emissions = %v, want %v", order, tt.want)
			}
		})
	}
}

func TestGenerator_AncestryCorrectness(t *testing.T) {
	root := parse(t, fooPlusFive)

	var g *Generator
	type snapshot struct {
		phase    string
		node     *ast.Node
		ancestry []*ast.Node
	}
	var snaps []snapshot

	e := NewEmitter()
	for _, s := range []string{"*", "*:exit"} {
		phase := "enter"
		if strings.HasSuffix(s, ":exit") {
			phase = "exit"
		}
		_ = e.On(s, ListenerFunc(func(n *ast.Node) error {
			snaps = append(snaps, snapshot{phase, n, g.Ancestry()})
			return nil
		}))
	}

	var err error
	g, err = NewGenerator(e)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if err := ast.Walk(root, g, ast.WalkOptions{}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	// Independent computation of each node's proper ancestors.
	expected := map[*ast.Node][]*ast.Node{}
	ast.Inspect(root, nil, "type", func(n *ast.Node, ancestry []*ast.Node) bool {
		expected[n] = append([]*ast.Node(nil), ancestry...)
		return true
	})

	if len(snaps) != 2*len(expected) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), 2*len(expected))
	}
	for _, s := range snaps {
		want := expected[s.node]
		if len(s.ancestry) != len(want) {
			t.Errorf("%s %v: ancestry depth %d, want %d", s.phase, s.node, len(s.ancestry), len(want))
			continue
		}
		for i := range want {
			if s.ancestry[i] != want[i] {
				t.Errorf("%s %v: ancestry[%d] = %v, want %v", s.phase, s.node, i, s.ancestry[i], want[i])
			}
		}
	}
	if g.Depth() != 0 {
		t.Errorf("Depth() after walk = %d, want 0", g.Depth())
	}
}

func TestGenerator_ListenerErrorPropagates(t *testing.T) {
	root := parse(t, fooPlusBar)
	boom := errors.New("boom")

	var calls []string
	e := NewEmitter()
	_ = e.On("Identifier", ListenerFunc(func(n *ast.Node) error {
		name, _ := n.Get("name")
		calls = append(calls, "Identifier:"+name.(string))
		return boom
	}))
	_ = e.On("Identifier[name]", ListenerFunc(func(n *ast.Node) error {
		calls = append(calls, "Identifier[name]")
		return nil
	}))

	g, err := NewGenerator(e)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	err = ast.Walk(root, g, ast.WalkOptions{})
	if err != boom {
		t.Fatalf("Walk() error = %v, want the listener error unchanged", err)
	}
	if strings.Join(calls, ",") != "Identifier:foo" {
		t.Errorf("calls = %v, want only the first Identifier listener", calls)
	}
}

func TestGenerator_InvalidSelector(t *testing.T) {
	e, _ := record(t, "Program", "Foo >")

	_, err := NewGenerator(e, WithCache(selector.NewCache()))
	var se *selector.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("NewGenerator() error = %v, want *selector.SyntaxError", err)
	}
	if !strings.HasPrefix(err.Error(), `Syntax error in selector "Foo >" at position 5: `) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGenerator_CustomTypeKey(t *testing.T) {
	bar := ast.New().Set("customType", "Bar")
	foo := ast.New().Set("customType", "Foo").Set("child", bar)

	e, got := record(t, "Foo", "Foo:exit", "Foo > Bar")
	g, err := NewGenerator(e, WithQueryOptions(query.Options{NodeTypeKey: "customType"}))
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if err := ast.Walk(foo, g, ast.WalkOptions{TypeKey: "customType"}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	assertEmissions(t, *got, []emission{
		{"Foo", foo},
		{"Foo > Bar", bar},
		{"Foo:exit", foo},
	})
}

func TestGenerator_UnknownTypeUsesAnyTypeOnly(t *testing.T) {
	n := ast.NewTyped("Unknown")
	e, got := record(t, "Identifier", "*")
	walk(t, n, e)

	assertEmissions(t, *got, []emission{{"*", n}})
}

func TestEmitter(t *testing.T) {
	e := NewEmitter()
	var order []string
	for i, s := range []string{"B", "A", "B"} {
		i := i
		if err := e.On(s, ListenerFunc(func(*ast.Node) error {
			order = append(order, fmt.Sprintf("%s%d", s, i))
			return nil
		})); err != nil {
			t.Fatalf("On() error = %v", err)
		}
	}

	if got := strings.Join(e.Selectors(), ","); got != "B,A" {
		t.Errorf("Selectors() = %s, want B,A", got)
	}
	if err := e.Emit("B", ast.NewTyped("X")); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got := strings.Join(order, ","); got != "B0,B2" {
		t.Errorf("notification order = %s, want B0,B2", got)
	}

	invalid := []struct {
		name     string
		selector string
		listener Listener
		want     error
	}{
		{"empty selector", "", ListenerFunc(func(*ast.Node) error { return nil }), types.ErrEmptySelector},
		{"nil listener", "X", nil, types.ErrNilListener},
	}
	for _, tt := range invalid {
		if err := e.On(tt.selector, tt.listener); !errors.Is(err, tt.want) {
			t.Errorf("On() %s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
	if got := strings.Join(e.Selectors(), ","); got != "B,A" {
		t.Errorf("Selectors() after rejected registrations = %s, want B,A", got)
	}
	if err := e.Emit("unregistered", ast.NewTyped("X")); err != nil {
		t.Errorf("Emit(unregistered) error = %v", err)
	}
}

func TestAncestry_Grow(t *testing.T) {
	var a ancestry
	nodes := make([]*ast.Node, 100)
	for i := range nodes {
		nodes[i] = ast.NewTyped(fmt.Sprintf("N%d", i))
		a.push(nodes[i])
	}
	view := a.view()
	if len(view) != 100 || view[0] != nodes[99] || view[99] != nodes[0] {
		t.Fatalf("view after pushes: len=%d first=%v last=%v", len(view), view[0], view[99])
	}
	for i := 99; i >= 0; i-- {
		if got := a.pop(); got != nodes[i] {
			t.Fatalf("pop() = %v, want %v", got, nodes[i])
		}
	}
	if a.pop() != nil || a.len() != 0 {
		t.Errorf("empty stack pop/len wrong")
	}
}
