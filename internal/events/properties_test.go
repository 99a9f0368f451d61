package events

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/query"
	"github.com/solatis/treelint/internal/selector"
)

var vocabulary = []string{"Program", "Identifier", "Literal", "CallExpression", "BlockStatement"}

func randomTree(r *rand.Rand, depth int) *ast.Node {
	n := ast.NewTyped(vocabulary[r.Intn(len(vocabulary))])
	if r.Intn(2) == 0 {
		n.Set("name", "foo")
	}
	if depth == 0 {
		return n
	}
	count := r.Intn(4)
	body := make([]any, 0, count)
	for i := 0; i < count; i++ {
		body = append(body, randomTree(r, depth-1))
	}
	n.Set("body", body)
	return n
}

var selectorPool = []string{
	"*", "Identifier", "Literal", "Program > *", "BlockStatement Identifier",
	"[name]", "Identifier[name='foo']", ":not(Literal)", ":matches(Identifier, Literal)",
	"* ~ Literal", "Identifier + *", ":first-child", ":has(Identifier)",
	"CallExpression:exit", "*:exit", "Program > BlockStatement:exit",
}

// event identifies one expected or observed notification.
type event struct {
	exit     bool
	selector string
	node     *ast.Node
}

func TestProperty_DispatchCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("emitted events equal brute-force matches in specificity order", prop.ForAll(
		func(treeSeed int64, mask uint16) string {
			tree := randomTree(rand.New(rand.NewSource(treeSeed)), 3)

			var registered []string
			for i, s := range selectorPool {
				if mask&(1<<i) != 0 {
					registered = append(registered, s)
				}
			}

			var got []event
			e := NewEmitter()
			for _, s := range registered {
				s := s
				_ = e.On(s, ListenerFunc(func(n *ast.Node) error {
					got = append(got, event{selector: s, node: n})
					return nil
				}))
			}
			g, err := NewGenerator(e)
			if err != nil {
				return err.Error()
			}
			if err := ast.Walk(tree, g, ast.WalkOptions{}); err != nil {
				return err.Error()
			}

			compiled := make([]*selector.Compiled, 0, len(registered))
			for _, s := range registered {
				c, err := selector.Compile(s)
				if err != nil {
					return err.Error()
				}
				compiled = append(compiled, c)
			}
			selector.Sort(compiled)

			enter := map[*ast.Node][]string{}
			exit := map[*ast.Node][]string{}
			var order []*ast.Node
			ast.Inspect(tree, nil, "type", func(n *ast.Node, ancestry []*ast.Node) bool {
				order = append(order, n)
				for _, c := range compiled {
					if !query.Match(n, c.Root, ancestry, nil) {
						continue
					}
					if c.IsExit {
						exit[n] = append(exit[n], c.Source)
					} else {
						enter[n] = append(enter[n], c.Source)
					}
				}
				return true
			})

			// Per node and phase the observed selectors must be exactly the
			// brute-force set, and in specificity order.
			observed := map[*ast.Node][]string{}
			for _, ev := range got {
				observed[ev.node] = append(observed[ev.node], ev.selector)
			}
			for _, n := range order {
				want := append(slices.Clone(enter[n]), exit[n]...)
				if !slices.Equal(observed[n], want) {
					return fmt.Sprintf("node %v: emitted %v, want %v (registered %v)", n, observed[n], want, registered)
				}
			}
			return ""
		},
		gen.Int64(),
		gen.UInt16(),
	))

	properties.TestingRun(t)
}
