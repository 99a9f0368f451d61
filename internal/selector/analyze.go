// internal/selector/analyze.go
package selector

import (
	"slices"

	"github.com/solatis/treelint/internal/query"
)

/*
 * Static selector analysis.
 *
 * One structural pass over a parsed query computes:
 *   - the node types the selector could ever match (nil = any type)
 *   - PredicateWeight: attribute, field and nth-child tests
 *   - IdentifierWeight: node type tests
 *
 * The type set is an over-approximation: a node whose type is outside it can
 * never match, while a node inside it still needs the full matcher. When a
 * shape cannot be bounded the answer is nil, which is always safe.
 *
 * Negation stays unbounded. A node matches :not(X) by failing X, and that is
 * possible for every type.
 *
 * Relations narrow to their right operand, since dispatch tests the node the
 * right operand describes. The left operand only contributes weights.
 */

// Analyze returns the candidate node types and specificity weights of sel.
func Analyze(sel query.Selector) (candidates []string, predicateWeight, identifierWeight int) {
	a := &analyzer{}
	candidates = a.visit(sel)
	return candidates, a.predicates, a.identifiers
}

type analyzer struct {
	predicates  int
	identifiers int
}

func (a *analyzer) visit(sel query.Selector) []string {
	switch s := sel.(type) {
	case query.Identifier:
		a.identifiers++
		return []string{s.Name}

	case query.Not:
		for _, inner := range s.Selectors {
			a.visit(inner)
		}
		return nil

	case query.Matches:
		var all [][]string
		bounded := true
		for _, inner := range s.Selectors {
			types := a.visit(inner)
			if types == nil {
				bounded = false
			}
			all = append(all, types)
		}
		if !bounded {
			return nil
		}
		return union(all)

	case query.Compound:
		var bounded [][]string
		for _, inner := range s.Selectors {
			if types := a.visit(inner); types != nil {
				bounded = append(bounded, types)
			}
		}
		if len(bounded) == 0 {
			return nil
		}
		return intersection(bounded)

	case query.Attribute, query.Field, query.NthChild:
		a.predicates++
		return nil

	case query.Relation:
		a.visit(s.Left)
		return a.visit(s.Right)

	case query.Class:
		if s.Name == "function" {
			return query.FunctionTypes()
		}
		return nil

	case query.Wildcard, query.Has, query.Scope:
		return nil

	default:
		return nil
	}
}

// union merges type sets, keeping first-seen order and dropping duplicates.
func union(sets [][]string) []string {
	out := make([]string, 0)
	for _, set := range sets {
		for _, t := range set {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// intersection keeps the types of the first set present in every other set.
// The result is non-nil even when empty.
func intersection(sets [][]string) []string {
	out := make([]string, 0)
	for _, t := range sets[0] {
		if slices.Contains(out, t) {
			continue
		}
		inAll := true
		for _, other := range sets[1:] {
			if !slices.Contains(other, t) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, t)
		}
	}
	return out
}
