// internal/selector/specificity.go
package selector

import "slices"

/*
 * Specificity ordering.
 *
 * Compare is a total order used to sort dispatch buckets and to merge two
 * sorted buckets while dispatching. Keys, in priority order:
 *
 *   1. PredicateWeight, higher is more specific
 *   2. IdentifierWeight, higher is more specific
 *   3. Source text, lexicographic
 *
 * Compare never returns 0. Equal sources compare as -1 so every sort sees a
 * strict answer.
 */

// Compare returns a negative number when a is less specific than b and a
// positive number otherwise.
func Compare(a, b *Compiled) int {
	if d := a.PredicateWeight - b.PredicateWeight; d != 0 {
		return d
	}
	if d := a.IdentifierWeight - b.IdentifierWeight; d != 0 {
		return d
	}
	if a.Source <= b.Source {
		return -1
	}
	return 1
}

// Sort orders selectors from least to most specific, in place.
func Sort(list []*Compiled) {
	slices.SortStableFunc(list, Compare)
}
