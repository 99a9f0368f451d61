// internal/selector/compile.go
package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/treelint/internal/query"
	"github.com/solatis/treelint/internal/types"
)

/*
 * Selector compilation.
 *
 * Turns a listener's selector string into a Compiled value carrying the parsed
 * query, its exit-phase flag, the node types it can fire on and its
 * specificity weights.
 *
 * Compilation workflow:
 *   1. Strip a trailing ":exit" to get the clean text
 *   2. Fast path: "*" and bare alphabetic type names skip the parser
 *   3. Otherwise parse; offset-carrying failures become *SyntaxError
 *   4. Analyze the parsed query (analyze.go)
 *
 * Compile is a pure function of its input. The package-level cache (cache.go)
 * memoizes it by the unstripped source, so compiling the same string twice
 * returns the same *Compiled.
 */

// Compiled is an analyzed selector. Values are immutable once returned.
type Compiled struct {
	// Source is the selector text as registered, including any ":exit" suffix.
	Source string
	// IsExit reports whether listeners fire when leaving the node.
	IsExit bool
	// Root is the parsed query without the ":exit" suffix.
	Root query.Selector
	// CandidateTypes lists every node type the selector can match, or is nil
	// when it can match any type. A non-nil empty slice never matches.
	CandidateTypes []string
	// PredicateWeight counts attribute, field and positional tests.
	PredicateWeight int
	// IdentifierWeight counts node type tests.
	IdentifierWeight int
}

// SyntaxError reports a selector that failed to parse.
type SyntaxError struct {
	// Source is the selector as registered, including any ":exit" suffix.
	Source string
	// Offset indexes the selector text without the ":exit" suffix.
	Offset int
	Err    *query.ParseError
}

// Error names the selector without its ":exit" suffix, the text the parser saw.
func (e *SyntaxError) Error() string {
	clean := strings.TrimSuffix(e.Source, types.ExitSuffix)
	return fmt.Sprintf("Syntax error in selector \"%s\" at position %d: %s", clean, e.Offset, e.Err.Message)
}

// Unwrap returns the underlying parser error.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Compile parses and analyzes source through the process-wide cache.
func Compile(source string) (*Compiled, error) {
	return defaultCache.Compile(source)
}

// compile does the uncached work behind Compile.
func compile(source string) (*Compiled, error) {
	clean := strings.TrimSuffix(source, types.ExitSuffix)

	root := trySimpleParse(clean)
	if root == nil {
		parsed, err := query.Parse(clean)
		if err != nil {
			var pe *query.ParseError
			if errors.As(err, &pe) {
				return nil, &SyntaxError{Source: source, Offset: pe.Offset, Err: pe}
			}
			return nil, err
		}
		root = parsed
	}

	candidates, predicates, identifiers := Analyze(root)

	return &Compiled{
		Source:           source,
		IsExit:           strings.HasSuffix(source, types.ExitSuffix),
		Root:             root,
		CandidateTypes:   candidates,
		PredicateWeight:  predicates,
		IdentifierWeight: identifiers,
	}, nil
}

// trySimpleParse handles "*" and bare alphabetic type names without the
// parser. It returns nil for anything else.
func trySimpleParse(clean string) query.Selector {
	if clean == "*" {
		return query.Wildcard{}
	}
	if clean == "" {
		return nil
	}
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return nil
		}
	}
	return query.Identifier{Name: clean}
}

func (c *Compiled) String() string {
	return c.Source
}
