// Package types provides domain models shared across treelint components.
//
// Zero-dependency design: types.go, errors.go and findings.go use only the
// standard library so the selector core can import them without pulling in
// storage or CLI dependencies. ID utilities in ids.go import uuid but are
// isolated for the findings store.
package types

// RunID represents a UUIDv7 analysis run identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential runs cluster in B-tree indexes.
type RunID string

// DefaultNodeTypeKey is the node field holding the type tag of ESTree-shaped trees.
const DefaultNodeTypeKey = "type"

// ExitSuffix marks a selector that fires when a node is left rather than entered.
const ExitSuffix = ":exit"

// Resource limits enforced by the selector engine and lint runner.
const (
	// MaxSelectorDepth bounds parser recursion through :not/:matches/:has nesting.
	// 32 levels is far beyond hand-written selectors and keeps the stack shallow.
	MaxSelectorDepth = 32

	// MaxPathDepth prevents runaway attribute path resolution ([a.b.c...]).
	// 16 segments handles deep ESTree member chains without degradation.
	MaxPathDepth = 16

	// MaxFileSize limits source files read by the lint runner.
	// 4MB covers generated bundles; larger inputs should be excluded via ignore globs.
	MaxFileSize = 4 * 1024 * 1024

	// MaxWorkers caps the lint worker pool regardless of configuration.
	MaxWorkers = 256
)
