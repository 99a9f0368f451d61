package types

import "errors"

// Sentinel errors for treelint operations.
var (
	// ErrSelectorTooDeep indicates a selector nests deeper than MaxSelectorDepth.
	ErrSelectorTooDeep = errors.New("selector nesting exceeds maximum depth")

	// ErrEmptySelector indicates a listener was registered under an empty selector.
	ErrEmptySelector = errors.New("selector is empty")

	// ErrNilListener indicates a nil listener was registered.
	ErrNilListener = errors.New("listener is nil")

	// ErrNilNode indicates a traversal step received a nil node.
	ErrNilNode = errors.New("node is nil")

	// ErrUnknownRule indicates configuration references a rule that is not registered.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrInvalidRuleOptions indicates rule options failed validation.
	ErrInvalidRuleOptions = errors.New("invalid rule options")

	// ErrUnsupportedLanguage indicates no language handles a file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrFileTooLarge indicates a source file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrRunNotFound indicates the findings store has no run with the given ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidConfig indicates lint configuration outside its allowed ranges.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTree indicates a parser produced no usable root node.
	ErrInvalidTree = errors.New("invalid syntax tree")
)
