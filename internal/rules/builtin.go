// internal/rules/builtin.go
package rules

import (
	"fmt"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/types"
)

/*
 * Built-in rules.
 *
 * Each rule expresses its checks as selectors. Node type names differ
 * between ESTree and the tree-sitter grammars, so rules that care pick their
 * selectors by Context.Language and return no listeners for languages they
 * do not cover.
 */

// Language names as reported by the lint runner.
const (
	LangESTree     = "estree"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangGo         = "go"
	LangPython     = "python"
)

func isJSGrammar(lang string) bool {
	return lang == LangJavaScript || lang == LangTypeScript || lang == LangTSX
}

// NoRestrictedSyntax reports every node matching a configured selector.
//
// Options are selector strings or objects {"selector": ..., "message": ...}.
type NoRestrictedSyntax struct{}

func (NoRestrictedSyntax) Meta() Meta {
	return Meta{
		Name:            "no-restricted-syntax",
		Description:     "Disallow syntax matching configured selectors",
		DefaultSeverity: types.SeverityError,
	}
}

func (r NoRestrictedSyntax) Create(ctx *Context) (Listeners, error) {
	listeners := Listeners{}
	for i, opt := range ctx.Options {
		var selector, message string
		switch v := opt.(type) {
		case string:
			selector = v
		case map[string]any:
			s, ok := v["selector"].(string)
			if !ok {
				return nil, invalidOptions(r.Meta().Name, "option %d: selector must be a string", i)
			}
			selector = s
			if m, present := v["message"]; present {
				if message, ok = m.(string); !ok {
					return nil, invalidOptions(r.Meta().Name, "option %d: message must be a string", i)
				}
			}
		default:
			return nil, invalidOptions(r.Meta().Name, "option %d: want string or object, got %T", i, opt)
		}
		if selector == "" {
			return nil, invalidOptions(r.Meta().Name, "option %d: selector is empty", i)
		}
		if message == "" {
			message = fmt.Sprintf("Using '%s' is not allowed.", selector)
		}

		listeners.On(selector, func(node *ast.Node) error {
			ctx.Report(node, "%s", message)
			return nil
		})
	}
	return listeners, nil
}

// NoEval reports direct calls to eval and calls through the global object.
type NoEval struct{}

func (NoEval) Meta() Meta {
	return Meta{
		Name:            "no-eval",
		Description:     "Disallow the use of eval()",
		DefaultSeverity: types.SeverityError,
	}
}

const evalMessage = "eval can be harmful."

var evalSelectors = map[string][]string{
	LangESTree: {
		`CallExpression > Identifier.callee[name="eval"]`,
		`CallExpression > MemberExpression.callee[object.name=/^(window|global|globalThis)$/]:matches([property.name="eval"], [property.value="eval"])`,
	},
	LangJavaScript: jsEvalSelectors,
	LangTypeScript: jsEvalSelectors,
	LangTSX:        jsEvalSelectors,
	LangPython: {
		`call > identifier.function[text="eval"]`,
	},
}

var jsEvalSelectors = []string{
	`call_expression > identifier.function[text="eval"]`,
	`call_expression > member_expression.function[object.text=/^(window|global|globalThis)$/][property.text="eval"]`,
}

func (NoEval) Create(ctx *Context) (Listeners, error) {
	listeners := Listeners{}
	for _, selector := range evalSelectors[ctx.Language] {
		listeners.On(selector, func(node *ast.Node) error {
			ctx.Report(node, evalMessage)
			return nil
		})
	}
	return listeners, nil
}

// NoDebugger reports debugger statements.
type NoDebugger struct{}

func (NoDebugger) Meta() Meta {
	return Meta{
		Name:            "no-debugger",
		Description:     "Disallow the use of debugger",
		DefaultSeverity: types.SeverityError,
	}
}

func (NoDebugger) Create(ctx *Context) (Listeners, error) {
	var selector string
	switch {
	case ctx.Language == LangESTree:
		selector = "DebuggerStatement"
	case isJSGrammar(ctx.Language):
		selector = "debugger_statement"
	default:
		return Listeners{}, nil
	}
	return Listeners{
		selector: func(node *ast.Node) error {
			ctx.Report(node, "Unexpected 'debugger' statement.")
			return nil
		},
	}, nil
}

// MaxNestedFunctions bounds how deeply functions may nest.
//
// The option is a number or {"max": n}; the default is 3.
type MaxNestedFunctions struct{}

const defaultMaxNestedFunctions = 3

func (MaxNestedFunctions) Meta() Meta {
	return Meta{
		Name:            "max-nested-functions",
		Description:     "Enforce a maximum depth that functions can be nested",
		DefaultSeverity: types.SeverityWarn,
	}
}

var jsFunctionSelector = ":matches(function_declaration, function_expression, function, arrow_function, method_definition, generator_function_declaration, generator_function)"

var functionSelectors = map[string]string{
	LangESTree:     ":function",
	LangJavaScript: jsFunctionSelector,
	LangTypeScript: jsFunctionSelector,
	LangTSX:        jsFunctionSelector,
	LangGo:         ":matches(function_declaration, method_declaration, func_literal)",
	LangPython:     ":matches(function_definition, lambda)",
}

func (r MaxNestedFunctions) Create(ctx *Context) (Listeners, error) {
	limit, err := r.limit(ctx.firstOption())
	if err != nil {
		return nil, err
	}
	selector, ok := functionSelectors[ctx.Language]
	if !ok {
		return Listeners{}, nil
	}

	depth := 0
	return Listeners{
		selector: func(node *ast.Node) error {
			depth++
			if depth > limit {
				ctx.Report(node, "Too many nested functions (%d). Maximum allowed is %d.", depth, limit)
			}
			return nil
		},
		selector + types.ExitSuffix: func(*ast.Node) error {
			depth--
			return nil
		},
	}, nil
}

func (r MaxNestedFunctions) limit(opt any) (int, error) {
	if obj, ok := opt.(map[string]any); ok {
		opt = obj["max"]
	}
	if opt == nil {
		return defaultMaxNestedFunctions, nil
	}
	var n int
	switch v := opt.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, invalidOptions(r.Meta().Name, "max must be an integer, got %v", v)
		}
		n = int(v)
	default:
		return 0, invalidOptions(r.Meta().Name, "max must be a number, got %T", opt)
	}
	if n < 0 {
		return 0, invalidOptions(r.Meta().Name, "max must not be negative, got %d", n)
	}
	return n, nil
}
