// Package events dispatches traversal events to listeners registered under
// selector strings.
package events

import (
	"fmt"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/types"
)

// Listener is notified when its selector matches a node.
type Listener interface {
	Notify(node *ast.Node) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(node *ast.Node) error

// Notify calls f(node).
func (f ListenerFunc) Notify(node *ast.Node) error {
	return f(node)
}

// Emitter maps selector sources to their listeners.
// It is not safe for concurrent registration.
type Emitter struct {
	order     []string
	listeners map[string][]Listener
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string][]Listener)}
}

// On registers l under selector. Listeners under the same selector are
// notified in registration order.
func (e *Emitter) On(selector string, l Listener) error {
	if selector == "" {
		return types.ErrEmptySelector
	}
	if l == nil {
		return fmt.Errorf("%w: selector %q", types.ErrNilListener, selector)
	}
	if _, ok := e.listeners[selector]; !ok {
		e.order = append(e.order, selector)
	}
	e.listeners[selector] = append(e.listeners[selector], l)
	return nil
}

// Selectors returns the distinct registered selectors in first-registration order.
func (e *Emitter) Selectors() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Emit notifies every listener registered under selector, stopping at the
// first error, which is returned unchanged.
func (e *Emitter) Emit(selector string, node *ast.Node) error {
	for _, l := range e.listeners[selector] {
		if err := l.Notify(node); err != nil {
			return err
		}
	}
	return nil
}
