// Package eval implements the tree-walking evaluator that gives meaning to
// plan programs: lexically scoped environments, the control forms seq, par,
// if and let, registry-based tool dispatch, and structured trace emission.
package eval

import "fmt"

// Env is one frame of the lexical environment chain. Bindings made in a
// frame shadow, but never destroy, outer bindings of the same name. A frame
// is discarded when the construct that created it finishes; nothing leaks
// into sibling branches.
//
// Env is not internally synchronized. The evaluator guarantees that no two
// concurrent branches write into the same frame: each par branch gets its own
// child frame and treats the shared ancestor chain as read-only.
type Env struct {
	parent   *Env
	bindings map[string]any
}

// NewEnv creates a root environment with no bindings.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]any)}
}

// Child creates a new frame whose parent is the receiver. Bindings made in
// the child are invisible to the parent and to sibling children.
func (e *Env) Child() *Env {
	return &Env{parent: e, bindings: make(map[string]any)}
}

// Bind inserts a binding into the current (innermost) frame.
func (e *Env) Bind(name string, value any) {
	e.bindings[name] = value
}

// Lookup walks frames from innermost to outermost and returns the first
// binding of name. Fails with *UnboundVariableError when name is absent in
// every frame up to the root.
func (e *Env) Lookup(name string) (any, error) {
	for frame := e; frame != nil; frame = frame.parent {
		if v, ok := frame.bindings[name]; ok {
			return v, nil
		}
	}
	return nil, &UnboundVariableError{Name: name}
}

// UnboundVariableError reports a reference to a name with no binding in the
// whole environment chain.
type UnboundVariableError struct {
	Name string `json:"name"`
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable: %s", e.Name)
}
