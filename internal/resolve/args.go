package resolve

import (
	"fmt"
)

// Args holds the resolved handler parameter values in declaration
// order. Values are already typed per their provider recipes.
type Args struct {
	names  []string
	values []any
}

// Len returns the number of parameters
func (a *Args) Len() int {
	return len(a.values)
}

// Value returns the named parameter's value
func (a *Args) Value(name string) (any, bool) {
	for i, n := range a.names {
		if n == name {
			return a.values[i], true
		}
	}
	return nil, false
}

// Arg returns the named parameter as T. The provider chain already
// produced the declared type, so a mismatch here means the handler
// disagrees with its own declaration.
func Arg[T any](a *Args, name string) (T, error) {
	var zero T

	v, ok := a.Value(name)
	if !ok {
		return zero, fmt.Errorf("no handler parameter %q", name)
	}
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("handler parameter %q holds %T, not %T", name, v, zero)
	}
	return typed, nil
}
