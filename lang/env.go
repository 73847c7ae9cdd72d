package lang

import (
	"maps"
	"slices"
)

// Env holds the name bindings of one evaluation. Bindings made by an
// assignment are visible to later statements of the same invocation only.
//
// An Env is not safe for concurrent use.
type Env struct {
	vars map[string]Value
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Bind binds name to v, replacing any previous binding.
func (e *Env) Bind(name string, v Value) {
	e.vars[name] = v
}

// Lookup returns the value bound to name.
func (e *Env) Lookup(name string) (Value, bool) {
	v, ok := e.vars[name]

	return v, ok
}

// Names returns the bound names in sorted order.
func (e *Env) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}

// Len returns the number of bindings.
func (e *Env) Len() int { return len(e.vars) }
