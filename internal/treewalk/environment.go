package treewalk

import "fmt"

// Environment is one lexical scope of bindings, chained to its enclosing
// scope the way the bytecode VM's locals array is chained via upvalues —
// except here the chain is explicit pointers walked at runtime, since the
// tree-walker has no compile-time slot allocation.
type Environment struct {
	values    map[string]interface{}
	enclosing *Environment
}

// NewEnvironment creates a top-level (global) environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]interface{})}
}

// NewChildEnvironment creates a scope nested inside enclosing.
func NewChildEnvironment(enclosing *Environment) *Environment {
	return &Environment{values: make(map[string]interface{}), enclosing: enclosing}
}

// Define binds name in this environment, shadowing any outer binding.
func (e *Environment) Define(name string, value interface{}) {
	e.values[name] = value
}

// Get looks up name starting in this environment and walking outward.
func (e *Environment) Get(name string) (interface{}, error) {
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	if e.enclosing != nil {
		return e.enclosing.Get(name)
	}
	return nil, fmt.Errorf("undefined variable '%s'", name)
}

// Assign sets an existing binding for name, walking outward; it does not
// create a new one (that's what Define/var declarations are for).
func (e *Environment) Assign(name string, value interface{}) error {
	if _, ok := e.values[name]; ok {
		e.values[name] = value
		return nil
	}
	if e.enclosing != nil {
		return e.enclosing.Assign(name, value)
	}
	return fmt.Errorf("undefined variable '%s'", name)
}

// ancestor walks distance scopes outward, the runtime counterpart to the
// resolver's scope-distance annotation.
func (e *Environment) ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads a binding known (via resolver distance) to live exactly
// distance scopes out, skipping the walk-until-found Get does.
func (e *Environment) GetAt(distance int, name string) (interface{}, error) {
	env := e.ancestor(distance)
	if v, ok := env.values[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("undefined variable '%s'", name)
}

// AssignAt mirrors GetAt for assignment.
func (e *Environment) AssignAt(distance int, name string, value interface{}) {
	e.ancestor(distance).values[name] = value
}
