package vars

import "sync"

// Environment is the process-wide variable store shared by running chains.
// Extraction writes to it, substitution reads from it. Access is guarded
// by a mutex so concurrent runs of distinct chains stay safe.
type Environment struct {
	mu   sync.RWMutex
	vars map[string]Value
}

// NewEnvironment creates an empty variable environment.
func NewEnvironment() *Environment {
	return &Environment{
		vars: make(map[string]Value),
	}
}

// Set stores a value under name, overwriting any prior binding.
func (e *Environment) Set(name string, v Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = v
}

// SetString stores a plain string value under name.
func (e *Environment) SetString(name, value string) {
	e.Set(name, StringValue(value))
}

// Get retrieves the value bound to name.
func (e *Environment) Get(name string) (Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	val, ok := e.vars[name]
	return val, ok
}

// Clear removes every binding. A chain aborted mid-run leaves its extracted
// variables in place on purpose; Clear is the explicit reset.
func (e *Environment) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars = make(map[string]Value)
}

// Len returns the number of bindings.
func (e *Environment) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vars)
}

// Snapshot returns a copy of all bindings.
func (e *Environment) Snapshot() map[string]Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	copied := make(map[string]Value, len(e.vars))
	for k, v := range e.vars {
		copied[k] = v
	}
	return copied
}

// Reset replaces all bindings with the given snapshot.
func (e *Environment) Reset(values map[string]Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars = make(map[string]Value, len(values))
	for k, v := range values {
		e.vars[k] = v
	}
}

// MergeStrings adds all pairs from the given map as string values,
// potentially overwriting existing bindings. Used when seeding from
// config files, dotenv files and command-line flags.
func (e *Environment) MergeStrings(values map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, value := range values {
		if key == "" {
			continue
		}
		e.vars[key] = StringValue(value)
	}
}
