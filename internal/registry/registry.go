// Package registry holds named chain definitions and guards every mutation
// so the execution engine never sees a structurally malformed step.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"reqchain/internal/jsonpath"
)

var (
	// ErrNotFound reports a lookup of a chain name that is not registered.
	ErrNotFound = errors.New("chain not found")
	// ErrAlreadyExists reports an attempt to create a chain under a taken name.
	ErrAlreadyExists = errors.New("chain already exists")
	// ErrIndexOutOfRange reports a step index outside [1, stepCount].
	ErrIndexOutOfRange = errors.New("step index out of range")
	// ErrValidation reports a structurally invalid chain name or step.
	ErrValidation = errors.New("validation failed")
)

var knownMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// Extract declares that a step's response body should be walked with Path
// and the result bound to Variable.
type Extract struct {
	Path     string
	Variable string
}

// Step is one request template in a chain. URL, header values, and Body may
// contain {{name}} placeholders resolved at execution time.
type Step struct {
	Name    string // optional label used in listings and logs
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Extract *Extract
}

// Chain is a named ordered sequence of steps. Step order is execution order.
type Chain struct {
	Name  string
	Steps []Step
}

// Registry maps chain names to definitions. All operations are synchronous
// and safe for concurrent use. Lookups return deep copies so callers can
// never mutate registered state behind the registry's back.
type Registry struct {
	mu     sync.RWMutex
	chains map[string]*Chain
}

func New() *Registry {
	return &Registry{chains: make(map[string]*Chain)}
}

// Create registers an empty chain under name.
func (r *Registry) Create(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: chain name is empty", ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chains[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	r.chains[name] = &Chain{Name: name}
	return nil
}

// Get returns a deep copy of the named chain.
func (r *Registry) Get(name string) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[name]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return cloneChain(c), nil
}

// Delete removes the named chain.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chains[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(r.chains, name)
	return nil
}

// AppendStep validates step and adds it to the end of the named chain.
// The stored step has its method normalized to uppercase.
func (r *Registry) AppendStep(name string, step Step) error {
	normalized, err := normalizeStep(step)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chains[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	c.Steps = append(c.Steps, normalized)
	return nil
}

// RemoveStep deletes the step at the 1-based index.
func (r *Registry) RemoveStep(name string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chains[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if index < 1 || index > len(c.Steps) {
		return fmt.Errorf("%w: %d not in [1, %d] for chain %q", ErrIndexOutOfRange, index, len(c.Steps), name)
	}
	c.Steps = append(c.Steps[:index-1], c.Steps[index:]...)
	return nil
}

// ReplaceStep validates step and stores it at the 1-based index.
func (r *Registry) ReplaceStep(name string, index int, step Step) error {
	normalized, err := normalizeStep(step)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chains[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if index < 1 || index > len(c.Steps) {
		return fmt.Errorf("%w: %d not in [1, %d] for chain %q", ErrIndexOutOfRange, index, len(c.Steps), name)
	}
	c.Steps[index-1] = normalized
	return nil
}

// List returns all chain names, sorted so the order is stable within a run.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeStep checks the structural invariants every stored step must hold
// and returns an independent copy with the method uppercased. Placeholders
// keep the URL from being scheme-checked here; that happens on the resolved
// URL at send time.
func normalizeStep(step Step) (Step, error) {
	out := cloneStep(step)
	out.Method = strings.ToUpper(strings.TrimSpace(out.Method))

	var problems []string
	if out.Method == "" {
		problems = append(problems, "- Step.Method: required")
	} else if !isKnownMethod(out.Method) {
		problems = append(problems, fmt.Sprintf("- Step.Method: unknown method %q, must be one of %v", step.Method, knownMethods))
	}
	if strings.TrimSpace(out.URL) == "" {
		problems = append(problems, "- Step.URL: required")
	}
	if out.Extract != nil {
		if strings.TrimSpace(out.Extract.Variable) == "" {
			problems = append(problems, "- Step.Extract.Variable: required when an extraction is declared")
		}
		if err := jsonpath.ValidatePath(out.Extract.Path); err != nil {
			problems = append(problems, fmt.Sprintf("- Step.Extract.Path: %v", err))
		}
	}
	if len(problems) > 0 {
		return Step{}, fmt.Errorf("%w:\n%s", ErrValidation, strings.Join(problems, "\n"))
	}
	return out, nil
}

func isKnownMethod(method string) bool {
	for _, m := range knownMethods {
		if method == m {
			return true
		}
	}
	return false
}

func cloneStep(s Step) Step {
	out := s
	if s.Headers != nil {
		out.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			out.Headers[k] = v
		}
	}
	if s.Extract != nil {
		extract := *s.Extract
		out.Extract = &extract
	}
	return out
}

func cloneChain(c *Chain) Chain {
	out := Chain{Name: c.Name}
	if len(c.Steps) > 0 {
		out.Steps = make([]Step, len(c.Steps))
		for i, s := range c.Steps {
			out.Steps[i] = cloneStep(s)
		}
	}
	return out
}
