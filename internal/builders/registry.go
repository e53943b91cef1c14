package builders

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateTarget is returned when two visitors claim the same target.
var ErrDuplicateTarget = errors.New("target already registered")

// Registry maps operator targets to node visitors.
type Registry struct {
	visitors map[string]NodeVisitor
}

// NewRegistry creates a new registry with all built-in visitors.
func NewRegistry() *Registry {
	r := &Registry{
		visitors: make(map[string]NodeVisitor),
	}

	// Register all visitors
	r.mustRegister(&Arange{})
	r.mustRegister(&Full{})
	r.mustRegister(&ElementWise{})

	return r
}

// Register adds a visitor under every target it handles.
// Nothing is registered if any of its targets is already taken.
func (r *Registry) Register(v NodeVisitor) error {
	for _, target := range v.Targets() {
		if _, ok := r.visitors[target]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTarget, target)
		}
	}
	for _, target := range v.Targets() {
		r.visitors[target] = v
	}
	return nil
}

func (r *Registry) mustRegister(v NodeVisitor) {
	if err := r.Register(v); err != nil {
		panic(err)
	}
}

// Get returns the visitor for a target.
func (r *Registry) Get(target string) (NodeVisitor, bool) {
	v, ok := r.visitors[target]
	return v, ok
}

// SupportedTargets returns all registered targets, sorted.
func (r *Registry) SupportedTargets() []string {
	targets := make([]string, 0, len(r.visitors))
	for target := range r.visitors {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}
