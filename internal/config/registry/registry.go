package registry

import (
	"fmt"
	"sort"
)

// Registry holds the bindings accepted during discovery, in the order they
// were added. Bindings are never removed. It performs no locking.
type Registry struct {
	bindings []Binding
	targets  map[Target]Binding
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		targets: make(map[Target]Binding),
	}
}

// Add appends a binding. It returns ErrDuplicateBinding if another binding
// already governs the same target.
func (r *Registry) Add(b Binding) error {
	target := b.Annotation().Target()
	if _, exists := r.targets[target]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, target)
	}
	r.targets[target] = b
	r.bindings = append(r.bindings, b)
	return nil
}

// Has reports whether a target is bound.
func (r *Registry) Has(target Target) bool {
	_, ok := r.targets[target]
	return ok
}

// Lookup returns the binding for a target.
func (r *Registry) Lookup(target Target) (Binding, bool) {
	b, ok := r.targets[target]
	return b, ok
}

// All returns every binding in registration order.
func (r *Registry) All() []Binding {
	result := make([]Binding, len(r.bindings))
	copy(result, r.bindings)
	return result
}

// Document returns the bindings targeting one document, in registration order.
func (r *Registry) Document(id string) []Binding {
	var result []Binding
	for _, b := range r.bindings {
		if b.Annotation().Document == id {
			result = append(result, b)
		}
	}
	return result
}

// Documents returns the identifiers of all bound documents, sorted.
func (r *Registry) Documents() []string {
	seen := make(map[string]bool)
	var result []string
	for _, b := range r.bindings {
		id := b.Annotation().Document
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.bindings)
}
