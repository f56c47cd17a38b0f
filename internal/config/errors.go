package config

import (
	"errors"
	"fmt"

	"github.com/dshills/graphsnap/internal/config/registry"
)

// Errors returned by engine operations. Per-binding faults arrive wrapped in
// a *BindError.
var (
	// ErrIneligible indicates a binding without storage (a nil pointer).
	ErrIneligible = errors.New("binding has no addressable storage")

	// ErrTypeMismatch indicates the annotation default does not have the
	// bound variable's type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrConversion indicates a stored value could not be converted to the
	// bound variable's type.
	ErrConversion = errors.New("stored value cannot be converted")

	// ErrSectionConflict indicates that a section path runs through an entry
	// that is not a table.
	ErrSectionConflict = errors.New("section path holds a non-table value")

	// ErrNotDiscovered indicates Refresh or Reload before discovery.
	ErrNotDiscovered = errors.New("configuration not discovered")

	// ErrInvalidAnnotation indicates an annotation without key or document.
	ErrInvalidAnnotation = registry.ErrInvalidAnnotation

	// ErrDuplicateBinding indicates a second binding for one entry.
	ErrDuplicateBinding = registry.ErrDuplicateBinding
)

// BindError describes why one binding was skipped or could not be synced.
type BindError struct {
	Document string
	Section  string
	Key      string
	Err      error
}

func newBindError(b registry.Binding, err error) *BindError {
	ann := b.Annotation()
	return &BindError{Document: ann.Document, Section: ann.Section, Key: ann.Key, Err: err}
}

// Target returns the entry the failing binding governs.
func (e *BindError) Target() registry.Target {
	return registry.Target{Document: e.Document, Section: e.Section, Key: e.Key}
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("binding %s: %v", e.Target(), e.Err)
}

// Unwrap returns the underlying error.
func (e *BindError) Unwrap() error {
	return e.Err
}
