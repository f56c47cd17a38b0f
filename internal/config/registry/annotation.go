// Package registry holds the binding side of graphsnap configuration.
//
// An Annotation names where a value lives (document, optional section, key)
// and how it is introduced on first run (comment, default). A Var pairs an
// Annotation with a pointer to the Go storage it governs and a Codec that
// converts between the Go type and document values. The Registry keeps every
// binding accepted during discovery for the lifetime of the engine.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/graphsnap/internal/config/document"
)

var (
	// ErrInvalidAnnotation indicates an annotation without a key or document,
	// or a binding without a codec.
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrDuplicateBinding indicates a second binding for the same target.
	ErrDuplicateBinding = errors.New("target already bound")
)

// Annotation is the static metadata attached to one bound variable.
type Annotation struct {
	// Key is the entry name inside the document (or section).
	Key string

	// Document is the target document identifier, a file name with extension.
	Document string

	// Section is an optional dot-separated path of nested tables.
	// Empty means the document root.
	Section string

	// Comment is written next to the entry when discovery creates it.
	Comment string

	// Default is used when the key is absent. Its dynamic type must equal
	// the bound variable's type exactly.
	Default any
}

// HasDefault reports whether a default value was given.
func (a Annotation) HasDefault() bool {
	return a.Default != nil
}

// SectionPath returns Section split into its table names.
func (a Annotation) SectionPath() []string {
	return document.SplitPath(a.Section)
}

// Target returns the identity of the entry this annotation governs.
func (a Annotation) Target() Target {
	return Target{Document: a.Document, Section: a.Section, Key: a.Key}
}

// Validate checks that the annotation names a usable entry.
func (a Annotation) Validate() error {
	if strings.TrimSpace(a.Document) == "" {
		return fmt.Errorf("%w: empty document", ErrInvalidAnnotation)
	}
	if a.Key == "" {
		return fmt.Errorf("%w: empty key in %s", ErrInvalidAnnotation, a.Document)
	}
	if a.Section != "" {
		for _, part := range strings.Split(a.Section, ".") {
			if part == "" {
				return fmt.Errorf("%w: malformed section %q", ErrInvalidAnnotation, a.Section)
			}
		}
	}
	return nil
}

// Target identifies one entry across all documents.
type Target struct {
	Document string
	Section  string
	Key      string
}

// String formats the target as "document:section.key", or "document:key"
// for root entries.
func (t Target) String() string {
	if t.Section == "" {
		return t.Document + ":" + t.Key
	}
	return t.Document + ":" + t.Section + "." + t.Key
}
