// Package loader provides the document store for graphsnap configuration.
//
// The loader package reads every recognized document in a configuration
// directory, parses it into the format-agnostic document model, and writes
// documents back. Formats are keyed by file extension; TOML, YAML and JSONC
// are registered by default.
//
// Only the inline comment that trails a key or a table header is part of the
// document model. Comments on lines of their own, YAML head and foot
// comments, and comments inside TOML arrays of tables are dropped when a
// document is written back.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/graphsnap/internal/config/document"
)

// Format converts between the bytes of a document file and a table.
type Format interface {
	// Name returns a short human-readable format name.
	Name() string
	// Parse decodes a whole document. Empty input yields an empty table.
	Parse(data []byte) (*document.Table, error)
	// Encode serializes a table. Encoding must be deterministic.
	Encode(t *document.Table) ([]byte, error)
}

// DefaultFormats returns the formats registered on a new Store, keyed by
// lower-case extension including the dot.
func DefaultFormats() map[string]Format {
	yml := YAML{}
	jsonc := JSONC{}
	return map[string]Format{
		".toml":  TOML{},
		".yaml":  yml,
		".yml":   yml,
		".json":  jsonc,
		".jsonc": jsonc,
	}
}

// extension returns the normalized extension of a document identifier.
func extension(id string) string {
	return strings.ToLower(filepath.Ext(id))
}

// Errors returned by the store.
var (
	// ErrUnsupportedFormat indicates a document whose extension has no format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrQuarantined indicates a document that failed to parse and is
	// therefore never written back.
	ErrQuarantined = errors.New("document quarantined after parse failure")

	// ErrNullValue indicates a null value in a format that cannot express it.
	ErrNullValue = errors.New("null value not representable")

	// ErrNotMapping indicates a document whose top-level value is not a
	// key-value mapping.
	ErrNotMapping = errors.New("top-level value is not a mapping")
)

// ParseError represents an error while parsing a document file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DirectoryError reports that the document directory could not be prepared.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("config directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// WriteError reports that one document could not be saved.
type WriteError struct {
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// asParseError wraps err as a *ParseError for path unless it already is one.
func asParseError(path string, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Path = path
		return pe
	}
	return &ParseError{Path: path, Message: err.Error(), Err: err}
}

// cleanComment strips comment markers and folds the text onto one line.
func cleanComment(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "#"):
		s = strings.TrimPrefix(s, "#")
	case strings.HasPrefix(s, "//"):
		s = strings.TrimPrefix(s, "//")
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/")
	}
	return singleLine(s)
}

// singleLine collapses line breaks so a comment stays on its key's line.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
