package loader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/dshills/graphsnap/internal/config/document"
)

// Store holds every document of one configuration directory, keyed by file
// name. It performs no locking; callers serialize access.
type Store struct {
	root     string
	formats  map[string]Format
	tolerant bool
	logger   *slog.Logger

	docs map[string]*document.Document

	// quarantined marks documents whose file failed to parse in strict mode.
	quarantined map[string]bool

	// disk holds the bytes last read from or written to each file.
	disk map[string][]byte
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFormat registers f for the given extension (".toml", ".ini", ...),
// replacing any existing registration.
func WithFormat(ext string, f Format) StoreOption {
	return func(s *Store) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.formats[strings.ToLower(ext)] = f
	}
}

// WithTolerant makes unparsable files load as empty documents that are
// rewritten on the next save, instead of being quarantined.
func WithTolerant(tolerant bool) StoreOption {
	return func(s *Store) {
		s.tolerant = tolerant
	}
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store rooted at dir. Nothing is read until Load.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		root:    dir,
		formats: DefaultFormats(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.docs = make(map[string]*document.Document)
	s.quarantined = make(map[string]bool)
	s.disk = make(map[string][]byte)
}

// Root returns the directory the store reads from and writes to.
func (s *Store) Root() string {
	return s.root
}

// Recognized reports whether a file name has a registered format.
func (s *Store) Recognized(name string) bool {
	_, ok := s.formats[extension(name)]
	return ok
}

// Load discards all documents, creates the root directory if needed and
// parses every recognized file in it.
//
// A directory that cannot be created or read aborts the load with a
// *DirectoryError and leaves the store empty. Files that fail to parse are
// reported as joined *ParseError values; the remaining files still load.
func (s *Store) Load() error {
	s.reset()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return &DirectoryError{Path: s.root, Err: err}
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return &DirectoryError{Path: s.root, Err: err}
	}

	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !s.Recognized(name) {
			continue
		}
		if err := s.loadFile(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) loadFile(id string) error {
	path := filepath.Join(s.root, id)
	data, err := os.ReadFile(path)
	if err != nil {
		s.quarantine(id, data)
		return asParseError(path, err)
	}

	root, err := s.formats[extension(id)].Parse(data)
	if err != nil {
		s.quarantine(id, data)
		return asParseError(path, err)
	}

	s.docs[id] = &document.Document{ID: id, Root: root}
	s.disk[id] = data
	delete(s.quarantined, id)
	return nil
}

func (s *Store) quarantine(id string, data []byte) {
	s.docs[id] = document.New(id)
	s.disk[id] = data
	if s.tolerant {
		s.logger.Warn("unreadable config document replaced by empty document", "document", id)
		return
	}
	s.quarantined[id] = true
	s.logger.Warn("unreadable config document quarantined", "document", id)
}

// Get returns the document with the given identifier.
func (s *Store) Get(id string) (*document.Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// GetOrCreate returns the document with the given identifier, creating and
// indexing an empty one if it does not exist yet.
func (s *Store) GetOrCreate(id string) *document.Document {
	if d, ok := s.docs[id]; ok {
		return d
	}
	d := document.New(id)
	s.docs[id] = d
	return d
}

// IDs returns the identifiers of all documents in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Quarantined reports whether a document is withheld from saving because its
// file could not be parsed.
func (s *Store) Quarantined(id string) bool {
	return s.quarantined[id]
}

// Encode serializes one document with the format registered for its extension.
func (s *Store) Encode(d *document.Document) ([]byte, error) {
	f, ok := s.formats[extension(d.ID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, d.ID)
	}
	return f.Encode(d.Root)
}

// Save writes every document back to its file. Each document is attempted
// even when an earlier one fails; failures are returned as joined
// *WriteError values.
func (s *Store) Save() error {
	var errs []error
	for _, id := range s.IDs() {
		if err := s.save(s.docs[id]); err != nil {
			s.logger.Error("saving config document failed", "document", id, "error", err)
			errs = append(errs, &WriteError{ID: id, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *Store) save(d *document.Document) error {
	if s.quarantined[d.ID] {
		return ErrQuarantined
	}
	data, err := s.Encode(d)
	if err != nil {
		return err
	}
	if prev, ok := s.disk[d.ID]; ok && bytes.Equal(prev, data) {
		if _, err := os.Stat(filepath.Join(s.root, d.ID)); err == nil {
			return nil
		}
	}
	if err := atomic.WriteFile(filepath.Join(s.root, d.ID), bytes.NewReader(data)); err != nil {
		return err
	}
	s.disk[d.ID] = data
	return nil
}

// Reload re-reads one document from disk. It reports changed=false without
// touching the in-memory document when the file holds exactly the bytes the
// store last read or wrote.
func (s *Store) Reload(id string) (changed bool, err error) {
	if !s.Recognized(id) {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, id)
	}
	data, err := os.ReadFile(filepath.Join(s.root, id))
	if err != nil {
		return false, err
	}
	if prev, ok := s.disk[id]; ok && bytes.Equal(prev, data) && !s.quarantined[id] {
		return false, nil
	}
	if err := s.loadFile(id); err != nil {
		return true, err
	}
	return true, nil
}
