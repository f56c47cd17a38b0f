// Package watcher reports changes to the documents of a configuration
// directory.
//
// It watches one directory with fsnotify, keeps only file names accepted by
// a filter and coalesces bursts of events per file before delivering them
// on a channel. Editors that save through a temporary file and rename
// produce several raw events; subscribers see one.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned when starting a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Event represents a change to one document file.
type Event struct {
	// Name is the file name inside the watched directory, which is also the
	// document identifier.
	Name string

	// Path is the full path of the file.
	Path string

	Op Operation

	// Time is when the last raw event for this file arrived.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Filter reports whether a file name is of interest.
type Filter func(name string) bool

// Watcher monitors one directory for document changes.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	logger   *slog.Logger

	events chan Event
	errors chan error

	// pending is owned by the delivery loop.
	pending map[string]Event

	mu      sync.Mutex
	started bool
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before its event is
// delivered. Zero delivers every raw event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts events to file names accepted by f.
func WithFilter(f Filter) Option {
	return func(w *Watcher) {
		w.filter = f
	}
}

// WithBufferSize sets the capacity of the events channel.
func WithBufferSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.events = make(chan Event, n)
		}
	}
}

// WithLogger sets the logger for dropped fsnotify errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for dir. The directory must exist. Nothing is
// delivered until Start.
func New(dir string, opts ...Option) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      absDir,
		debounce: 100 * time.Millisecond,
		filter:   func(string) bool { return true },
		logger:   slog.Default(),
		events:   make(chan Event, 64),
		errors:   make(chan error, 8),
		pending:  make(map[string]Event),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(absDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Events returns the channel of coalesced events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns fsnotify errors. It is closed when the watcher stops.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins delivering events until ctx is done or Close is called.
// Calling Start more than once has no effect.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.started {
		return nil
	}
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Close stops the watcher and waits for the delivery loop to exit.
// It is safe to call Close multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	if !started {
		close(w.events)
		close(w.errors)
	}
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.errors)
	defer close(w.events)

	var tick <-chan time.Time
	if w.debounce > 0 {
		ticker := time.NewTicker(w.debounce)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			event, ok := w.convert(fsEvent)
			if !ok {
				continue
			}
			if w.debounce == 0 {
				if !w.send(ctx, event) {
					return
				}
				continue
			}
			w.queue(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("config watcher error dropped", "error", err)
			}

		case now := <-tick:
			for _, event := range w.stable(now) {
				if !w.send(ctx, event) {
					return
				}
			}
		}
	}
}

func (w *Watcher) convert(fsEvent fsnotify.Event) (Event, bool) {
	name := filepath.Base(fsEvent.Name)
	if filepath.Dir(fsEvent.Name) != w.dir {
		return Event{}, false
	}
	if !w.filter(name) {
		return Event{}, false
	}

	var op Operation
	switch {
	case fsEvent.Op.Has(fsnotify.Remove):
		op = OpRemove
	case fsEvent.Op.Has(fsnotify.Rename):
		op = OpRename
	case fsEvent.Op.Has(fsnotify.Create):
		op = OpCreate
	case fsEvent.Op.Has(fsnotify.Write):
		op = OpWrite
	default:
		return Event{}, false
	}

	return Event{
		Name: name,
		Path: fsEvent.Name,
		Op:   op,
		Time: time.Now(),
	}, true
}

// queue coalesces an event with any pending event for the same file.
// A remove or rename wins over earlier operations, a create after a
// remove becomes a write, and a write never hides a pending create.
func (w *Watcher) queue(event Event) {
	existing, ok := w.pending[event.Name]
	if ok {
		switch {
		case event.Op == OpCreate && (existing.Op == OpRemove || existing.Op == OpRename):
			event.Op = OpWrite
		case event.Op == OpWrite:
			event.Op = existing.Op
			if existing.Op == OpRemove || existing.Op == OpRename {
				event.Op = OpWrite
			}
		}
	}
	w.pending[event.Name] = event
}

// stable removes and returns pending events that have been quiet for the
// debounce interval, ordered by file name.
func (w *Watcher) stable(now time.Time) []Event {
	threshold := now.Add(-w.debounce)
	var out []Event
	for name, event := range w.pending {
		if !event.Time.After(threshold) {
			out = append(out, event)
			delete(w.pending, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (w *Watcher) send(ctx context.Context, event Event) bool {
	select {
	case w.events <- event:
		return true
	case <-ctx.Done():
		return false
	case <-w.closeCh:
		return false
	}
}
