package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/graphsnap/internal/config/loader"
	"github.com/dshills/graphsnap/internal/config/notify"
	"github.com/dshills/graphsnap/internal/config/registry"
	"github.com/dshills/graphsnap/internal/config/watcher"
)

// State is the lifecycle stage of an Engine.
type State int

const (
	// StateUninitialized is the state before the first Load.
	StateUninitialized State = iota
	// StateLoaded means the document directory has been read.
	StateLoaded
	// StateDiscovered means bindings have been resolved.
	StateDiscovered
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateDiscovered:
		return "discovered"
	default:
		return "unknown"
	}
}

// Engine binds registered variables to documents in one directory.
type Engine struct {
	store    *loader.Store
	registry *registry.Registry
	notifier *notify.Notifier
	logger   *slog.Logger

	storeOpts   []loader.StoreOption
	watcherOpts []watcher.Option

	// pending holds registered bindings not yet seen by Discover.
	pending []registry.Binding

	state State
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its store.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTolerant makes unparsable documents load as empty documents that are
// overwritten on the next save instead of being quarantined.
func WithTolerant(tolerant bool) Option {
	return func(e *Engine) {
		e.storeOpts = append(e.storeOpts, loader.WithTolerant(tolerant))
	}
}

// WithFormat registers an additional document format for an extension.
func WithFormat(ext string, f loader.Format) Option {
	return func(e *Engine) {
		e.storeOpts = append(e.storeOpts, loader.WithFormat(ext, f))
	}
}

// WithNotifier sets the notifier that receives change events.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithWatcherOptions passes options to the watcher created by Watch.
func WithWatcherOptions(opts ...watcher.Option) Option {
	return func(e *Engine) {
		e.watcherOpts = append(e.watcherOpts, opts...)
	}
}

// New creates an engine for the documents in rootDir. Nothing is read until
// Load or Initialize.
func New(rootDir string, opts ...Option) *Engine {
	e := &Engine{
		registry: registry.New(),
		notifier: notify.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	storeOpts := append([]loader.StoreOption{loader.WithLogger(e.logger)}, e.storeOpts...)
	e.store = loader.NewStore(rootDir, storeOpts...)
	return e
}

// Register queues a binding for the next Discover.
func (e *Engine) Register(b registry.Binding) {
	e.pending = append(e.pending, b)
}

// Bind registers ptr under ann and returns the binding.
func Bind[T any](e *Engine, ptr *T, codec registry.Codec[T], ann registry.Annotation) *registry.Var[T] {
	v := registry.NewVar(ptr, codec, ann)
	e.Register(v)
	return v
}

// Load reads the document directory, replacing any documents in memory.
// The engine is StateLoaded afterwards even when an error is returned, so
// discovery can still run against whatever was read.
func (e *Engine) Load() error {
	err := e.store.Load()
	if err != nil {
		e.logger.Error("loading config documents failed", "dir", e.store.Root(), "error", err)
	}
	if e.state == StateUninitialized {
		e.state = StateLoaded
	}
	return err
}

// Initialize loads the document directory and discovers all registered
// bindings. The error reports directory, parse and write faults; skipped
// bindings are listed in the report.
func (e *Engine) Initialize() (*Report, error) {
	loadErr := e.Load()
	report := e.Discover()
	if loadErr != nil {
		return report, fmt.Errorf("initialize %s: %w", e.store.Root(), errors.Join(loadErr, report.SaveErr))
	}
	if report.SaveErr != nil {
		return report, fmt.Errorf("initialize %s: %w", e.store.Root(), report.SaveErr)
	}
	return report, nil
}

// Watch starts watching the document directory and returns the channel of
// change events. The channel closes when ctx is done. The caller reacts to
// events by calling Reload from the goroutine that owns the engine.
func (e *Engine) Watch(ctx context.Context) (<-chan watcher.Event, error) {
	opts := append([]watcher.Option{
		watcher.WithFilter(e.store.Recognized),
		watcher.WithLogger(e.logger),
	}, e.watcherOpts...)

	w, err := watcher.New(e.store.Root(), opts...)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", e.store.Root(), err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		<-ctx.Done()
		if err := w.Close(); err != nil {
			e.logger.Warn("closing config watcher failed", "error", err)
		}
	}()
	go func() {
		for err := range w.Errors() {
			e.logger.Warn("config watcher error", "error", err)
		}
	}()

	e.logger.Debug("watching config documents", "dir", w.Dir())
	return w.Events(), nil
}

// Subscribe registers an observer for every change event.
func (e *Engine) Subscribe(observer notify.Observer) *notify.Subscription {
	return e.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes under a target prefix
// such as "settings.toml" or "settings.toml:api".
func (e *Engine) SubscribePath(prefix string, observer notify.Observer) *notify.Subscription {
	return e.notifier.SubscribePath(prefix, observer)
}

// State returns the lifecycle stage.
func (e *Engine) State() State {
	return e.state
}

// Store returns the document store.
func (e *Engine) Store() *loader.Store {
	return e.store
}

// Registry returns the accepted bindings.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Root returns the document directory.
func (e *Engine) Root() string {
	return e.store.Root()
}
