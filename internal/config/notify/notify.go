// Package notify delivers configuration change events.
//
// Observers subscribe either to every change or to a target prefix. Targets
// have the form "document:section.key", so subscribing to "settings.toml"
// receives every change in that document and "settings.toml:api" every
// change in its api section.
package notify

import (
	"sort"
	"sync"

	"github.com/dshills/graphsnap/internal/config/document"
)

// ChangeType represents the kind of configuration change.
type ChangeType int

const (
	// ChangeBind indicates a variable was bound during discovery.
	ChangeBind ChangeType = iota

	// ChangeSet indicates a stored value was updated from its variable.
	ChangeSet

	// ChangeReload indicates a variable was updated from its document
	// after the file changed on disk.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeBind:
		return "bind"
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents one configuration change event.
type Change struct {
	// Path is the changed target, "document:key" or "document:section.key".
	Path string

	Type ChangeType

	// OldValue is the previously stored value, null if there was none.
	OldValue document.Value

	NewValue document.Value

	// Source identifies the pass that produced the change.
	Source string
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type subscriber struct {
	prefix   string
	observer Observer
}

// Notifier manages change subscriptions. It is safe for concurrent use.
type Notifier struct {
	mu sync.RWMutex

	subscribers map[uint64]subscriber
	nextID      uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers changes from a background goroutine through a buffer
// of the given size.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a Notifier. Delivery is synchronous unless WithAsync is given.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		subscribers: make(map[uint64]subscriber),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for changes whose path equals prefix
// or lies under it.
func (n *Notifier) SubscribePath(prefix string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subscribers[id] = subscriber{prefix: prefix, observer: observer}

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change to all matching observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}
	n.deliver(change)
}

// Close stops asynchronous delivery after draining buffered changes.
// It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subscribers, id)
}

// deliver calls matching observers in subscription order, outside the lock.
func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.subscribers))
	for id, sub := range n.subscribers {
		if matches(sub.prefix, change.Path) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, n.subscribers[id].observer)
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliver(change)
		case <-n.done:
			for {
				select {
				case change := <-n.buffer:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}

// matches reports whether path equals prefix or continues it after a
// ':' or '.' separator. The empty prefix matches everything.
func matches(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	sep := path[len(prefix)]
	return sep == ':' || sep == '.'
}

// Batch collects changes and delivers them together on Commit.
type Batch struct {
	notifier *Notifier
	mu       sync.Mutex
	changes  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add queues a change.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Commit sends all queued changes in the order they were added.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}

// Discard drops all queued changes.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = nil
}

// Len returns the number of queued changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
