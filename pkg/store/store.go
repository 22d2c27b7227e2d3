package store

import "github.com/vango-dev/treestore/pkg/lens"

// Watcher is anything that can be subscribed to with a Renew callback.
// It is implemented by *Store, *ManualStore and *Combined.
type Watcher interface {
	// Watch subscribes fn and invokes it once synchronously with first=true.
	Watch(fn Renew, opts ...WatchOption) *Subscription
}

// Subscription is the handle of a registered callback.
type Subscription struct {
	id      uint64
	node    Node
	release func()
	live    func() bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uint64 { return s.id }

// Node returns the accessor node handed to the callback. Reads through it are
// recorded against this subscription.
func (s *Subscription) Node() Node { return s.node }

// Cancel removes the subscription and its identity cache entry. A pass that
// is already invoking callbacks will not invoke it again.
func (s *Subscription) Cancel() { s.release() }

// Active reports whether the subscription is still registered.
func (s *Subscription) Active() bool { return s.live() }

// Store is an auto-sync store: every effective write notifies subscribers
// before returning.
type Store struct {
	e *engine
}

// New creates an auto-sync store holding initial.
func New(initial any, opts ...Option) *Store {
	return &Store{e: newEngine(initial, buildConfig(opts), false)}
}

// Watch subscribes fn. The returned subscription's node is a Leaf when the
// store value is primitive and a Branch otherwise.
func (s *Store) Watch(fn Renew, opts ...WatchOption) *Subscription {
	return s.e.watch(fn, opts)
}

// Ref returns an untracked node at the root of the store. Reads through it
// are not recorded; writes notify subscribers as usual.
func (s *Store) Ref() Node {
	return s.e.node(lens.Root(), nil)
}

// Snapshot returns the current value. The value is immutable by convention:
// callers must not modify it in place.
func (s *Store) Snapshot() any { return s.e.root }

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int { return len(s.e.records) }

// ManualStore is a manual-sync store: writes are committed immediately but
// subscribers are only notified by Sync.
type ManualStore struct {
	e *engine
}

// NewManual creates a manual-sync store holding initial.
func NewManual(initial any, opts ...Option) *ManualStore {
	return &ManualStore{e: newEngine(initial, buildConfig(opts), true)}
}

// Watch subscribes fn. Writes through the subscription's node fail with
// ErrReadOnly unless the Editable option is given.
func (m *ManualStore) Watch(fn Renew, opts ...WatchOption) *Subscription {
	return m.e.watch(fn, opts)
}

// UpdateRef returns an always-writable, untracked node at the root of the
// store. Writes through it are visible immediately and notify on Sync.
func (m *ManualStore) UpdateRef() Node {
	return m.e.node(lens.Root(), nil)
}

// Sync notifies every subscriber whose recorded reads changed since the last
// pass. Callback panics propagate to the caller.
func (m *ManualStore) Sync() error {
	return m.e.notify()
}

// Snapshot returns the current value.
func (m *ManualStore) Snapshot() any { return m.e.root }

// Subscribers returns the number of live subscriptions.
func (m *ManualStore) Subscribers() int { return len(m.e.records) }

var (
	_ Watcher = (*Store)(nil)
	_ Watcher = (*ManualStore)(nil)
)
