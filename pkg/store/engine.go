package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/treestore/pkg/lens"
)

// engine owns a store's value cell and subscription registry.
type engine struct {
	// root is the current immutable value. Writes replace it copy-on-write.
	root any

	ns *lens.Namespace

	// records are the live subscriptions in insertion order.
	records []*record

	// identities maps callback identities to their subscription.
	identities map[any]*record

	logger    *slog.Logger
	observer  Observer
	maxPasses int

	// manual defers notification until sync.
	manual bool

	// running is set while a notification pass is in progress; writes made
	// by callbacks during the pass set pending instead of starting a nested pass.
	running bool
	pending bool
}

// record is the registry entry of one subscription.
type record struct {
	id       uint64
	identity any
	renew    Renew
	node     Node
	editable bool
	active   bool

	// entries maps path keys to recorded reads; order keeps insertion order.
	entries map[string]*entry
	order   []*entry

	// tokens holds the detach functions of armed cancellation tokens.
	tokens map[*Token]func()

	handle *Subscription
}

// entry is one recorded read.
type entry struct {
	key   string
	path  lens.Lens
	value any

	// leaf is set when the read was made through a Leaf, so the runner can
	// update the leaf's cached value.
	leaf *Leaf
}

func newEngine(initial any, cfg Config, manual bool) *engine {
	return &engine{
		root:       initial,
		ns:         lens.NewNamespace(),
		identities: make(map[any]*record),
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		maxPasses:  cfg.MaxPasses,
		manual:     manual,
	}
}

// collect records that run read value at path. The first read of a path per
// subscription wins; later reads of the same path are ignored.
func (e *engine) collect(run *record, path lens.Lens, value any, leaf *Leaf) {
	if run == nil || !run.active {
		return
	}
	key := e.ns.Key(path)
	if _, ok := run.entries[key]; ok {
		return
	}
	if run.entries == nil {
		run.entries = make(map[string]*entry)
	}
	ent := &entry{key: key, path: path, value: value, leaf: leaf}
	run.entries[key] = ent
	run.order = append(run.order, ent)
}

// recompute returns the current value of a recorded path.
func (e *engine) recompute(ent *entry) (any, error) {
	return ent.path.Get(e.root)
}

// write commits v at path and notifies subscribers unless the store is in
// manual-sync mode.
func (e *engine) write(run *record, path lens.Lens, v any) error {
	if e.manual && run != nil && !run.editable {
		return fmt.Errorf("set %s: %w: write through UpdateRef or watch with Editable()", path, ErrReadOnly)
	}

	cur, curErr := path.Get(e.root)
	if curErr == nil && lens.Same(cur, v) {
		e.observer.ObserveWrite(WriteStats{Path: path.String(), NoOp: true})
		return nil
	}

	next, err := path.Set(v)(e.root)
	if err != nil {
		return err
	}
	// Typed containers convert numbers on assignment: compare what was stored.
	if curErr == nil {
		if stored, err := path.Get(next); err == nil && lens.Same(cur, stored) {
			e.observer.ObserveWrite(WriteStats{Path: path.String(), NoOp: true})
			return nil
		}
	}
	e.root = next
	e.observer.ObserveWrite(WriteStats{Path: path.String(), Deferred: e.manual})

	if e.manual {
		return nil
	}
	return e.notify()
}

// notify runs notification passes until no callback writes to the store.
// Writes made by callbacks during a pass queue one more pass instead of
// re-entering.
func (e *engine) notify() error {
	if e.running {
		e.pending = true
		return nil
	}
	e.running = true
	defer func() {
		e.running = false
		e.pending = false
	}()

	for pass := 0; ; pass++ {
		if pass >= e.maxPasses {
			e.logger.Warn("notification passes did not settle", "passes", pass)
			return fmt.Errorf("%w after %d passes", ErrNotifyStorm, pass)
		}
		e.pending = false
		e.runPass()
		if !e.pending {
			return nil
		}
	}
}

// runPass recomputes every recorded path, then invokes each subscription
// with at least one changed path exactly once, in subscription order.
func (e *engine) runPass() {
	stats := PassStats{Start: time.Now()}

	records := make([]*record, len(e.records))
	copy(records, e.records)

	var due []*record
	for _, r := range records {
		if !r.active {
			continue
		}
		changed := false
		order := make([]*entry, len(r.order))
		copy(order, r.order)
		for _, ent := range order {
			stats.Entries++
			v, err := e.recompute(ent)
			if err != nil {
				e.drop(r, ent, err)
				stats.Dropped++
				continue
			}
			if lens.Same(v, ent.value) {
				continue
			}
			ent.value = v
			if ent.leaf != nil {
				ent.leaf.setValue(v)
			}
			stats.Changed++
			changed = true
		}
		if changed {
			due = append(due, r)
		}
	}

	for _, r := range due {
		if !r.active {
			continue
		}
		stats.Notified++
		e.invoke(r, false)
	}

	stats.End = time.Now()
	e.observer.ObservePass(stats)
}

// drop removes a recorded path that no longer resolves.
func (e *engine) drop(r *record, ent *entry, err error) {
	delete(r.entries, ent.key)
	for i, o := range r.order {
		if o == ent {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	e.logger.Debug("dropped stale path",
		"subscription", r.id,
		"path", ent.path.String(),
		"error", err)
}

// invoke runs a subscription callback and applies its Result.
func (e *engine) invoke(r *record, first bool) {
	res := r.renew(r.node, first)
	switch res.kind {
	case resultUnsubscribe:
		e.logger.Debug("subscription finished", "subscription", r.id)
		e.remove(r)
	case resultArm:
		e.arm(r, res.token)
	}
}

// arm ties the subscription's lifetime to t.
func (e *engine) arm(r *record, t *Token) {
	if !r.active {
		return
	}
	if _, ok := r.tokens[t]; ok {
		return
	}
	if r.tokens == nil {
		r.tokens = make(map[*Token]func())
	}
	// Placeholder first: OnCancel runs the listener inline for a cancelled token.
	r.tokens[t] = func() {}
	stop := t.OnCancel(func() {
		e.logger.Debug("subscription cancelled", "subscription", r.id)
		e.remove(r)
	})
	if r.active {
		r.tokens[t] = stop
	}
}

// watch registers a subscription and performs its first invocation.
func (e *engine) watch(fn Renew, opts []WatchOption) *Subscription {
	cfg := buildWatchConfig(opts)

	if cfg.cache && cfg.identity != nil {
		if r, ok := e.identities[cfg.identity]; ok && r.active {
			return r.handle
		}
	}

	r := &record{
		id:       nextID(),
		renew:    fn,
		editable: cfg.editable,
		active:   true,
	}
	if cfg.cache {
		r.identity = cfg.identity
	}
	r.node = e.node(lens.Root(), r)
	r.handle = &Subscription{
		id:      r.id,
		node:    r.node,
		release: func() { e.remove(r) },
		live:    func() bool { return r.active },
	}
	e.records = append(e.records, r)

	e.invoke(r, true)

	if r.active && r.identity != nil {
		e.identities[r.identity] = r
	}
	return r.handle
}

// remove unregisters a subscription. It is safe to call more than once.
func (e *engine) remove(r *record) {
	if !r.active {
		return
	}
	r.active = false

	for i, o := range e.records {
		if o == r {
			e.records = append(e.records[:i], e.records[i+1:]...)
			break
		}
	}
	if r.identity != nil && e.identities[r.identity] == r {
		delete(e.identities, r.identity)
	}
	for _, stop := range r.tokens {
		stop()
	}
	r.tokens = nil
	r.entries = nil
	r.order = nil
}
