package store

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/treestore/pkg/lens"
)

// Tuple is the node of a combined watch. It holds one constituent node per
// input watcher and cannot be written to.
type Tuple struct {
	nodes  []Node
	logger *slog.Logger
}

// Kind implements Node.
func (t *Tuple) Kind() NodeKind { return KindTuple }

// Path implements Node. A tuple is not bound to a store path.
func (t *Tuple) Path() lens.Lens { return lens.Root() }

// Nodes returns the constituent nodes in input order.
func (t *Tuple) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Value implements Node. It reads every constituent, recording each read
// against the constituent's own subscription.
func (t *Tuple) Value() any {
	out := make([]any, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.Value()
	}
	return out
}

// Set implements Node. Writes must target a constituent node.
func (t *Tuple) Set(any) error {
	t.logger.Warn("write to combined watch rejected; write to a constituent node instead")
	return fmt.Errorf("set combined watch: %w", ErrReadOnly)
}

// At implements Node. It returns the constituent for an in-range Index
// segment and nil for anything else.
func (t *Tuple) At(seg lens.Segment) Node {
	if seg.Kind() != lens.SegmentIndex || seg.Pos() < 0 || seg.Pos() >= len(t.nodes) {
		return nil
	}
	return t.nodes[seg.Pos()]
}

// Key implements Node. Tuples have no named children.
func (t *Tuple) Key(string) Node { return nil }

// Index implements Node.
func (t *Tuple) Index(i int) Node { return t.At(lens.Index(i)) }

// Sym implements Node. Tuples have no symbol-keyed children.
func (t *Tuple) Sym(*lens.Symbol) Node { return nil }

// Each implements Node.
func (t *Tuple) Each(fn func(i int, n Node) bool) {
	for i, n := range t.nodes {
		if !fn(i, n) {
			return
		}
	}
}

// Len implements Node.
func (t *Tuple) Len() int { return len(t.nodes) }

// Assign implements Node.
func (t *Tuple) Assign(seg lens.Segment, _ any) error {
	t.logger.Warn("assignment to combined watch rejected", "segment", seg.String())
	return fmt.Errorf("assign combined watch %s: %w", seg, ErrReadOnly)
}

var _ Node = (*Tuple)(nil)

// Combined subscribes to several watchers at once. Its callbacks receive a
// Tuple of the constituent nodes and run whenever any constituent changes.
type Combined struct {
	inputs     []Watcher
	logger     *slog.Logger
	identities map[any]*Subscription
}

// Combine creates a combined watcher over inputs.
func Combine(inputs ...Watcher) *Combined {
	return &Combined{
		inputs:     inputs,
		logger:     slog.Default(),
		identities: make(map[any]*Subscription),
	}
}

// WithLogger sets the logger used to report rejected writes.
func (c *Combined) WithLogger(l *slog.Logger) *Combined {
	if l != nil {
		c.logger = l
	}
	return c
}

// Watch subscribes fn to every input. fn runs once synchronously with
// first=true and then once per constituent notification. Unsubscribe or a
// cancelled armed token removes all constituent subscriptions.
func (c *Combined) Watch(fn Renew, opts ...WatchOption) *Subscription {
	cfg := buildWatchConfig(opts)
	if cfg.cache && cfg.identity != nil {
		if s, ok := c.identities[cfg.identity]; ok && s.Active() {
			return s
		}
	}

	cw := &combinedWatch{
		tuple: &Tuple{logger: c.logger},
		fn:    fn,
		armed: make(map[*Token]func()),
	}
	for _, in := range c.inputs {
		sub := in.Watch(cw.renew, NoCache())
		cw.subs = append(cw.subs, sub)
		cw.tuple.nodes = append(cw.tuple.nodes, sub.Node())
	}
	cw.active = true

	s := &Subscription{
		id:      nextID(),
		node:    cw.tuple,
		release: cw.cancel,
		live:    func() bool { return cw.active },
	}
	if cfg.cache && cfg.identity != nil {
		identity := cfg.identity
		cw.onCancel = func() {
			if c.identities[identity] == s {
				delete(c.identities, identity)
			}
		}
	}

	cw.apply(fn(cw.tuple, true))
	if cw.active && cfg.cache && cfg.identity != nil {
		c.identities[cfg.identity] = s
	}
	return s
}

// combinedWatch is the state of one Combined subscription.
type combinedWatch struct {
	tuple    *Tuple
	fn       Renew
	subs     []*Subscription
	active   bool
	armed    map[*Token]func()
	onCancel func()
}

// renew is the callback registered on every input.
func (cw *combinedWatch) renew(_ Node, first bool) Result {
	if first || !cw.active {
		return Continue()
	}
	cw.apply(cw.fn(cw.tuple, false))
	return Continue()
}

func (cw *combinedWatch) apply(res Result) {
	switch res.kind {
	case resultUnsubscribe:
		cw.cancel()
	case resultArm:
		if !cw.active {
			return
		}
		if _, ok := cw.armed[res.token]; ok {
			return
		}
		cw.armed[res.token] = func() {}
		stop := res.token.OnCancel(cw.cancel)
		if cw.active {
			cw.armed[res.token] = stop
		}
	}
}

func (cw *combinedWatch) cancel() {
	if !cw.active {
		return
	}
	cw.active = false
	for _, s := range cw.subs {
		s.Cancel()
	}
	for _, stop := range cw.armed {
		stop()
	}
	cw.armed = nil
	if cw.onCancel != nil {
		cw.onCancel()
	}
}

var _ Watcher = (*Combined)(nil)

// Computed is a value derived from several watchers. It recomputes whenever a
// path read by combine changes.
type Computed[R any] struct {
	combine  func(nodes []Node) R
	nodes    []Node
	subs     []*Subscription
	value    R
	onChange []func(R)
}

// NewComputed subscribes to inputs and computes combine over their nodes
// immediately. Reads made by combine are recorded against the inputs.
func NewComputed[R any](combine func(nodes []Node) R, inputs ...Watcher) *Computed[R] {
	c := &Computed[R]{combine: combine}
	for _, in := range inputs {
		sub := in.Watch(c.renew, NoCache())
		c.subs = append(c.subs, sub)
		c.nodes = append(c.nodes, sub.Node())
	}
	c.value = combine(c.nodes)
	return c
}

// renew is the callback registered on every input. The registration call
// itself does not recompute.
func (c *Computed[R]) renew(_ Node, first bool) Result {
	if first {
		return Continue()
	}
	c.value = c.combine(c.nodes)
	for _, fn := range c.onChange {
		fn(c.value)
	}
	return Continue()
}

// Value returns the latest computed value.
func (c *Computed[R]) Value() R { return c.value }

// OnChange registers fn, calls it synchronously with the current value and
// again after every recomputation.
func (c *Computed[R]) OnChange(fn func(R)) *Computed[R] {
	c.onChange = append(c.onChange, fn)
	fn(c.value)
	return c
}

// Cancel unsubscribes from every input.
func (c *Computed[R]) Cancel() {
	for _, s := range c.subs {
		s.Cancel()
	}
	c.onChange = nil
}
