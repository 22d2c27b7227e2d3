package store

import (
	"fmt"

	"github.com/vango-dev/treestore/pkg/lens"
)

// NodeKind tags the variants of Node.
type NodeKind uint8

const (
	// KindBranch addresses a container value.
	KindBranch NodeKind = iota + 1

	// KindLeaf addresses a primitive value (or a path that does not resolve).
	KindLeaf

	// KindTuple is the read-only node of a combined watch.
	KindTuple
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindLeaf:
		return "leaf"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Node is an accessor into a store's value tree.
//
// Value is the terminal read: it returns the current value at the node's path
// and records the path against the node's subscription. Set is the terminal
// write. Child accessors (At, Key, Index, Sym) never record anything by
// themselves.
type Node interface {
	// Kind returns the node variant.
	Kind() NodeKind

	// Path returns the lens the node is bound to.
	Path() lens.Lens

	// Value returns the current value and records the read.
	Value() any

	// Set replaces the value at the node's path copy-on-write and notifies
	// affected subscribers. Setting the current value is a no-op.
	Set(v any) error

	// At returns the child node for seg.
	At(seg lens.Segment) Node

	// Key returns the child node for a map key or struct field.
	Key(name string) Node

	// Index returns the child node for a slice element.
	Index(i int) Node

	// Sym returns the child node for a symbol-keyed map entry.
	Sym(s *lens.Symbol) Node

	// Each calls fn with a child node for every element of a slice-shaped
	// value, stopping when fn returns false. Iteration does not record a read.
	Each(fn func(i int, n Node) bool)

	// Len returns the element count of the current value and records the read.
	Len() int

	// Assign always fails: writes must go through the child's Set.
	Assign(seg lens.Segment, v any) error
}

// node builds the accessor for path, dispatching on the current value shape.
func (e *engine) node(path lens.Lens, run *record) Node {
	v, err := path.Get(e.root)
	if err == nil && lens.IsContainer(v) {
		return &Branch{e: e, run: run, path: path}
	}
	return &Leaf{e: e, run: run, path: path, cached: v}
}

// Branch is the accessor for a container value.
type Branch struct {
	e    *engine
	run  *record
	path lens.Lens
}

// Kind implements Node.
func (b *Branch) Kind() NodeKind { return KindBranch }

// Path implements Node.
func (b *Branch) Path() lens.Lens { return b.path }

// Value implements Node. A path that no longer resolves reads as nil and is
// not recorded.
func (b *Branch) Value() any {
	v, err := b.path.Get(b.e.root)
	if err != nil {
		return nil
	}
	b.e.collect(b.run, b.path, v, nil)
	return v
}

// Set implements Node.
func (b *Branch) Set(v any) error {
	return b.e.write(b.run, b.path, v)
}

// At implements Node.
func (b *Branch) At(seg lens.Segment) Node { return b.e.node(b.path.Chain(seg), b.run) }

// Key implements Node.
func (b *Branch) Key(name string) Node { return b.At(lens.Key(name)) }

// Index implements Node.
func (b *Branch) Index(i int) Node { return b.At(lens.Index(i)) }

// Sym implements Node.
func (b *Branch) Sym(s *lens.Symbol) Node { return b.At(lens.Sym(s)) }

// Each implements Node.
func (b *Branch) Each(fn func(i int, n Node) bool) {
	b.e.each(b.path, b.run, fn)
}

// Len implements Node.
func (b *Branch) Len() int {
	return lens.Len(b.Value())
}

// Assign implements Node.
func (b *Branch) Assign(seg lens.Segment, _ any) error {
	return nonTerminal(b.path, seg)
}

// Leaf is the accessor for a primitive value. At the root of a store it
// replaces the whole value; deeper in the tree it writes copy-on-write
// through its path.
type Leaf struct {
	e      *engine
	run    *record
	path   lens.Lens
	cached any
}

// Kind implements Node.
func (l *Leaf) Kind() NodeKind { return KindLeaf }

// Path implements Node.
func (l *Leaf) Path() lens.Lens { return l.path }

// IsRoot reports whether the leaf holds the whole store value.
func (l *Leaf) IsRoot() bool { return l.path.IsRoot() }

// Value implements Node.
func (l *Leaf) Value() any {
	l.refresh()
	l.e.collect(l.run, l.path, l.cached, l)
	return l.cached
}

// refresh reloads the cached value. A path that no longer resolves reads
// as nil.
func (l *Leaf) refresh() {
	v, err := l.path.Get(l.e.root)
	if err != nil {
		v = nil
	}
	l.cached = v
}

// Set implements Node.
func (l *Leaf) Set(v any) error {
	if err := l.e.write(l.run, l.path, v); err != nil {
		return err
	}
	l.refresh()
	return nil
}

// setValue updates the cached value without writing to the store.
// The runner uses it when it propagates a change detected elsewhere.
func (l *Leaf) setValue(v any) {
	l.cached = v
}

// At implements Node.
func (l *Leaf) At(seg lens.Segment) Node { return l.e.node(l.path.Chain(seg), l.run) }

// Key implements Node.
func (l *Leaf) Key(name string) Node { return l.At(lens.Key(name)) }

// Index implements Node.
func (l *Leaf) Index(i int) Node { return l.At(lens.Index(i)) }

// Sym implements Node.
func (l *Leaf) Sym(s *lens.Symbol) Node { return l.At(lens.Sym(s)) }

// Each implements Node. The node may have been built before the value
// became slice-shaped, so the current value decides.
func (l *Leaf) Each(fn func(i int, n Node) bool) {
	l.e.each(l.path, l.run, fn)
}

// Len implements Node.
func (l *Leaf) Len() int {
	return lens.Len(l.Value())
}

// Assign implements Node.
func (l *Leaf) Assign(seg lens.Segment, _ any) error {
	return nonTerminal(l.path, seg)
}

func nonTerminal(path lens.Lens, seg lens.Segment) error {
	return fmt.Errorf("assign %s: %w: call Set on the child node", path.Chain(seg), ErrNonTerminalWrite)
}

// each calls fn with a child node for every element of the slice-shaped
// value at path. Other shapes have no elements.
func (e *engine) each(path lens.Lens, run *record, fn func(i int, n Node) bool) {
	v, err := path.Get(e.root)
	if err != nil || !lens.IsList(v) {
		return
	}
	n := lens.Len(v)
	for i := 0; i < n; i++ {
		if !fn(i, e.node(path.Chain(lens.Index(i)), run)) {
			return
		}
	}
}

// As returns the node's value as T, recording the read.
// ok is false when the value is not a T.
func As[T any](n Node) (v T, ok bool) {
	v, ok = n.Value().(T)
	return v, ok
}

var (
	_ Node = (*Branch)(nil)
	_ Node = (*Leaf)(nil)
)

// Descend walks n along path and returns the node at its end. Reads are not
// recorded until the returned node is read.
func Descend(n Node, path lens.Lens) Node {
	for _, seg := range path.Segments() {
		if n = n.At(seg); n == nil {
			return nil
		}
	}
	return n
}
