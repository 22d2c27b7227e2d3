package lens

import (
	"fmt"
	"strings"
)

// Lens is an immutable path into a nested value.
// The zero Lens is the root lens and addresses the whole value.
type Lens struct {
	tip *link
}

// link is one node of the persistent segment list. Links are shared between
// every lens chained from the same prefix and are never modified.
type link struct {
	parent *link
	seg    Segment
	depth  int
}

// Root returns the lens addressing the whole value.
func Root() Lens {
	return Lens{}
}

// Of builds a lens from the given segments.
func Of(segs ...Segment) Lens {
	l := Root()
	for _, s := range segs {
		l = l.Chain(s)
	}
	return l
}

// Chain returns a new lens extended by seg. The receiver is not modified.
func (l Lens) Chain(seg Segment) Lens {
	return Lens{tip: &link{parent: l.tip, seg: seg, depth: l.Depth() + 1}}
}

// Depth returns the number of segments.
func (l Lens) Depth() int {
	if l.tip == nil {
		return 0
	}
	return l.tip.depth
}

// IsRoot reports whether the lens addresses the whole value.
func (l Lens) IsRoot() bool {
	return l.tip == nil
}

// Last returns the final segment. ok is false for the root lens.
func (l Lens) Last() (seg Segment, ok bool) {
	if l.tip == nil {
		return Segment{}, false
	}
	return l.tip.seg, true
}

// Parent returns the lens without its final segment.
func (l Lens) Parent() Lens {
	if l.tip == nil {
		return l
	}
	return Lens{tip: l.tip.parent}
}

// Segments returns the segments in root-to-leaf order.
func (l Lens) Segments() []Segment {
	segs := make([]Segment, l.Depth())
	for n := l.tip; n != nil; n = n.parent {
		segs[n.depth-1] = n.seg
	}
	return segs
}

// Get returns the value at the lens path.
// A missing final key or out-of-range final index yields (nil, nil); a nil or
// missing intermediate value yields ErrUnresolved.
func (l Lens) Get(root any) (any, error) {
	cur := root
	segs := l.Segments()
	for i, seg := range segs {
		v, ok, err := lookup(cur, seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Of(segs[:i+1]...), err)
		}
		if !ok {
			if i == len(segs)-1 {
				return nil, nil
			}
			return nil, fmt.Errorf("%s: %w", Of(segs[:i+1]...), ErrUnresolved)
		}
		cur = v
	}
	return cur, nil
}

// Set returns a function producing a new root in which the lens path holds v.
// Every container on the path is shallow-copied; all other branches are shared
// with the old root. Setting through a path that does not resolve fails.
func (l Lens) Set(v any) func(root any) (any, error) {
	segs := l.Segments()
	return func(root any) (any, error) {
		out, err := setIn(root, segs, v)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", l, err)
		}
		return out, nil
	}
}

func setIn(node any, segs []Segment, v any) (any, error) {
	if len(segs) == 0 {
		return v, nil
	}
	if len(segs) == 1 {
		return assign(node, segs[0], v)
	}
	child, ok, err := lookup(node, segs[0])
	if err != nil {
		return nil, err
	}
	if !ok || child == nil {
		return nil, ErrUnresolved
	}
	next, err := setIn(child, segs[1:], v)
	if err != nil {
		return nil, err
	}
	return assign(node, segs[0], next)
}

// String renders the path, e.g. "john.house[0].color". The root lens renders as "".
func (l Lens) String() string {
	var b strings.Builder
	for i, seg := range l.Segments() {
		s := seg.String()
		if i > 0 && !strings.HasPrefix(s, "[") {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}
