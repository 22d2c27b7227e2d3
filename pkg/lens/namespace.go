package lens

import (
	"strconv"
	"strings"
)

// Namespace canonicalizes lenses into path keys.
// Symbol ids are allocated per namespace, so two stores never share ids and
// a dropped store releases its symbol table with it.
// A Namespace is not safe for concurrent use.
type Namespace struct {
	ids  map[*Symbol]uint64
	next uint64
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{ids: make(map[*Symbol]uint64)}
}

// Key returns the canonical key of l. The root lens has the empty key.
//
// Each segment is encoded as '/' followed by a type tag: s plus the quoted
// name for keys, n plus the decimal index for indexes, y plus the symbol id
// for symbols. Quoting escapes '/', so keys never collide across kinds.
func (ns *Namespace) Key(l Lens) string {
	var b strings.Builder
	for _, seg := range l.Segments() {
		b.WriteByte('/')
		switch seg.kind {
		case SegmentKey:
			b.WriteByte('s')
			b.WriteString(strconv.Quote(seg.name))
		case SegmentIndex:
			b.WriteByte('n')
			b.WriteString(strconv.Itoa(seg.index))
		case SegmentSymbol:
			b.WriteByte('y')
			b.WriteString(strconv.FormatUint(ns.symbolID(seg.sym), 10))
		}
	}
	return b.String()
}

func (ns *Namespace) symbolID(s *Symbol) uint64 {
	if id, ok := ns.ids[s]; ok {
		return id
	}
	ns.next++
	ns.ids[s] = ns.next
	return ns.next
}
