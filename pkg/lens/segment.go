package lens

import (
	"strconv"
)

// SegmentKind identifies the type of a path segment.
type SegmentKind uint8

const (
	// SegmentKey addresses a map entry or struct field by name.
	SegmentKey SegmentKind = iota + 1

	// SegmentIndex addresses a slice or array element, or an integer map key.
	SegmentIndex

	// SegmentSymbol addresses a map entry keyed by a *Symbol.
	SegmentSymbol
)

// Symbol is a unique map key. Two symbols are never equal, even with the same
// description, and a symbol never equals a string or integer key.
type Symbol struct {
	desc string
}

// NewSymbol creates a new unique symbol. The description is only used for display.
func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc}
}

// String returns the symbol's description.
func (s *Symbol) String() string {
	if s == nil {
		return "Symbol()"
	}
	return "Symbol(" + s.desc + ")"
}

// Segment is one step of a path.
type Segment struct {
	kind  SegmentKind
	name  string
	index int
	sym   *Symbol
}

// Key returns a segment addressing a map entry or exported struct field.
func Key(name string) Segment {
	return Segment{kind: SegmentKey, name: name}
}

// Index returns a segment addressing a slice element.
func Index(i int) Segment {
	return Segment{kind: SegmentIndex, index: i}
}

// Sym returns a segment addressing a symbol-keyed map entry.
func Sym(s *Symbol) Segment {
	return Segment{kind: SegmentSymbol, sym: s}
}

// Kind returns the segment kind.
func (s Segment) Kind() SegmentKind { return s.kind }

// Name returns the key of a SegmentKey segment.
func (s Segment) Name() string { return s.name }

// Pos returns the index of a SegmentIndex segment.
func (s Segment) Pos() int { return s.index }

// Symbol returns the symbol of a SegmentSymbol segment.
func (s Segment) Symbol() *Symbol { return s.sym }

// String renders the segment the way ParsePath reads it.
func (s Segment) String() string {
	switch s.kind {
	case SegmentIndex:
		return "[" + strconv.Itoa(s.index) + "]"
	case SegmentSymbol:
		return "[" + s.sym.String() + "]"
	default:
		if isIdent(s.name) {
			return s.name
		}
		return "[" + strconv.Quote(s.name) + "]"
	}
}

func isIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
