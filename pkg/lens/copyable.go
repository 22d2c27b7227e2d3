package lens

import "fmt"

// Cursor is a read-only traversal over a value that can produce modified
// copies of it. The traversed value is never changed.
type Cursor struct {
	root any
	lens Lens
}

// Copyable returns a cursor positioned at the root of v.
//
//	next, err := lens.Copyable(doc).Key("john").Key("age").WriteCopy(21)
func Copyable(v any) *Cursor {
	return &Cursor{root: v}
}

// Key moves the cursor to the named child.
func (c *Cursor) Key(name string) *Cursor { return c.At(Key(name)) }

// Index moves the cursor to the i-th element.
func (c *Cursor) Index(i int) *Cursor { return c.At(Index(i)) }

// Sym moves the cursor to a symbol-keyed child.
func (c *Cursor) Sym(s *Symbol) *Cursor { return c.At(Sym(s)) }

// At moves the cursor by one segment.
func (c *Cursor) At(seg Segment) *Cursor {
	return &Cursor{root: c.root, lens: c.lens.Chain(seg)}
}

// Path returns the cursor's lens.
func (c *Cursor) Path() Lens { return c.lens }

// Value returns the value under the cursor.
func (c *Cursor) Value() (any, error) {
	return c.lens.Get(c.root)
}

// WriteCopy returns a copy of the original root in which the cursor position
// holds v. Untouched branches are shared with the original.
func (c *Cursor) WriteCopy(v any) (any, error) {
	return c.lens.Set(v)(c.root)
}

// Assign always fails: a cursor only produces copies through WriteCopy.
func (c *Cursor) Assign(seg Segment, _ any) error {
	return fmt.Errorf("assign %s: %w: use WriteCopy", c.lens.Chain(seg), ErrReadOnly)
}
