package lens

import "errors"

var (
	// ErrUnresolved is returned when an intermediate value on a path is nil or missing.
	ErrUnresolved = errors.New("treestore: path does not resolve")

	// ErrNotContainer is returned when a segment is applied to a value that
	// cannot hold it (a field name on a slice, an index on a string, ...).
	ErrNotContainer = errors.New("treestore: value is not a container for segment")

	// ErrTypeMismatch is returned when Set cannot store a value in a typed container.
	ErrTypeMismatch = errors.New("treestore: value type does not fit container")

	// ErrReadOnly is returned when writing through a read-only projection.
	ErrReadOnly = errors.New("treestore: read-only")

	// ErrBadPath is returned by ParsePath for malformed path expressions.
	ErrBadPath = errors.New("treestore: malformed path")
)
