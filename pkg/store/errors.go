package store

import (
	"errors"

	"github.com/vango-dev/treestore/pkg/lens"
)

var (
	// ErrNonTerminalWrite is returned when assigning to a child of a node
	// instead of writing through the child's terminal handle.
	ErrNonTerminalWrite = errors.New("treestore: write to non-terminal property")

	// ErrReadOnly is returned when writing through a combined watch node or
	// through a non-editable node of a manual-sync store.
	ErrReadOnly = lens.ErrReadOnly

	// ErrUnresolved is returned when writing through a path that does not resolve.
	ErrUnresolved = lens.ErrUnresolved

	// ErrNotifyStorm is returned when callbacks keep writing to the store and
	// notification passes do not settle within the configured limit.
	ErrNotifyStorm = errors.New("treestore: notification passes did not settle")
)
