package store

import "sync/atomic"

// idCounter is the source of subscription IDs. IDs are never reused, so
// they stay unambiguous in logs across stores.
var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}
