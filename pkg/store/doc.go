// Package store provides a fine-grained reactive state container.
//
// A store owns one value tree. Callers subscribe with a callback; the callback
// receives an accessor node and every terminal read made through that node is
// recorded against the subscription. Writes through a terminal handle replace
// the tree copy-on-write and re-invoke only the subscriptions whose recorded
// reads changed.
//
//	s := store.New(map[string]any{
//	    "john":  map[string]any{"age": 20},
//	    "brown": map[string]any{"age": 40},
//	})
//
//	sub := s.Watch(func(n store.Node, first bool) store.Result {
//	    fmt.Println("john is", n.Key("john").Key("age").Value())
//	    return store.Continue()
//	})
//
//	sub.Node().Key("john").Key("age").Set(21)  // prints "john is 21"
//	sub.Node().Key("brown").Key("age").Set(41) // prints nothing
//
// # Accessor Nodes
//
// Node is a tagged union. Branch addresses a container (map, slice, struct),
// Leaf addresses a primitive, Tuple is the read-only node of a combined watch.
// Nodes are cheap views bound to a path; they read the store fresh on every
// terminal access.
//
// # Callback Results
//
// A callback returns Continue, Unsubscribe (one-shot: no further calls), or
// Arm(token): cancelling the token removes the subscription.
//
// # Manual Sync
//
// NewManual decouples committing writes from notifying subscribers. Writes go
// through UpdateRef and subscribers run once per Sync:
//
//	m := store.NewManual(map[string]any{"x": 0, "y": 0})
//	m.UpdateRef().Key("x").Set(1)
//	m.UpdateRef().Key("y").Set(2)
//	m.Sync() // one notification for a subscriber reading x and y
//
// # Thread Safety
//
// Stores are single-threaded: all calls must come from one goroutine or be
// serialized by the caller. Callbacks run synchronously inside the write or
// Sync that triggered them.
package store
