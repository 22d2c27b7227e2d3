// Package lens provides immutable, composable path descriptors over nested Go values.
//
// A Lens is an ordered list of segments (map keys, slice indexes or symbols).
// Lenses are persistent: Chain never mutates the receiver, so a lens can be
// shared freely between accessor nodes.
//
//	l := lens.Root().Chain(lens.Key("john")).Chain(lens.Key("age"))
//	age, err := l.Get(root)               // 20
//	next, err := l.Set(21)(root)          // new root, old root untouched
//
// # Copy-on-write
//
// Set shallow-copies every container on the path from the root to the target
// and reuses every sibling branch by reference. Maps, slices, arrays, structs
// and pointers to structs are containers; everything else is a primitive.
//
// # Path keys
//
// A Namespace turns a lens into a canonical string key. Segments are
// type-tagged and escaped so structurally different paths never collide, and
// each Symbol receives a namespace-local id.
package lens
