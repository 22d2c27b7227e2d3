// Package storetest provides helpers for testing code built on treestore.
package storetest

import (
	"testing"

	"github.com/vango-dev/treestore/pkg/store"
)

// Call is one recorded callback invocation.
type Call struct {
	First bool
	Value any
}

// Recorder is a subscription callback that records every invocation.
// It reads the node (or the child selected by Read) on each call, so the
// recorded path is the one the subscription depends on.
type Recorder struct {
	// Read selects what to read from the node. Default: the node itself.
	Read func(n store.Node) any

	// Result is returned to the store. Default: store.Continue().
	Result func(first bool) store.Result

	Calls []Call
}

// NewRecorder returns a recorder that reads the value selected by read.
func NewRecorder(read func(n store.Node) any) *Recorder {
	return &Recorder{Read: read}
}

// Renew is the store callback.
func (r *Recorder) Renew(n store.Node, first bool) store.Result {
	var v any
	if r.Read != nil {
		v = r.Read(n)
	} else {
		v = n.Value()
	}
	r.Calls = append(r.Calls, Call{First: first, Value: v})
	if r.Result != nil {
		return r.Result(first)
	}
	return store.Continue()
}

// Count returns the number of invocations.
func (r *Recorder) Count() int {
	return len(r.Calls)
}

// Last returns the most recently recorded value.
func (r *Recorder) Last() any {
	if len(r.Calls) == 0 {
		return nil
	}
	return r.Calls[len(r.Calls)-1].Value
}

// AssertCount fails the test when the invocation count is not want.
func (r *Recorder) AssertCount(t testing.TB, want int) {
	t.Helper()
	if got := r.Count(); got != want {
		t.Errorf("callback invoked %d times, want %d (values: %v)", got, want, r.values())
	}
}

// AssertLast fails the test when the last recorded value is not want.
func (r *Recorder) AssertLast(t testing.TB, want any) {
	t.Helper()
	if got := r.Last(); got != want {
		t.Errorf("last value = %v, want %v", got, want)
	}
}

func (r *Recorder) values() []any {
	out := make([]any, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.Value
	}
	return out
}

// Watch subscribes r to w and returns the subscription. The subscription is
// cancelled when the test finishes.
func (r *Recorder) Watch(t testing.TB, w store.Watcher, opts ...store.WatchOption) *store.Subscription {
	t.Helper()
	sub := w.Watch(r.Renew, opts...)
	t.Cleanup(sub.Cancel)
	if len(r.Calls) == 0 || !r.Calls[0].First {
		t.Fatalf("watch did not perform a first invocation")
	}
	return sub
}
