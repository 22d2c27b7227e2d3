package storetest

import (
	"testing"

	"github.com/vango-dev/treestore/pkg/store"
)

func TestRecorder(t *testing.T) {
	s := store.New(map[string]any{"john": map[string]any{"age": 20}})

	r := NewRecorder(func(n store.Node) any { return n.Key("john").Key("age").Value() })
	sub := r.Watch(t, s)

	r.AssertCount(t, 1)
	r.AssertLast(t, 20)
	if !r.Calls[0].First {
		t.Error("first call should be flagged")
	}

	if err := sub.Node().Key("john").Key("age").Set(21); err != nil {
		t.Fatal(err)
	}
	r.AssertCount(t, 2)
	r.AssertLast(t, 21)
	if r.Calls[1].First {
		t.Error("second call should not be flagged first")
	}
}

func TestRecorderDefaultRead(t *testing.T) {
	s := store.New(1)
	r := &Recorder{}
	r.Watch(t, s)

	_ = s.Ref().Set(2)
	r.AssertCount(t, 2)
	r.AssertLast(t, 2)
}

func TestRecorderResult(t *testing.T) {
	s := store.New(0)
	r := &Recorder{Result: func(bool) store.Result { return store.Unsubscribe() }}
	sub := s.Watch(r.Renew)

	if sub.Active() {
		t.Error("Unsubscribe on the first call should remove the subscription")
	}
	_ = s.Ref().Set(1)
	r.AssertCount(t, 1)
}
