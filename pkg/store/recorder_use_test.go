package store_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/treestore/pkg/store"
	"github.com/vango-dev/treestore/pkg/storetest"
)

func TestRecorderAgainstStores(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auto := store.New(map[string]any{"x": 1}, store.WithLogger(logger))
	manual := store.NewManual(map[string]any{"y": 1}, store.WithLogger(logger))

	x := storetest.NewRecorder(func(n store.Node) any { return n.Key("x").Value() })
	x.Watch(t, auto)

	y := storetest.NewRecorder(func(n store.Node) any { return n.Key("y").Value() })
	y.Watch(t, manual)

	both := storetest.NewRecorder(func(n store.Node) any {
		return []any{n.Index(0).Key("x").Value(), n.Index(1).Key("y").Value()}
	})
	both.Watch(t, store.Combine(auto, manual).WithLogger(logger))

	if err := auto.Ref().Key("x").Set(2); err != nil {
		t.Fatal(err)
	}
	x.AssertCount(t, 2)
	x.AssertLast(t, 2)
	both.AssertCount(t, 2)

	_ = manual.UpdateRef().Key("y").Set(2)
	_ = manual.UpdateRef().Key("y").Set(3)
	y.AssertCount(t, 1)
	if err := manual.Sync(); err != nil {
		t.Fatal(err)
	}
	y.AssertCount(t, 2)
	y.AssertLast(t, 3)
	both.AssertCount(t, 3)
}

func TestRecorderOneShot(t *testing.T) {
	s := store.New(0, store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	r := &storetest.Recorder{Result: func(first bool) store.Result {
		if first {
			return store.Continue()
		}
		return store.Unsubscribe()
	}}
	sub := r.Watch(t, s)

	_ = s.Ref().Set(1)
	_ = s.Ref().Set(2)
	r.AssertCount(t, 2)
	r.AssertLast(t, 1)
	if sub.Active() {
		t.Error("one-shot subscription still active")
	}
}
