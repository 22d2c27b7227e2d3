package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/treestore/pkg/lens"
)

// counter is a callback that counts invocations and optionally reads through
// the node it is handed.
type counter struct {
	calls  int
	firsts int
	read   func(n Node)
	result func(first bool) Result
}

func (c *counter) renew(n Node, first bool) Result {
	c.calls++
	if first {
		c.firsts++
	}
	if c.read != nil {
		c.read(n)
	}
	if c.result != nil {
		return c.result(first)
	}
	return Continue()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func people() map[string]any {
	return map[string]any{
		"john": map[string]any{
			"age":   20,
			"house": []any{map[string]any{"color": "red"}},
		},
		"brown": map[string]any{
			"age":   40,
			"house": []any{map[string]any{"color": "blue"}},
		},
	}
}

func TestFirstInvocation(t *testing.T) {
	tests := []struct {
		name    string
		initial any
		kind    NodeKind
	}{
		{"primitive", 5, KindLeaf},
		{"string", "hi", KindLeaf},
		{"nil", nil, KindLeaf},
		{"object", people(), KindBranch},
		{"slice", []any{1, 2}, KindBranch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.initial, WithLogger(quietLogger()))
			var c counter
			sub := s.Watch(c.renew)

			if c.calls != 1 || c.firsts != 1 {
				t.Errorf("calls=%d firsts=%d, want 1/1", c.calls, c.firsts)
			}
			if sub.Node().Kind() != tt.kind {
				t.Errorf("node kind = %s, want %s", sub.Node().Kind(), tt.kind)
			}
			if !sub.Active() {
				t.Error("subscription should be active")
			}
		})
	}
}

func TestPathIsolation(t *testing.T) {
	s := New(people(), WithLogger(quietLogger()))

	john := &counter{read: func(n Node) {
		n.Key("john").Key("house").Index(0).Key("color").Value()
	}}
	brown := &counter{read: func(n Node) {
		n.Key("brown").Key("house").Index(0).Key("color").Value()
	}}
	ages := &counter{read: func(n Node) {
		n.Key("john").Key("age").Value()
	}}

	johnSub := s.Watch(john.renew)
	s.Watch(brown.renew)
	s.Watch(ages.renew)

	if err := johnSub.Node().Key("john").Key("house").Index(0).Key("color").Set("green"); err != nil {
		t.Fatal(err)
	}

	if john.calls != 2 {
		t.Errorf("john calls = %d, want 2", john.calls)
	}
	if brown.calls != 1 {
		t.Errorf("brown calls = %d, want 1", brown.calls)
	}
	if ages.calls != 1 {
		t.Errorf("ages calls = %d, want 1", ages.calls)
	}

	got, _ := lens.Of(lens.Key("john"), lens.Key("house"), lens.Index(0), lens.Key("color")).Get(s.Snapshot())
	if got != "green" {
		t.Errorf("color = %v, want green", got)
	}
}

func TestAncestorReadIsNotified(t *testing.T) {
	s := New(people(), WithLogger(quietLogger()))
	whole := &counter{read: func(n Node) { n.Key("john").Value() }}
	s.Watch(whole.renew)

	if err := s.Ref().Key("john").Key("age").Set(21); err != nil {
		t.Fatal(err)
	}
	if whole.calls != 2 {
		t.Errorf("calls = %d, want 2", whole.calls)
	}

	if err := s.Ref().Key("brown").Key("age").Set(41); err != nil {
		t.Fatal(err)
	}
	if whole.calls != 2 {
		t.Errorf("sibling write notified ancestor reader: calls = %d", whole.calls)
	}
}

func TestWriteIsCopyOnWrite(t *testing.T) {
	s := New(people(), WithLogger(quietLogger()))
	before := s.Snapshot().(map[string]any)

	if err := s.Ref().Key("john").Key("age").Set(30); err != nil {
		t.Fatal(err)
	}
	after := s.Snapshot().(map[string]any)

	if lens.Same(before, after) {
		t.Error("root should be replaced")
	}
	if lens.Same(before["john"], after["john"]) {
		t.Error("john should be replaced")
	}
	if !lens.Same(before["brown"], after["brown"]) {
		t.Error("brown should be shared")
	}
	if before["john"].(map[string]any)["age"] != 20 {
		t.Error("old root was modified")
	}
}

func TestNoOpWrite(t *testing.T) {
	s := New(people(), WithLogger(quietLogger()))
	c := &counter{read: func(n Node) { n.Key("john").Key("age").Value() }}
	sub := s.Watch(c.renew)
	before := s.Snapshot()

	if err := sub.Node().Key("john").Key("age").Set(20); err != nil {
		t.Fatal(err)
	}
	house, _ := lens.Of(lens.Key("john"), lens.Key("house")).Get(before)
	if err := sub.Node().Key("john").Key("house").Set(house); err != nil {
		t.Fatal(err)
	}

	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
	if !lens.Same(before, s.Snapshot()) {
		t.Error("no-op write replaced the root")
	}
}

func TestNoOpWriteAfterConversion(t *testing.T) {
	type person struct{ Age int }
	s := New(map[string]any{
		"counts": map[string]int{"n": 20},
		"john":   person{Age: 20},
	}, WithLogger(quietLogger()))
	c := &counter{read: func(n Node) {
		n.Key("counts").Key("n").Value()
		n.Key("john").Key("Age").Value()
	}}
	s.Watch(c.renew)
	before := s.Snapshot()

	if err := s.Ref().Key("counts").Key("n").Set(20.0); err != nil {
		t.Fatal(err)
	}
	if err := s.Ref().Key("john").Key("Age").Set(float64(20)); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
	if !lens.Same(before, s.Snapshot()) {
		t.Error("converted equal value replaced the root")
	}

	if err := s.Ref().Key("counts").Key("n").Set(21.0); err != nil {
		t.Fatal(err)
	}
	if c.calls != 2 {
		t.Errorf("calls after change = %d, want 2", c.calls)
	}
	if v, _ := As[int](s.Ref().Key("counts").Key("n")); v != 21 {
		t.Errorf("stored value = %v, want int 21", v)
	}
}

func TestCancellationToken(t *testing.T) {
	s := New(map[string]any{"x": 0}, WithLogger(quietLogger()))
	tok := NewToken()
	c := &counter{
		read:   func(n Node) { n.Key("x").Value() },
		result: func(bool) Result { return Arm(tok) },
	}
	sub := s.Watch(c.renew)

	_ = s.Ref().Key("x").Set(1)
	if c.calls != 2 {
		t.Fatalf("calls = %d, want 2", c.calls)
	}

	tok.Cancel()
	if sub.Active() {
		t.Error("subscription should be inactive after cancel")
	}
	if s.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", s.Subscribers())
	}

	_ = s.Ref().Key("x").Set(2)
	_ = s.Ref().Key("x").Set(3)
	if c.calls != 2 {
		t.Errorf("calls after cancel = %d, want 2", c.calls)
	}
}

func TestArmCancelledToken(t *testing.T) {
	s := New(1, WithLogger(quietLogger()))
	tok := NewToken()
	tok.Cancel()

	sub := s.Watch(func(Node, bool) Result { return Arm(tok) })
	if sub.Active() {
		t.Error("arming a cancelled token should remove the subscription")
	}
}

func TestSubscriptionCancel(t *testing.T) {
	s := New(map[string]any{"x": 0}, WithLogger(quietLogger()))
	c := &counter{read: func(n Node) { n.Key("x").Value() }}
	sub := s.Watch(c.renew)

	sub.Cancel()
	sub.Cancel()
	_ = s.Ref().Key("x").Set(1)

	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
}

func TestOneShot(t *testing.T) {
	s := New(map[string]any{"x": 0}, WithLogger(quietLogger()))
	c := &counter{
		read: func(n Node) { n.Key("x").Value() },
		result: func(first bool) Result {
			if first {
				return Continue()
			}
			return Unsubscribe()
		},
	}
	sub := s.Watch(c.renew)

	for i := 1; i <= 3; i++ {
		if err := s.Ref().Key("x").Set(i); err != nil {
			t.Fatal(err)
		}
	}
	if c.calls != 2 {
		t.Errorf("calls = %d, want 2", c.calls)
	}
	if sub.Active() {
		t.Error("one-shot subscription should be inactive")
	}
}

func TestIdentityCache(t *testing.T) {
	s := New(map[string]any{"x": 0}, WithLogger(quietLogger()))
	var c counter

	a := s.Watch(c.renew, WithIdentity("card"))
	b := s.Watch(c.renew, WithIdentity("card"))
	if a != b {
		t.Error("same identity should return the same subscription")
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}

	d := s.Watch(c.renew, WithIdentity("card"), NoCache())
	if d == a {
		t.Error("NoCache should create a new subscription")
	}

	a.Cancel()
	e := s.Watch(c.renew, WithIdentity("card"))
	if e == a {
		t.Error("cancelled identity should be rebuilt")
	}
	if s.Subscribers() != 2 {
		t.Errorf("subscribers = %d, want 2", s.Subscribers())
	}
}

func TestManualSyncBatching(t *testing.T) {
	m := NewManual(map[string]any{"x": 0, "y": 0}, WithLogger(quietLogger()))
	c := &counter{read: func(n Node) {
		n.Key("x").Value()
		n.Key("y").Value()
	}}
	m.Watch(c.renew)

	if err := m.UpdateRef().Key("x").Set(1); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateRef().Key("y").Set(2); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Fatalf("writes notified before Sync: calls = %d", c.calls)
	}

	if err := m.Sync(); err != nil {
		t.Fatal(err)
	}
	if c.calls != 2 {
		t.Errorf("calls after Sync = %d, want 2", c.calls)
	}

	if err := m.Sync(); err != nil {
		t.Fatal(err)
	}
	if c.calls != 2 {
		t.Errorf("empty Sync notified: calls = %d", c.calls)
	}
}

func TestManualWriteProtection(t *testing.T) {
	m := NewManual(map[string]any{"x": 0}, WithLogger(quietLogger()))

	ro := m.Watch(func(Node, bool) Result { return Continue() })
	if err := ro.Node().Key("x").Set(1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}

	rw := m.Watch(func(Node, bool) Result { return Continue() }, Editable())
	if err := rw.Node().Key("x").Set(1); err != nil {
		t.Errorf("editable write failed: %v", err)
	}
	if got := m.Snapshot().(map[string]any)["x"]; got != 1 {
		t.Errorf("x = %v, want 1", got)
	}
}

func TestSymbolKeyedPaths(t *testing.T) {
	s1, s2 := lens.NewSymbol("id"), lens.NewSymbol("id")
	s := New(map[any]any{s1: 1, s2: 2}, WithLogger(quietLogger()))

	a := &counter{read: func(n Node) { n.Sym(s1).Value() }}
	b := &counter{read: func(n Node) { n.Sym(s2).Value() }}
	s.Watch(a.renew)
	s.Watch(b.renew)

	if err := s.Ref().Sym(s1).Set(10); err != nil {
		t.Fatal(err)
	}
	if a.calls != 2 || b.calls != 1 {
		t.Errorf("calls a=%d b=%d, want 2/1", a.calls, b.calls)
	}
}

func TestStalePathIsDropped(t *testing.T) {
	s := New(map[string]any{
		"name": "n",
		"list": []any{
			map[string]any{"color": "a"},
			map[string]any{"color": "b"},
		},
	}, WithLogger(quietLogger()))

	c := &counter{read: func(n Node) {
		n.Key("list").Index(1).Key("color").Value()
		n.Key("name").Value()
	}}
	s.Watch(c.renew)

	if err := s.Ref().Key("list").Set([]any{map[string]any{"color": "a"}}); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Errorf("dropped path notified: calls = %d", c.calls)
	}

	if err := s.Ref().Key("name").Set("m"); err != nil {
		t.Fatal(err)
	}
	if c.calls != 2 {
		t.Errorf("remaining path lost: calls = %d, want 2", c.calls)
	}
}

func TestHeldLeafReadsFresh(t *testing.T) {
	s := New(map[string]any{
		"list": []any{
			map[string]any{"color": "a"},
			map[string]any{"color": "b"},
		},
	}, WithLogger(quietLogger()))

	held := s.Ref().Key("list").Index(1).Key("color")
	if held.Value() != "b" {
		t.Fatalf("held value = %v, want b", held.Value())
	}

	if err := s.Ref().Key("list").Set([]any{map[string]any{"color": "a"}}); err != nil {
		t.Fatal(err)
	}
	if v := held.Value(); v != nil {
		t.Errorf("held leaf after shrink = %v, want nil", v)
	}
	if v := s.Ref().Key("list").Index(1).Key("color").Value(); v != nil {
		t.Errorf("fresh traversal = %v, want nil", v)
	}

	if err := s.Ref().Key("list").Set([]any{
		map[string]any{"color": "a"},
		map[string]any{"color": "c"},
	}); err != nil {
		t.Fatal(err)
	}
	if v := held.Value(); v != "c" {
		t.Errorf("held leaf after regrow = %v, want c", v)
	}
}

func TestNonTerminalAssign(t *testing.T) {
	s := New(people(), WithLogger(quietLogger()))
	n := s.Ref()

	if err := n.Assign(lens.Key("john"), 1); !errors.Is(err, ErrNonTerminalWrite) {
		t.Errorf("branch assign err = %v", err)
	}
	if err := n.Key("john").Key("age").Assign(lens.Key("x"), 1); !errors.Is(err, ErrNonTerminalWrite) {
		t.Errorf("leaf assign err = %v", err)
	}
}

func TestRootLeafStore(t *testing.T) {
	s := New(5, WithLogger(quietLogger()))

	var seen []any
	a := s.Watch(func(n Node, _ bool) Result {
		seen = append(seen, n.Value())
		return Continue()
	})
	other := &counter{read: func(n Node) { n.Value() }}
	b := s.Watch(other.renew)

	if err := b.Node().Set(6); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[1] != 6 {
		t.Errorf("seen = %v, want [5 6]", seen)
	}
	if leaf := a.Node().(*Leaf); leaf.cached != 6 || !leaf.IsRoot() {
		t.Errorf("runner should propagate to the leaf cache, got %v", leaf.cached)
	}
	if s.Snapshot() != 6 {
		t.Errorf("snapshot = %v", s.Snapshot())
	}
	if other.calls != 2 {
		t.Errorf("writer's own subscription calls = %d, want 2", other.calls)
	}
}

func TestEach(t *testing.T) {
	s := New(map[string]any{"list": []any{"a", "b", "c"}}, WithLogger(quietLogger()))

	var got []any
	s.Ref().Key("list").Each(func(i int, n Node) bool {
		got = append(got, n.Value())
		return i < 1
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
	if n := s.Ref().Key("list").Len(); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}

	// Non-list nodes yield nothing.
	s.Ref().Each(func(int, Node) bool {
		t.Error("map should not iterate")
		return false
	})
}

func TestEachAfterShapeChange(t *testing.T) {
	s := New(nil, WithLogger(quietLogger()))

	var got []any
	sub := s.Watch(func(n Node, _ bool) Result {
		got = got[:0]
		n.Each(func(_ int, c Node) bool {
			got = append(got, c.Value())
			return true
		})
		n.Len()
		return Continue()
	})
	if sub.Node().Kind() != KindLeaf {
		t.Fatalf("kind = %s, want leaf", sub.Node().Kind())
	}

	if err := sub.Node().Set([]any{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Each on leaf node = %v, want [1 2 3]", got)
	}
	if n := sub.Node().Len(); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}

	// Elements read during iteration are recorded.
	if err := s.Ref().Index(1).Set(20); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[1] != 20 {
		t.Errorf("after element write got = %v, want [1 20 3]", got)
	}
}

func TestReentrantWriteSettles(t *testing.T) {
	s := New(map[string]any{"a": 0, "b": 0}, WithLogger(quietLogger()))

	s.Watch(func(n Node, first bool) Result {
		a, _ := As[int](n.Key("a"))
		if !first {
			if err := n.Key("b").Set(a * 10); err != nil {
				t.Errorf("nested write: %v", err)
			}
		}
		return Continue()
	})
	b := &counter{read: func(n Node) { n.Key("b").Value() }}
	s.Watch(b.renew)

	if err := s.Ref().Key("a").Set(1); err != nil {
		t.Fatal(err)
	}
	if b.calls != 2 {
		t.Errorf("b calls = %d, want 2", b.calls)
	}
	if got := s.Snapshot().(map[string]any)["b"]; got != 10 {
		t.Errorf("b = %v, want 10", got)
	}
}

func TestNotifyStorm(t *testing.T) {
	s := New(map[string]any{"a": 0}, WithLogger(quietLogger()), WithMaxPasses(5))

	s.Watch(func(n Node, first bool) Result {
		a, _ := As[int](n.Key("a"))
		if !first {
			_ = n.Key("a").Set(a + 1)
		}
		return Continue()
	})

	err := s.Ref().Key("a").Set(1)
	if !errors.Is(err, ErrNotifyStorm) {
		t.Fatalf("err = %v, want ErrNotifyStorm", err)
	}

	// The store stays usable after a storm.
	if err := s.Ref().Key("a").Set(-1); !errors.Is(err, ErrNotifyStorm) {
		t.Errorf("second storm err = %v", err)
	}
}

type countingObserver struct {
	passes   []PassStats
	writes   int
	noops    int
	deferred int
}

func (o *countingObserver) ObservePass(s PassStats) { o.passes = append(o.passes, s) }

func (o *countingObserver) ObserveWrite(s WriteStats) {
	o.writes++
	if s.NoOp {
		o.noops++
	}
	if s.Deferred {
		o.deferred++
	}
}

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	s := New(people(), WithLogger(quietLogger()), WithObserver(obs))
	c := &counter{read: func(n Node) { n.Key("john").Key("age").Value() }}
	s.Watch(c.renew)

	_ = s.Ref().Key("john").Key("age").Set(21)
	_ = s.Ref().Key("john").Key("age").Set(21)

	if obs.writes != 2 || obs.noops != 1 {
		t.Errorf("writes=%d noops=%d, want 2/1", obs.writes, obs.noops)
	}
	if len(obs.passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(obs.passes))
	}
	p := obs.passes[0]
	if p.Entries != 1 || p.Changed != 1 || p.Notified != 1 || p.Dropped != 0 {
		t.Errorf("pass stats = %+v", p)
	}

	m := NewManual(map[string]any{"x": 0}, WithLogger(quietLogger()), WithObserver(obs))
	_ = m.UpdateRef().Key("x").Set(1)
	if obs.deferred != 1 {
		t.Errorf("deferred = %d, want 1", obs.deferred)
	}
}

func TestToken(t *testing.T) {
	tok := NewToken()
	var order []int
	tok.OnCancel(func() { order = append(order, 1) })
	stop := tok.OnCancel(func() { order = append(order, 2) })
	tok.OnCancel(func() { order = append(order, 3) })
	stop()

	tok.Cancel()
	tok.Cancel()
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("order = %v, want [1 3]", order)
	}

	ran := false
	tok.OnCancel(func() { ran = true })
	if !ran || !tok.Cancelled() {
		t.Error("late listener should run immediately")
	}
}

func TestDescend(t *testing.T) {
	s := New(map[string]any{"john": map[string]any{"pets": []any{"rex", "tom"}}}, WithLogger(quietLogger()))

	var got any
	s.Watch(func(n Node, _ bool) Result {
		got = Descend(n, lens.Of(lens.Key("john"), lens.Key("pets"), lens.Index(1))).Value()
		return Continue()
	})
	if got != "tom" {
		t.Fatalf("Descend value = %v, want tom", got)
	}

	_ = s.Ref().Key("john").Key("pets").Index(1).Set("kit")
	if got != "kit" {
		t.Errorf("after write got = %v, want kit", got)
	}

	if n := Descend(s.Ref(), lens.Root()); n.Kind() != KindBranch {
		t.Errorf("Descend(root) kind = %s", n.Kind())
	}
}
