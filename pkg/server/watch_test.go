package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/treestore/pkg/lens"
	"github.com/vango-dev/treestore/pkg/store"
)

func dialWatch(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch?path=" + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v (resp %v)", url, err, resp)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) Update {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var u Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read update: %v", err)
	}
	return u
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchStreamsChanges(t *testing.T) {
	s := newTestServer(t, map[string]any{
		"john": map[string]any{"age": 42.0, "name": "John"},
	}, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dialWatch(t, ts, "john.age")

	first := readUpdate(t, conn)
	if !first.First || first.Value != 42.0 || first.Path != "john.age" {
		t.Fatalf("first update = %+v", first)
	}
	if _, err := uuid.Parse(first.Watch); err != nil {
		t.Errorf("watch id %q is not a uuid: %v", first.Watch, err)
	}
	if s.Watchers() != 1 {
		t.Errorf("Watchers() = %d, want 1", s.Watchers())
	}

	// Unrelated path: no message.
	doRequest(t, s, http.MethodPut, "/state?path=john.name", `"Johnny"`)
	doRequest(t, s, http.MethodPut, "/state?path=john.age", "43")

	next := readUpdate(t, conn)
	if next.First || next.Value != 43.0 {
		t.Errorf("next update = %+v, want value 43", next)
	}
	if next.Watch != first.Watch {
		t.Error("watch id changed between updates")
	}
}

func TestWatchCancelledOnClose(t *testing.T) {
	s := newTestServer(t, map[string]any{"n": 1.0}, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dialWatch(t, ts, "n")
	readUpdate(t, conn)

	subscribers := func() int {
		var n int
		s.Do(func(st *store.Store) error {
			n = st.Subscribers()
			return nil
		})
		return n
	}
	if subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", subscribers())
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool { return s.Watchers() == 0 })
	if subscribers() != 0 {
		t.Errorf("subscription leaked after close: %d", subscribers())
	}
	if rec := doRequest(t, s, http.MethodPut, "/state?path=n", "2"); rec.Code != http.StatusOK {
		t.Errorf("write after disconnect status = %d", rec.Code)
	}
}

func TestWatchLaggingUnsubscribes(t *testing.T) {
	st := store.New(map[string]any{"n": 0.0}, store.WithLogger(quietLogger()))
	wt := &watcher{
		id:      uuid.New(),
		path:    lens.Of(lens.Key("n")),
		logger:  quietLogger(),
		send:    make(chan Update, 1),
		token:   store.NewToken(),
		closing: make(chan closeMsg, 1),
	}

	st.Watch(wt.renew, store.NoCache())
	if len(wt.send) != 1 {
		t.Fatalf("first update not queued, len = %d", len(wt.send))
	}

	if err := st.Ref().Key("n").Set(1.0); err != nil {
		t.Fatal(err)
	}
	if st.Subscribers() != 0 {
		t.Errorf("lagging watcher should unsubscribe, subscribers = %d", st.Subscribers())
	}
	select {
	case c := <-wt.closing:
		if c.code != websocket.CloseTryAgainLater {
			t.Errorf("close code = %d, want %d", c.code, websocket.CloseTryAgainLater)
		}
	default:
		t.Error("expected a close request")
	}

	// A second stop is ignored.
	wt.stop(websocket.CloseGoingAway, "again")
	if len(wt.closing) != 0 {
		t.Error("stop should only queue one close")
	}
}

func TestWatchBadPath(t *testing.T) {
	s := newTestServer(t, 0, nil)
	rec := doRequest(t, s, http.MethodGet, "/watch?path=a[", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestShutdownClosesWatchers(t *testing.T) {
	s := newTestServer(t, map[string]any{"n": 1.0}, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dialWatch(t, ts, "n")
	readUpdate(t, conn)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after shutdown = %v, want CloseGoingAway", err)
	}
}
