package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/treestore/internal/errors"
	"github.com/vango-dev/treestore/pkg/lens"
	"github.com/vango-dev/treestore/pkg/store"
)

// Update is one websocket watch message.
type Update struct {
	Watch string `json:"watch"`
	Path  string `json:"path"`
	Value any    `json:"value"`
	First bool   `json:"first,omitempty"`
}

// closeMsg is a close frame queued for the writer.
type closeMsg struct {
	code int
	text string
}

// watcher is one websocket connection subscribed to a path.
type watcher struct {
	id     uuid.UUID
	path   lens.Lens
	conn   *websocket.Conn
	logger *slog.Logger

	// send is written only by renew, which runs with Server.mu held.
	send  chan Update
	token *store.Token

	closeOnce sync.Once
	closing   chan closeMsg
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("path")
	path, err := lens.ParsePath(expr)
	if err != nil {
		s.writeError(w, errors.FromError(err, "T001").WithPath(expr))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(512)

	wt := &watcher{
		id:      uuid.New(),
		path:    path,
		conn:    conn,
		logger:  s.logger,
		send:    make(chan Update, s.config.WatchBuffer),
		token:   store.NewToken(),
		closing: make(chan closeMsg, 1),
	}

	s.Do(func(st *store.Store) error {
		s.watchers[wt.id] = wt
		st.Watch(wt.renew, store.NoCache())
		return nil
	})
	s.logger.Debug("watcher connected", "watch", wt.id, "path", path.String())

	done := make(chan struct{})
	go func() {
		wt.writeLoop(s.config.WriteTimeout)
		close(done)
	}()
	wt.readLoop()

	s.Do(func(*store.Store) error {
		wt.token.Cancel()
		delete(s.watchers, wt.id)
		close(wt.send)
		return nil
	})

	<-done
	s.logger.Debug("watcher disconnected", "watch", wt.id)
}

// renew is the subscription callback. It queues the value at the watched
// path without blocking; a full queue closes the connection.
func (wt *watcher) renew(n store.Node, first bool) store.Result {
	u := Update{
		Watch: wt.id.String(),
		Path:  wt.path.String(),
		First: first,
	}
	if target := store.Descend(n, wt.path); target != nil {
		u.Value = target.Value()
	}

	select {
	case wt.send <- u:
		return store.Arm(wt.token)
	default:
		wt.logger.Warn("watcher lagging, closing", "watch", wt.id, "queued", len(wt.send))
		wt.stop(websocket.CloseTryAgainLater, "watcher lagging")
		return store.Unsubscribe()
	}
}

// stop asks the writer to send a close frame and close the connection.
func (wt *watcher) stop(code int, text string) {
	wt.closeOnce.Do(func() {
		wt.closing <- closeMsg{code: code, text: text}
	})
}

// readLoop discards client messages until the connection closes.
func (wt *watcher) readLoop() {
	for {
		if _, _, err := wt.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseTryAgainLater) {
				wt.logger.Warn("watcher read error", "watch", wt.id, "error", err)
			}
			return
		}
	}
}

// writeLoop sends queued updates until send is closed or a close is requested.
func (wt *watcher) writeLoop(timeout time.Duration) {
	defer wt.conn.Close()
	for {
		select {
		case u, ok := <-wt.send:
			if !ok {
				return
			}
			wt.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := wt.conn.WriteJSON(u); err != nil {
				return
			}
		case c := <-wt.closing:
			deadline := time.Now().Add(timeout)
			wt.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(c.code, c.text), deadline)
			return
		}
	}
}
