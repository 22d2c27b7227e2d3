package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/treestore/internal/errors"
	"github.com/vango-dev/treestore/pkg/lens"
	"github.com/vango-dev/treestore/pkg/store"
)

// maxBody bounds PUT request bodies.
const maxBody = 4 << 20

// Server serves one store over HTTP and websockets.
type Server struct {
	// mu serializes all access to st, including subscriber callbacks.
	mu       sync.Mutex
	st       *store.Store
	watchers map[uuid.UUID]*watcher

	config     *Config
	logger     *slog.Logger
	router     chi.Router
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// New creates a server for st.
func New(st *store.Store, config *Config) *Server {
	config = config.withDefaults()
	s := &Server{
		st:       st,
		watchers: make(map[uuid.UUID]*watcher),
		config:   config,
		logger:   config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleGet)
	r.Put("/state", s.handlePut)
	r.Get("/watch", s.handleWatch)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Do runs fn with exclusive access to the store.
func (s *Server) Do(fn func(st *store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Watchers returns the number of connected websocket watchers.
func (s *Server) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Run listens on the configured address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every watcher and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	for _, wt := range s.watchers {
		wt.stop(websocket.CloseGoingAway, "server shutting down")
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// stateResponse is the body of /state responses.
type stateResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := map[string]any{
		"status":      "ok",
		"watchers":    len(s.watchers),
		"subscribers": s.st.Subscribers(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("path")
	path, err := lens.ParsePath(expr)
	if err != nil {
		s.writeError(w, errors.FromError(err, "T001").WithPath(expr))
		return
	}

	var v any
	err = s.Do(func(st *store.Store) (err error) {
		v, err = path.Get(st.Snapshot())
		return err
	})
	if err != nil {
		s.writeError(w, errors.FromError(err, "T002").WithPath(expr))
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Path: path.String(), Value: v})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("path")
	path, err := lens.ParsePath(expr)
	if err != nil {
		s.writeError(w, errors.FromError(err, "T001").WithPath(expr))
		return
	}

	var v any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&v); err != nil {
		s.writeError(w, errors.New("T022").WithPath(expr).Wrap(err))
		return
	}

	err = s.Do(func(st *store.Store) error {
		return store.Descend(st.Ref(), path).Set(v)
	})
	if err != nil {
		s.logger.Debug("write rejected", "path", path.String(), "error", err)
		s.writeError(w, errors.FromError(err, "T022").WithPath(expr))
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Path: path.String(), Value: v})
}

func (s *Server) writeError(w http.ResponseWriter, e *errors.Error) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, e.FormatJSON())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
