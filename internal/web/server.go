// Package web provides an HTTP status server for the dashboard daemon: an
// HTML page, JSON, Prometheus metrics and a websocket live feed.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sweeney/ev-dashboard/internal/metrics"
	"github.com/sweeney/ev-dashboard/internal/status"
)

// DefaultLiveInterval is how often the websocket feed pushes a snapshot.
const DefaultLiveInterval = time.Second

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	interval   time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Server that reads state from the given tracker. m may be nil,
// in which case /metrics answers 404.
func New(addr string, tracker *status.Tracker, m *metrics.Metrics) *Server {
	s := &Server{
		tracker:  tracker,
		metrics:  m,
		interval: DefaultLiveInterval,
		done:     make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetLiveInterval changes the websocket push period. Call before serving.
func (s *Server) SetLiveInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", s.metrics.Handler())
	r.HandleFunc("/ws", s.handleLive)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.statsMiddleware)
	pages.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	pages.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	pages.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet, http.MethodHead)

	return r
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and ends live feeds.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

// respWriter records the status code for the request counter.
type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &respWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.metrics.RecHTTP(strconv.Itoa(wrapped.status), r.Method)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}
