// The full websocket/HTTP live-preview server is left to the embedding
// application; pankat ships only a minimal chi-routed skeleton so the
// pub/sub registry has a concrete attach point, grounded on
// internal/api/server.go's router/middleware shape.
package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/nixcloud/pankat/internal/pubsub"
)

// HTTPServer is the minimal preview/metrics server wrapping a Daemon.
type HTTPServer struct {
	router *chi.Mux
	server *http.Server
	daemon *Daemon
}

// NewHTTPServer builds the router: a health check, a live-updates
// subscriber endpoint (one long-lived HTTP response streaming newline-
// delimited JSON messages — a stand-in for a full websocket upgrade), and
// (when built with the "prometheus" build tag) a /metrics endpoint.
func NewHTTPServer(addr string, d *Daemon) *HTTPServer {
	s := &HTTPServer{router: chi.NewRouter(), daemon: d}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/live", s.handleLive)
	if h := prometheusOptionalHandler(); h != nil {
		s.router.Get("/metrics", h.ServeHTTP)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleLive subscribes the requesting connection to the updates topic and
// streams each published Message as one line of JSON until the client
// disconnects. A real websocket upgrade belongs to the embedding
// application; this gives the registry something to fan out to in a
// buildable, testable repository.
func (s *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	msgs, cancel := pubsub.Subscribe(s.daemon.Pub, Topic, 8)
	s.daemon.Recorder.SetSubscriberCount(Topic, s.daemon.Pub.SubscriberCount(Topic))
	defer func() {
		cancel()
		s.daemon.Recorder.SetSubscriberCount(Topic, s.daemon.Pub.SubscriberCount(Topic))
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if _, err := w.Write(append(msg, '\n')); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Start begins serving in a background goroutine.
func (s *HTTPServer) Start() {
	go func() { _ = s.server.ListenAndServe() }()
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
