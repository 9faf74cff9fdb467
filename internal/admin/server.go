package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hydronom-sim/internal/feeder"
	"hydronom-sim/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// StatusSource provides the run snapshot served on /status.
type StatusSource interface {
	Status() feeder.Status
}

// Server exposes run status, metrics, the live feed and a stop control.
type Server struct {
	status   StatusSource
	stop     func()
	gatherer prometheus.Gatherer
	hub      *Hub
}

// NewServer creates a Server. stop, gatherer and hub may be nil to
// disable the matching route.
func NewServer(status StatusSource, stop func(), gatherer prometheus.Gatherer, hub *Hub) *Server {
	return &Server{status: status, stop: stop, gatherer: gatherer, hub: hub}
}

// Handler returns the admin routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /stop", s.handleStop)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.hub != nil {
		mux.Handle("GET /ws/telemetry", s.hub)
	}
	return mux
}

// Start listens on addr and serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("admin server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.hub != nil {
		_ = s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin server shutdown", "err", err)
		return err
	}
	log.Info("admin server stopped")
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.stop == nil {
		http.Error(w, "stop not available", http.StatusNotImplemented)
		return
	}
	s.stop()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"stopping": true})
}
