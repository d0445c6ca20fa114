package devtools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// GraphFunc returns snapshots of the scopes to show on /graph. It is called
// from HTTP handler goroutines, so implementations must hop to the goroutine
// that owns the graph; LoopGraph does that with a reactive.Loop.
type GraphFunc func(ctx context.Context) ([]reactive.ScopeInfo, error)

// LoopGraph snapshots roots on loop's goroutine.
func LoopGraph(loop *reactive.Loop, roots ...*reactive.Scope) GraphFunc {
	return func(ctx context.Context) ([]reactive.ScopeInfo, error) {
		var out []reactive.ScopeInfo
		err := loop.Do(ctx, func() {
			out = make([]reactive.ScopeInfo, 0, len(roots))
			for _, root := range roots {
				out = append(out, root.Snapshot())
			}
		})
		return out, err
	}
}

// ServerOptions configures the devtools server.
type ServerOptions struct {
	// Addr is the listen address, e.g. "localhost:7331".
	Addr string

	// WSPath and MetricsPath default to /ws and /metrics.
	WSPath      string
	MetricsPath string

	// Hub streams events to WebSocket clients. Required.
	Hub *Hub

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Graph serves /graph. Nil disables the endpoint.
	Graph GraphFunc

	// Logger receives request and lifecycle logs.
	Logger *slog.Logger
}

// Server is the devtools HTTP server.
type Server struct {
	options    ServerOptions
	router     chi.Router
	httpServer *http.Server
	mu         sync.Mutex
	listener   net.Listener
	running    bool
}

// NewServer creates a devtools server.
func NewServer(options ServerOptions) *Server {
	if options.WSPath == "" {
		options.WSPath = "/ws"
	}
	if options.MetricsPath == "" {
		options.MetricsPath = "/metrics"
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Hub == nil {
		options.Hub = NewHub(0, options.Logger)
	}

	s := &Server{options: options}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": s.options.Hub.ClientCount(),
			"dropped": s.options.Hub.Dropped(),
		})
	})
	r.Get(s.options.WSPath, s.options.Hub.HandleWebSocket)
	r.Method(http.MethodGet, s.options.MetricsPath,
		promhttp.HandlerFor(s.options.Gatherer, promhttp.HandlerOpts{}))
	if s.options.Graph != nil {
		r.Get("/graph", s.handleGraph)
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scopes, err := s.options.Graph(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}

// Start listens on Addr, runs the hub and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		s.mu.Unlock()
		return errors.New("E100").WithDetail("Cannot listen on " + s.options.Addr).Wrap(err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.options.Hub.Run(hubCtx)

	s.options.Logger.Info("devtools listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return errors.New("E100").Wrap(err)
		}
		return nil
	}
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.options.Hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
