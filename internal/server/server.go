// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST   /api/v1/layouts       lay out a definition (JSON, YAML or TOML body)
//	GET    /api/v1/layouts       list stored layouts, newest first
//	GET    /api/v1/layouts/{id}  fetch one stored layout
//	DELETE /api/v1/layouts/{id}  delete one stored layout
//	GET    /healthz              liveness and store reachability
//	GET    /metrics              Prometheus metrics, when enabled
//
// Errors are answered as {"error": {"code": ..., "message": ...}} with the
// status given by errors.HTTPStatus.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/statelayout/internal/metrics"
	"github.com/matzehuels/statelayout/pkg/pipeline"
	"github.com/matzehuels/statelayout/pkg/store"
)

// Defaults used when the matching option is not given.
const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultListLimit    = 50
	MaxListLimit        = 500
	shutdownTimeout     = 10 * time.Second
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger. The default discards all output.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics exposes reg on /metrics and records request metrics into it.
func WithMetrics(reg *metrics.Registry) Option { return func(s *Server) { s.metrics = reg } }

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option { return func(s *Server) { s.maxBody = n } }

// WithLayoutTimeout bounds each layout request.
func WithLayoutTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// WithTimeouts sets the read and write timeouts of the HTTP server.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) { s.readTimeout, s.writeTimeout = read, write }
}

// Server serves the layout API.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	metrics *metrics.Registry
	maxBody int64
	timeout time.Duration

	readTimeout, writeTimeout time.Duration

	router chi.Router
}

// New creates a server that lays out with runner and keeps results in st.
func New(runner *pipeline.Runner, st store.Store, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		store:        st,
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
		maxBody:      DefaultMaxBodyBytes,
		timeout:      pipeline.DefaultTimeout,
		readTimeout:  15 * time.Second,
		writeTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1/layouts", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe logs every request and records it in the metrics registry under
// its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, route, status, duration)
		}
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", duration.Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
