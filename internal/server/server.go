package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/poller"
	"github.com/rickgao/arbfeed/internal/view"
)

// Feed is the engine surface the server drives. *engine.Engine implements it.
type Feed interface {
	Start() error
	Stop() error
	Query(p view.Params) view.Page
	GetPage() view.Page
	ViewParameters() view.Params
	SetViewParameters(p view.Params)
	Status() engine.Status
}

// Catalog provides collaborator data. *poller.Catalog implements it.
type Catalog interface {
	Snapshot() poller.Snapshot
}

// Config holds HTTP server configuration.
type Config struct {
	Addr            string        // Listen address (e.g., ":8080")
	ReadTimeout     time.Duration // Per-request read timeout
	WriteTimeout    time.Duration // Per-request write timeout
	ShutdownTimeout time.Duration // Max wait for in-flight requests on Stop
	CatalogMaxAge   time.Duration // Catalog older than this reports stale on /health
	MetricsPath     string        // Mount point for WithMetrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CatalogMaxAge:   10 * time.Minute,
		MetricsPath:     "/metrics",
	}
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at Config.MetricsPath.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithClock replaces time.Now for health freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server is the consumer-facing HTTP server.
type Server struct {
	cfg     Config
	feed    Feed
	catalog Catalog
	metrics http.Handler
	logger  *slog.Logger
	now     func() time.Time

	router *chi.Mux
	http   *http.Server
	errc   chan error
}

// New creates a Server. catalog may be nil when collaborator polling is off.
func New(cfg Config, feed Feed, catalog Catalog, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultConfig().MetricsPath
	}
	s := &Server{
		cfg:     cfg,
		feed:    feed,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	if s.metrics != nil {
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/opportunities", s.handleOpportunities)
		r.Get("/view", s.handleGetView)
		r.Put("/view", s.handlePutView)
		r.Get("/filters", s.handleFilters)
		r.Get("/exchanges/status", s.handleExchangeStatus)

		r.Route("/feed", func(r chi.Router) {
			r.Get("/status", s.handleFeedStatus)
			r.Post("/start", s.handleFeedStart)
			r.Post("/stop", s.handleFeedStop)
		})
	})

	return r
}

// Start listens on Config.Addr and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.errc = make(chan error, 1)

	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errc <- err
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	err := <-s.errc
	s.logger.Info("http server stopped")
	return err
}

// logRequests logs each request with its chi request id.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"request_id", requestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

var _ Feed = (*engine.Engine)(nil)
