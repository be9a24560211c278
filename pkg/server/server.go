// Package server exposes the story pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz
//	POST   /api/v1/validate?mode=strict    body: story document
//	POST   /api/v1/layout                  body: {"story": ..., "options": ...}
//	POST   /api/v1/diagram/{format}        body: {"story": ..., "options": ...}
//	POST   /api/v1/export/{format}         body: story document (json or html)
//	POST   /api/v1/play                    body: {"story"|"state", "action", "option"}
//	GET    /api/v1/gallery?url=...
//	GET    /api/v1/state/{key}             (only with a store)
//	PUT    /api/v1/state/{key}
//	DELETE /api/v1/state/{key}
//
// Errors are JSON {"error": {"code", "message"}}. Validation codes map to
// 400, SIZE_LIMIT_EXCEEDED to 413, NOT_FOUND to 404 and NETWORK_ERROR to 502.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/pipeline"
	"github.com/matzehuels/storyweave/pkg/store"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultMaxBodyBytes    = validate.MaxImportBytes + 64<<10
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the listener and request limits.
type Config struct {
	Addr            string        `toml:"addr" env:"ADDR"`
	MaxBodyBytes    int64         `toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	RequestTimeout  time.Duration `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server serves the HTTP API. Create it with New.
type Server struct {
	cfg        Config
	runner     *pipeline.Runner
	validator  validate.Validator
	store      store.Store
	gallery    *gallery.Client
	galleryURL string
	logger     *log.Logger
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets listener and limit settings.
func WithConfig(cfg Config) Option { return func(s *Server) { s.cfg = cfg } }

// WithStore enables the /api/v1/state routes.
func WithStore(st store.Store) Option { return func(s *Server) { s.store = st } }

// WithGallery sets the manifest client and the URL used when a request
// names none.
func WithGallery(c *gallery.Client, defaultURL string) Option {
	return func(s *Server) { s.gallery, s.galleryURL = c, defaultURL }
}

// WithMaxNodes caps the node count of posted stories.
func WithMaxNodes(n int) Option { return func(s *Server) { s.validator.MaxNodes = n } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// New returns a server that renders through runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.setDefaults()
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.gallery == nil {
		s.gallery = gallery.NewClient(gallery.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/validate", s.handleValidate)
		r.Post("/layout", s.handleLayout)
		r.Post("/diagram/{format}", s.handleDiagram)
		r.Post("/export/{format}", s.handleExport)
		r.Post("/play", s.handlePlay)
		r.Get("/gallery", s.handleGallery)
		if s.store != nil {
			r.Get("/state/{key}", s.handleStateGet)
			r.Put("/state/{key}", s.handleStatePut)
			r.Delete("/state/{key}", s.handleStateDelete)
		}
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFound("no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}
