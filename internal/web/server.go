// Package web provides the HTTP trigger for flow file imports.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/flowimport/internal/config"
	"github.com/JonMunkholm/flowimport/internal/core"
	mw "github.com/JonMunkholm/flowimport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultImportTimeout bounds one HTTP-triggered batch.
const DefaultImportTimeout = 10 * time.Minute

// maxRequestBody caps the JSON request body.
const maxRequestBody = 1 << 20

// Server is the HTTP server exposing import, health and metrics endpoints.
type Server struct {
	service       *core.Service
	limiter       *core.ImportLimiter
	metrics       http.Handler
	importTimeout time.Duration
	router        *chi.Mux
	server        *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithImportTimeout bounds each batch started through the API.
func WithImportTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.importTimeout = d
		}
	}
}

// NewServer creates a new Server instance. limiter bounds concurrent batches.
func NewServer(service *core.Service, limiter *core.ImportLimiter, opts ...Option) *Server {
	s := &Server{
		service:       service,
		limiter:       limiter,
		importTimeout: DefaultImportTimeout,
		router:        chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.handleImport)
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(cfg config.ServerConfig) error {
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", cfg.Addr())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running batches to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.server != nil {
		errs = append(errs, s.server.Shutdown(ctx))
	}
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for imports: %w", err))
	}
	return errors.Join(errs...)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
