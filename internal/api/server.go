// Package api serves the screening dashboard: run batches, browse
// recent runs, download exports. The detection pipeline itself stays a
// library call; this server is just one of its consumers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/runs"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" koanf:"host"`
	Port         int    `json:"port" koanf:"port"`
	ReadTimeout  int    `json:"readTimeout" koanf:"read_timeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" koanf:"write_timeout"` // seconds
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, detector *detect.Detector, store *runs.Store, topN int, version string) *Server {
	handler := NewHandler(detector, store, topN, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	router.Get("/health", handler.Health)

	// Screening runs
	router.Post("/detect", handler.Detect)
	router.Post("/simulate", handler.Simulate)

	// Run browsing and exports
	router.Get("/runs", handler.ListRuns)
	router.Get("/runs/{id}", handler.GetRun)
	router.Get("/runs/{id}/report.csv", handler.RunReportCSV)
	router.Get("/runs/{id}/report.txt", handler.RunReportText)

	// Rule introspection
	router.Get("/rules", handler.ListRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
