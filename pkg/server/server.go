// Package server exposes the template store, the content generator and the
// concept graph over a REST API. Routes live under /api, with /health and
// /metrics as operational endpoints outside it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/generator"
	"github.com/kadirpekel/ontomed/pkg/observability"
	"github.com/kadirpekel/ontomed/pkg/semantic"
	"github.com/kadirpekel/ontomed/pkg/template"
)

// Dependencies carries the components the server routes to. Store and
// Generator are required. Graph is optional; without it the concept routes
// answer 503. Tracer and Metrics are optional and default to the global
// no-op implementations.
type Dependencies struct {
	Store     *template.Store
	Generator *generator.ContentGenerator
	Graph     *semantic.GraphService
	Tracer    trace.Tracer
	Metrics   observability.Recorder
}

// Server is the OntoMed HTTP API server.
type Server struct {
	cfg        *config.ServerConfig
	store      *template.Store
	generator  *generator.ContentGenerator
	graph      *semantic.GraphService
	tracer     trace.Tracer
	metrics    observability.Recorder
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates a server with its route tree ready to serve.
func NewServer(cfg *config.ServerConfig, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("template store is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("content generator is required")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.GetGlobalMetrics()
	}

	s := &Server{
		cfg:       cfg,
		store:     deps.Store,
		generator: deps.Generator,
		graph:     deps.Graph,
		tracer:    deps.Tracer,
		metrics:   metrics,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Order: request id -> logging -> tracing/metrics -> cors
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(observability.HTTPMiddleware(s.tracer, s.metrics, routePattern))
	r.Use(corsMiddleware(s.cfg.CORS))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{templateID}", s.handleGetTemplate)
		r.Post("/templates/{templateID}/fill", s.handleFillTemplate)

		r.Post("/generate/text/{templateID}", s.handleGenerateText)
		r.Post("/generate/structured/{templateID}", s.handleGenerateStructured)
		r.Post("/generate/embedding/{templateID}", s.handleGenerateEmbedding)

		r.Get("/concepts", s.handleListConcepts)
		r.Post("/concepts", s.handleCreateConcept)
		r.Get("/concepts/{conceptID}", s.handleGetConcept)
		r.Delete("/concepts/{conceptID}", s.handleDeleteConcept)
		r.Get("/concepts/{conceptID}/relationships", s.handleConceptRelationships)
		r.Get("/concepts/{conceptID}/related", s.handleRelatedConcepts)

		r.Get("/statistics", s.handleStatistics)
		r.Post("/clear", s.handleClear)
	})

	return r
}

// Handler returns the route tree. Useful for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Address returns the host:port the server binds to.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start runs the HTTP server until it fails or Stop is called. Requests
// inherit ctx as their base context.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.Address(),
		Handler: s.router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	slog.Info("HTTP server starting", "address", s.Address())

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	slog.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
