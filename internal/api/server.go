// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/papertree/internal/claude"
	"github.com/dgallion1/papertree/internal/config"
	"github.com/dgallion1/papertree/internal/observability"
	"github.com/dgallion1/papertree/internal/pathstore"
	"github.com/dgallion1/papertree/internal/pipeline"
)

// DocumentStore lists and removes published documents.
type DocumentStore interface {
	Documents(ctx context.Context, limit int) ([]pathstore.ListChildrenResponse, error)
	Unpublish(ctx context.Context, docID string) (bool, error)
}

// Options carries the optional collaborators. Nil fields disable the
// endpoints that need them.
type Options struct {
	Claude    *claude.Client
	Documents DocumentStore
	Steps     *observability.StepStats
	Sink      *observability.Sink
}

// Server is the HTTP API server for papertree.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	opts         Options
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, opts Options, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		opts:         opts,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/extract/batch", s.handleBatchExtract)
		r.Get("/api/extract/{jobID}/status", s.handleExtractStatus)
		r.Get("/api/extract/{jobID}/result", s.handleExtractResult)

		r.Get("/api/stats/steps", s.handleStepStats)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
