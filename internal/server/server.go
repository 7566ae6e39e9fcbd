// Package server exposes the HTTP API: public questionnaire intake plus the
// staff console endpoints for managing submissions and running brief
// generation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"whitecoat/internal/blob"
	"whitecoat/internal/config"
	"whitecoat/internal/core"
	"whitecoat/internal/email"
	"whitecoat/internal/logger"
	"whitecoat/internal/persistence"
	"whitecoat/internal/pipeline"
)

// GenerationService runs the brief pipeline. Implemented by
// pipeline.Orchestrator.
type GenerationService interface {
	Run(ctx context.Context, submissionID string) (*pipeline.RunSummary, error)
	Status(ctx context.Context, submissionID string) (*pipeline.RunStatus, error)
}

// BriefSender delivers the finished brief by email. Implemented by
// email.Sender.
type BriefSender interface {
	SendBrief(ctx context.Context, msg email.BriefEmail) error
}

// generateRouteTimeout bounds a synchronous brief-generation run. Runs
// routinely take minutes, so this route gets its own budget while every
// other route keeps a short one.
const generateRouteTimeout = 10 * time.Minute

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	db         persistence.Database
	generation GenerationService
	blobs      blob.Store
	emails     BriefSender
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance. The blob store and email sender
// may be nil; the endpoints that need them then respond with an error.
func New(db persistence.Database, generation GenerationService, blobs blob.Store, emails BriefSender, cfg config.Server) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		db:         db,
		generation: generation,
		blobs:      blobs,
		emails:     emails,
		config:     cfg,
		log:        logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	// The connection write deadline is armed when request headers are read,
	// before the handler runs. A deadline shorter than a synchronous
	// generation run would close the connection with the run already
	// persisted but the response unsent, so such a value is not honored.
	writeTimeout := cfg.WriteTimeout
	if writeTimeout > 0 && writeTimeout < generateRouteTimeout {
		s.log.Warn("server.write_timeout is shorter than the generation route timeout, disabling it",
			"write_timeout", writeTimeout, "generate_timeout", generateRouteTimeout)
		writeTimeout = 0
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Public questionnaire intake.
		r.With(middleware.Timeout(30 * time.Second)).Post("/submissions", s.handleCreateSubmission)

		// Staff console endpoints.
		r.Group(func(r chi.Router) {
			r.Use(s.requireStaff)

			r.With(middleware.Timeout(60 * time.Second)).Get("/submissions", s.handleListSubmissions)
			r.Route("/submissions/{id}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.Timeout(60 * time.Second))
					r.Get("/", s.handleGetSubmission)
					r.Patch("/", s.handleUpdateSubmission)
					r.Delete("/", s.handleDeleteSubmission)
					r.Get("/generate/status", s.handleGenerationStatus)
					r.Post("/upload", s.handleUploadPDF)
					r.Post("/send", s.handleSendBrief)
					r.Route("/photos", func(r chi.Router) {
						r.Get("/", s.handleListProductPhotos)
						r.Post("/", s.handleUploadProductPhoto)
						r.Delete("/{photoID}", s.handleDeleteProductPhoto)
					})
				})

				// Generation runs synchronously and can take minutes; it
				// gets its own generous timeout instead of the staff
				// default.
				r.With(middleware.Timeout(generateRouteTimeout)).Post("/generate", s.handleGenerateBrief)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

// loadSubmission resolves the {id} URL parameter to a submission, writing
// the error response itself when the lookup fails.
func (s *Server) loadSubmission(w http.ResponseWriter, r *http.Request) (*core.Submission, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Submission ID is required")
		return nil, false
	}

	submission, err := s.db.Submissions().Get(r.Context(), id)
	if err != nil {
		if err == persistence.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "Submission not found")
		} else {
			s.log.Error("Failed to load submission", "id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to load submission")
		}
		return nil, false
	}
	return submission, true
}
