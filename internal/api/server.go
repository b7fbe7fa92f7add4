// Package api provides the HTTP API server and handlers for the Talib reader.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/talibapp/talib-reader/internal/http/response"
	"github.com/talibapp/talib-reader/internal/library"
	"github.com/talibapp/talib-reader/internal/ratelimit"
	"github.com/talibapp/talib-reader/internal/service"
	"github.com/talibapp/talib-reader/internal/sse"
	"github.com/talibapp/talib-reader/internal/viewer"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	library     *library.Library
	annotations *service.AnnotationService
	sessions    *viewer.Manager
	sseHandler  *sse.Handler
	limiter     *ratelimit.KeyedLimiter
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(lib *library.Library, annotations *service.AnnotationService, sessions *viewer.Manager, sseHandler *sse.Handler, limiter *ratelimit.KeyedLimiter, logger *slog.Logger) *Server {
	s := &Server{
		library:     lib,
		annotations: annotations,
		sessions:    sessions,
		sseHandler:  sseHandler,
		limiter:     limiter,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Talib Reader API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	s.registerAnnotationRoutes()
	s.registerReaderRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. Route registration
// happens after, so everything here applies to huma routes too.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimitMutations)
}

// setupRoutes configures the plain chi routes. Annotation and reader
// operations are registered through huma separately.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", s.sseHandler.ServeHTTP)

		r.Get("/books", s.handleListBooks)
		r.Get("/books/{bookID}", s.handleGetBook)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// handleListBooks returns the library catalog sorted by title.
func (s *Server) handleListBooks(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.library.Books(), s.logger)
}

// handleGetBook returns a single book by ID.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookID")
	if id == "" {
		response.BadRequest(w, "Book ID is required", s.logger)
		return
	}

	book, err := s.library.Get(id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}
