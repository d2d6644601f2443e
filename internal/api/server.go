// Package api exposes client instances over HTTP: a browser tab creates a
// client, drives it with commands and gestures, and receives its repaints on
// an SSE stream.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flashcardexchange/flashcards/internal/auth"
	"github.com/flashcardexchange/flashcards/internal/logger"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
	"github.com/flashcardexchange/flashcards/internal/sse"
	"github.com/flashcardexchange/flashcards/internal/store"
)

// Options holds the server's dependencies.
type Options struct {
	Store    *store.Store
	Registry *Registry
	Tokens   *auth.TokenService
	Events   *sse.Manager
	// AuthLimiter throttles sign-up, sign-in and client creation per IP.
	AuthLimiter    *ratelimit.KeyedRateLimiter
	AllowedOrigins []string
	Version        string
	Logger         *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	registry    *Registry
	tokens      *auth.TokenService
	events      *sse.Manager
	sseHandler  *sse.Handler
	authLimiter *ratelimit.KeyedRateLimiter
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		store:       opts.Store,
		registry:    opts.Registry,
		tokens:      opts.Tokens,
		events:      opts.Events,
		authLimiter: opts.AuthLimiter,
		router:      chi.NewRouter(),
		logger:      logger.OrDiscard(opts.Logger),
	}
	if opts.Events != nil {
		s.sseHandler = sse.NewHandler(opts.Events, s.authenticateStream, s.logger)
	}

	s.setupMiddleware(opts.AllowedOrigins)

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	humaConfig := huma.DefaultConfig("Flashcards API", version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.authMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerClientRoutes()
	s.registerAuthRoutes()
	s.registerDeckRoutes()
	s.registerViewRoutes()

	// Streaming and metrics bypass huma: neither has a JSON body.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/stream", s.sseHandler.ServeHTTP)
	}
	s.router.Handle("/metrics", promhttp.Handler())
}
