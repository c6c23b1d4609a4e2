// Package api exposes the recall services over HTTP using huma on a chi
// router.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/recall-server/internal/ratelimit"
	"github.com/listenupapp/recall-server/internal/service"
	"github.com/listenupapp/recall-server/internal/store"
	"github.com/listenupapp/recall-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Services groups the business logic services used by the API server.
type Services struct {
	Tag      *service.TagService
	Question *service.QuestionService
}

// Options configures the HTTP surface.
type Options struct {
	// CORSAllowedOrigins defaults to "*" when empty.
	CORSAllowedOrigins []string

	// Limiter throttles requests per client IP. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
}

// Server is the HTTP API server.
type Server struct {
	store     store.Store
	services  *Services
	validator *validation.Validator
	router    chi.Router
	api       huma.API
	logger    *slog.Logger
	clock     func() time.Time
}

// NewServer creates a server with middleware and routes registered.
func NewServer(st store.Store, services *Services, v *validation.Validator, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if v == nil {
		v = validation.New()
	}

	s := &Server{
		store:     st,
		services:  services,
		validator: v,
		router:    chi.NewRouter(),
		logger:    logger.With("component", "api"),
		clock:     time.Now,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Recall API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerQuestionRoutes()

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

func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", UserIDHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	if opts.Limiter != nil {
		s.router.Use(rateLimit(opts.Limiter, s.logger))
	}
}
