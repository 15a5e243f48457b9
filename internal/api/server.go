// Package api serves the render API: typed huma operations over the engine,
// the event stream and the metrics endpoint.
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

	"github.com/shareboard/shareboard/internal/engine"
	"github.com/shareboard/shareboard/internal/ratelimit"
	"github.com/shareboard/shareboard/internal/sse"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// MutationsPerSecond throttles writes per client address. 0 uses 5.
	MutationsPerSecond float64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine     *engine.Engine
	sseManager *sse.Manager
	router     chi.Router
	api        huma.API
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
}

// NewServer creates the server with every route registered.
func NewServer(e *engine.Engine, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MutationsPerSecond <= 0 {
		opts.MutationsPerSecond = 5
	}

	router := chi.NewRouter()
	s := &Server{
		engine:     e,
		sseManager: sseManager,
		router:     router,
		limiter:    ratelimit.New(opts.MutationsPerSecond, int(opts.MutationsPerSecond)*2),
		logger:     logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Shareboard API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) setupMiddleware(opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	}))
	s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerRouteRoutes()
	s.registerPageRoutes()
	s.registerFilterRoutes()
	s.registerWorkRoutes()
	s.registerListRoutes()
	s.registerSearchRoutes()
	s.registerSettingsRoutes()
	s.registerSubmissionRoutes()

	// Raw handlers outside huma: a stream and a text exposition format.
	events := sse.NewHandler(s.sseManager, s.currentUserID, s.logger)
	s.router.Get("/api/v1/events", events.ServeHTTP)
	s.router.Handle("/metrics", s.engine.Metrics.Handler())
}

// currentUserID scopes notifications on the event stream to the signed-in user.
func (s *Server) currentUserID(_ *http.Request) string {
	if u := s.engine.State.User(); u != nil {
		return u.UID
	}
	return ""
}
