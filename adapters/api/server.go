package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nullbench/app"
	"nullbench/internal"
)

// Server exposes the evaluation service over HTTP
type Server struct {
	router   *chi.Mux
	service  *app.EvaluationService
	registry *ScorerRegistry
	logger   *internal.Logger
}

// NewServer creates the HTTP surface around an evaluation service
func NewServer(service *app.EvaluationService, registry *ScorerRegistry, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &Server{
		router:   chi.NewRouter(),
		service:  service,
		registry: registry,
		logger:   logger.Component("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/scorers", s.handleScorers)
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleCreateRun)
			r.Get("/", s.handleListRuns)
			r.Get("/{runID}", s.handleGetRun)
			r.Post("/{runID}/extend", s.handleExtendRun)
		})
	})
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server on the given port
func (s *Server) ListenAndServe(port string) error {
	s.logger.Info("listening on :%s", port)
	return http.ListenAndServe(":"+port, s.router)
}
