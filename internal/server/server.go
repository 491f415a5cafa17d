package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/handlers"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/metrics"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/store"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// maxEventBytes bounds the size of an event body.
const maxEventBytes = 4 << 20

// Server is the handler invocation API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
	handlers  *handlers.Registry
	store     store.Store // optional; set when running on the local draft store
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithDraftStore exposes the local draft store's workflow runs.
func WithDraftStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// New creates a new Server with all routes registered.
func New(reg *handlers.Registry, logger *slog.Logger, opts ...Option) *Server {
	metrics.Init()
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logging.OrDiscard(logger).With("component", "server"),
		startTime: time.Now(),
		handlers:  reg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/handlers", func(r chi.Router) {
			r.Get("/", s.handleListHandlers)
			r.Post("/{name}", s.handleInvoke)
		})

		if s.store != nil {
			r.Route("/workflowruns", func(r chi.Router) {
				r.Get("/", s.handleListWorkflowRuns)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetWorkflowRun)
					r.Get("/states", s.handleListStates)
					r.Get("/comments", s.handleListComments)
				})
			})
		}
	})
}
