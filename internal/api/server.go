package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/ubreader/internal/config"
	"github.com/dgallion1/ubreader/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes transformation, ingest and document lookup over HTTP.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	metrics      http.Handler
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. metricsHandler may be nil,
// in which case /metrics is not served.
func NewServer(orch *pipeline.Orchestrator, metricsHandler http.Handler, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		metrics:      metricsHandler,
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
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/transform", s.handleTransform)

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/", s.handleIngest)
			r.Get("/{jobID}/status", s.handleIngestStatus)
		})

		r.Route("/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Get("/outline", s.handleGetOutline)
		})

		r.Get("/cms/entries", s.handleListCMSEntries)
		r.Get("/stats/transform", s.handleTransformStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
