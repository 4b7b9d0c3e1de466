// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/dataviz-ai/dataviz-go/internal/config"
	"github.com/dataviz-ai/dataviz-go/internal/history"
	"github.com/dataviz-ai/dataviz-go/internal/insight"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server holds the handlers' shared dependencies. The insight client and the
// history store are optional; handlers degrade when they are nil.
type Server struct {
	log            *logrus.Logger
	ai             *insight.Client
	store          *history.Store
	maxUploadBytes int64
	allowedOrigins []string
}

// New assembles a Server from configuration and optional collaborators.
func New(cfg *config.Global, log *logrus.Logger, ai *insight.Client, store *history.Store) *Server {
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 32
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		log:            log,
		ai:             ai,
		store:          store,
		maxUploadBytes: int64(maxMB) << 20,
		allowedOrigins: origins,
	}
}

// Router builds the chi mux with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/upload-data", s.handleUploadData)
	r.Post("/suggest-plots", s.handleSuggestPlots)
	r.Post("/gemini-insight", s.handleGeminiInsight)
	r.Post("/generate-r-code", s.handleGenerateRCode)
	r.Get("/datasets", s.handleDatasets)
	return r
}
