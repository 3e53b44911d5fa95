// Package server exposes search, categories and issue reports over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/poiesic/wayfind/config"
	"github.com/poiesic/wayfind/core"
)

// Finder runs ranked searches. *search.Searcher satisfies it.
type Finder interface {
	Find(ctx context.Context, selected []string, query string, maxHits int) ([]core.SearchResult, error)
}

// Reporter files and lists issue reports. *reporting.Service satisfies it.
type Reporter interface {
	Submit(ctx context.Context, utilityID, note string) (*core.Report, error)
	Reports(ctx context.Context, utilityID string) ([]*core.Report, error)
	Utility(ctx context.Context, utilityID string) (*core.Utility, error)
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, finder Finder, reporter Reporter, opts ...Option) (*Server, error) {
	if finder == nil || reporter == nil {
		return nil, ErrServiceRequired
	}

	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	router.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	h := &handler{finder: finder, reporter: reporter, logger: s.logger}

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/categories", h.listCategories)
			r.Post("/selection/toggle", h.toggleSelection)

			r.Route("/utilities", func(r chi.Router) {
				r.Get("/", h.searchUtilities)
				r.Get("/{id}", h.getUtility)

				r.Route("/{id}/reports", func(r chi.Router) {
					r.Get("/", h.listReports)
					r.Post("/", h.submitReport)
				})
			})
		})
	})

	s.router = router
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}
