// Package web provides the HTTP surface for the soporte service: record
// CRUD, spreadsheet upload, export downloads, and operational endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mensajeria/soporte-api/internal/config"
	"github.com/mensajeria/soporte-api/internal/importer"
	"github.com/mensajeria/soporte-api/internal/soporte"
	"github.com/mensajeria/soporte-api/internal/web/middleware"
)

// Store is the persistence dependency of the handlers.
type Store interface {
	Create(ctx context.Context, p soporte.CreateParams) (*soporte.Record, error)
	List(ctx context.Context, offset, limit int) ([]soporte.Record, error)
	GetByID(ctx context.Context, id int64) (*soporte.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	All(ctx context.Context) ([]soporte.Record, error)
	Ping(ctx context.Context) error
}

// Importer runs one bulk import over uploaded spreadsheet bytes.
type Importer interface {
	Import(ctx context.Context, data []byte, limite int) (*importer.Outcome, error)
}

// Server is the HTTP server for the soporte API.
type Server struct {
	store    Store
	importer Importer
	limiter  *importer.Limiter
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the router, middleware and handlers.
func NewServer(store Store, imp Importer, limiter *importer.Limiter, cfg *config.Config) *Server {
	s := &Server{
		store:    store,
		importer: imp,
		limiter:  limiter,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.StripSlashes)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders)
	s.router.Use(corsHandler(s.cfg.CORS.AllowedOrigins))
	s.router.Use(metricsHandler)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleWelcome)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/soportes", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)

		r.Post("/upload-excel", s.handleUploadExcel)
		r.Get("/export/excel", s.handleExportExcel)
		r.Get("/export/pdf", s.handleExportPDF)

		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// corsHandler answers preflight requests and stamps the allow headers. The
// original deployment served a browser frontend from another origin, so the
// default configuration allows any origin.
func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
