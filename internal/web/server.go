// Package web exposes the read-only collaborator surface over HTTP:
// per-location source upload, normalized tables, exception list, quality
// report, and filtered aggregate queries.
package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/canopydata/pospipe/internal/config"
	"github.com/canopydata/pospipe/internal/pipeline"
	"github.com/canopydata/pospipe/internal/store"
)

// Server serves the HTTP API. Uploaded sources are buffered in declaration
// order; each upload reruns the whole pipeline so the store always holds
// the full atomic replace of every source seen so far.
type Server struct {
	cfg    *config.Config
	runner *pipeline.Runner
	store  *store.Store
	router *chi.Mux
	server *http.Server

	// mu guards sources and last. Pipeline runs are serialized under it.
	mu      sync.Mutex
	sources []pipeline.Source
	last    *pipeline.Result
}

// NewServer wires the router, middleware, and routes.
func NewServer(cfg *config.Config, runner *pipeline.Runner, st *store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		store:  st,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sources/{location}/upload", s.handleUpload)

		r.Get("/query", s.handleQuery)
		r.Get("/exceptions", s.handleExceptions)
		r.Get("/quality", s.handleQuality)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/orders", s.handleOrders)
			r.Get("/line-items", s.handleLineItems)
			r.Get("/products", s.handleProducts)
			r.Get("/staff", s.handleStaff)
		})
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
