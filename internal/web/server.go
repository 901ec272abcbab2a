// Package web provides the JSON HTTP API over the import pipeline: loading
// CSV, configuring mappings, previewing rows, and publishing.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cashfolio/cashfolio/internal/config"
	"github.com/cashfolio/cashfolio/internal/importer"
	"github.com/cashfolio/cashfolio/internal/rates"
	"github.com/cashfolio/cashfolio/internal/store"
)

// Server is the HTTP server for the import API.
type Server struct {
	service   *importer.Service
	store     store.Store
	converter *rates.Converter
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a Server wired to the import service and store.
func NewServer(service *importer.Service, st store.Store, cfg *config.Config) *Server {
	s := &Server{
		service:   service,
		store:     st,
		converter: rates.NewConverter(st),
		cfg:       cfg,
		router:    chi.NewRouter(),
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
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/families", s.handleCreateFamily)

		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{accountID}/transactions", s.handleListTransactions)

		r.Post("/imports", s.handleCreateImport)
		r.Get("/imports/{importID}", s.handleGetImport)
		r.Put("/imports/{importID}/csv", s.handleUpdateCSV)
		r.Put("/imports/{importID}/mappings", s.handleUpdateMappings)
		r.Get("/imports/{importID}/mappings/suggested", s.handleSuggestedMappings)
		r.Get("/imports/{importID}/preview", s.handlePreview)
		r.Post("/imports/{importID}/publish", s.handlePublish)
		r.Delete("/imports/{importID}", s.handleDestroyImport)

		r.Get("/convert", s.handleConvert)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
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

// Router returns the underlying chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
