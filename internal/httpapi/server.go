// Package httpapi serves the snapshot and validation HTTP API.
//
// The API exposes snapshot CRUD backed by a store.Store, the loaded block
// definitions, and workspace XML validation:
//
//	GET    /healthz              liveness and version
//	GET    /v1/definitions       loaded block type names
//	POST   /v1/validate          validate workspace XML (body: XML document)
//	GET    /v1/snapshots         list snapshot metadata
//	POST   /v1/snapshots         create a snapshot from workspace XML
//	GET    /v1/snapshots/{id}    fetch one snapshot including its XML
//	DELETE /v1/snapshots/{id}    remove a snapshot
//
// Responses are JSON. Errors use the envelope {"error": "...", "code": "..."}.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/store"
)

// Options configures the API server.
type Options struct {
	// Store backs the snapshot endpoints. Required.
	Store store.Store

	// Factory serves /v1/definitions and parses incoming XML. Required.
	Factory *block.BlockFactory

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Server is the HTTP API server.
type Server struct {
	store   store.Store
	factory *block.BlockFactory
	logger  *log.Logger
	router  chi.Router
}

// New builds a server with its routes registered.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "httpapi requires a store")
	}
	if opts.Factory == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "httpapi requires a block factory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		store:   opts.Store,
		factory: opts.Factory,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/definitions", s.handleDefinitions)
		r.Post("/validate", s.handleValidate)
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleCreateSnapshot)
			r.Get("/{id}", s.handleGetSnapshot)
			r.Delete("/{id}", s.handleDeleteSnapshot)
		})
	})
	s.router = r

	return s, nil
}

// Router returns the server's handler, for mounting or testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
