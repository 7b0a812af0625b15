// Package searchd is the development search backend: it answers the order
// form's remote search requests from a catalog.
package searchd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runger/taller/internal/catalog"
	"github.com/runger/taller/internal/typeahead"
)

// Source answers a query for one kind of record.
type Source interface {
	Search(ctx context.Context, kind, query string) ([]typeahead.Candidate, error)
}

// MemorySource serves fixed datasets keyed by kind.
type MemorySource map[string][]typeahead.Candidate

// Search implements Source.
func (m MemorySource) Search(_ context.Context, kind, query string) ([]typeahead.Candidate, error) {
	dataset, ok := m[kind]
	if !ok && !catalog.ValidKind(kind) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownKind, kind)
	}
	return typeahead.Filter(dataset, query), nil
}

// Options configures a Server.
type Options struct {
	Source Source // Required
	// UnwrapSingle answers a single match as a bare object, like the
	// upstream webhooks do.
	UnwrapSingle bool
	Logger       *slog.Logger
}

// Server serves POST /search/{kind} and GET /healthz.
type Server struct {
	source       Source
	unwrapSingle bool
	logger       *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{source: opts.Source, unwrapSingle: opts.UnwrapSingle, logger: logger}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", healthzHandler)
	r.Post("/search/{kind}", s.searchHandler)
	return r
}

type searchRequest struct {
	Query *string `json:"query"`
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !catalog.ValidKind(kind) {
		http.Error(w, "unknown kind", http.StatusNotFound)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	results, err := s.source.Search(r.Context(), kind, *req.Query)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownKind) {
			http.Error(w, "unknown kind", http.StatusNotFound)
			return
		}
		s.logger.Error("search failed", "kind", kind, "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	if s.unwrapSingle && len(results) == 1 {
		writeJSON(w, http.StatusOK, results[0])
		return
	}
	if results == nil {
		results = []typeahead.Candidate{}
	}
	writeJSON(w, http.StatusOK, results)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode JSON response", "error", err)
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("search backend started", "addr", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		s.logger.Info("search backend stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		s.logger.Info("search backend stopped")
		return nil
	}
}
