// Package status serves a read-only HTTP view of a running search.
//
// The server exposes three endpoints:
//
//	GET /healthz       liveness probe, plain "ok"
//	GET /v1/status     point-in-time search state as JSON
//	GET /v1/solutions  solutions found so far as JSON
//
// Long searches run for hours; the status server lets an operator poll
// progress without touching the process or its log files.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/search"
)

// DefaultAddr is the listen address used when Options.Addr is empty.
const DefaultAddr = ":8641"

// Source is the view of a search the server reads from. A search Driver
// satisfies it.
type Source interface {
	Status() search.Status
	Solutions() []search.Solution
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string

	// Source provides the search state. Required.
	Source Source

	// Logger defaults to a discard logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == nil {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "status source is required")
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Server is the status HTTP server. Create one with New, start it with
// Start and stop it with Shutdown.
type Server struct {
	opts   Options
	logger *log.Logger
	srv    *http.Server
}

// New validates the options and returns a ready Server.
func New(opts Options) (*Server, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the route table. Exposed so tests can drive the server
// without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/solutions", s.handleSolutions)
	})
	return r
}

// Start begins serving in the background. It returns immediately; serve
// failures other than a clean shutdown are logged.
func (s *Server) Start() {
	s.logger.Info("status server listening", "addr", s.opts.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.opts.Source.Status())
}

func (s *Server) handleSolutions(w http.ResponseWriter, r *http.Request) {
	sols := s.opts.Source.Solutions()
	if sols == nil {
		sols = []search.Solution{}
	}
	s.writeJSON(w, r, sols)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding status response failed", "path", r.URL.Path, "error", err)
	}
}
