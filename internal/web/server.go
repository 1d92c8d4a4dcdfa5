// Package web exposes the wiki over HTTP. The router translates requests
// into bus envelopes for page and test-run traffic and calls the history and
// search services directly; policy and identity are enforced as middleware
// before anything reaches a handler.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/wikigate/internal/auth"
	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/history"
	"github.com/mattjoyce/wikigate/internal/log"
	"github.com/mattjoyce/wikigate/internal/monitor"
	"github.com/mattjoyce/wikigate/internal/policy"
	"github.com/mattjoyce/wikigate/internal/search"
)

// Options collects the collaborators the server needs. History may be nil
// when the page store is not git-backed; the history endpoints then answer
// 404.
type Options struct {
	Listen         string
	Bus            *bus.Bus
	Monitor        *monitor.RunMonitor
	Policy         *policy.Resolver
	Auth           auth.Authenticator
	History        *history.Service
	Search         *search.Service
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
}

// Server is the HTTP front of the wiki.
type Server struct {
	listen         string
	bus            *bus.Bus
	monitor        *monitor.RunMonitor
	policy         *policy.Resolver
	auth           auth.Authenticator
	history        *history.Service
	search         *search.Service
	requestTimeout time.Duration
	idleTimeout    time.Duration
	logger         *slog.Logger
	server         *http.Server
}

// New creates the server. Zero timeouts fall back to 30s requests and 60s
// idle connections.
func New(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.Auth == nil {
		opts.Auth = auth.AllowAll{}
	}
	return &Server{
		listen:         opts.Listen,
		bus:            opts.Bus,
		monitor:        opts.Monitor,
		policy:         opts.Policy,
		auth:           opts.Auth,
		history:        opts.History,
		search:         opts.Search,
		requestTimeout: opts.RequestTimeout,
		idleTimeout:    opts.IdleTimeout,
		logger:         log.WithComponent("web"),
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        s.listen,
		Handler:     s.Routes(),
		ReadTimeout: 10 * time.Second,
		// Test runs stream their reply through the same connection, so the
		// write timeout has to cover the longest run.
		WriteTimeout: bus.TestSendTimeout + time.Minute,
		IdleTimeout:  s.idleTimeout,
	}

	s.logger.Info("server starting", "listen", s.listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Routes builds the full router. Exposed so tests can drive it with
// httptest without binding a port.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.identityMiddleware)
	r.Use(s.policyMiddleware)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/wiki/FrontPage", http.StatusFound)
	})

	r.Get("/wiki/*", s.handleWikiGet)
	r.Post("/wiki/*", s.handleWikiPost)
	r.Post("/run", s.handleRun)
	r.Get("/results/*", s.handleResults)

	r.Get("/history/*", s.handleHistory)
	r.Get("/diff/*", s.handleDiff)
	r.Post("/revert/*", s.handleRevert)
	r.Get("/search", s.handleSearch)

	r.Route("/api", func(api chi.Router) {
		api.Get("/wiki/*", s.handleWikiGet)
		api.Post("/wiki/*", s.handleWikiPost)
		api.Post("/run", s.handleRun)
		api.Get("/results/*", s.handleResults)
		api.Get("/history/*", s.handleHistory)
		api.Get("/diff/*", s.handleDiff)
		api.Post("/revert/*", s.handleRevert)
		api.Get("/search", s.handleSearch)
		api.Get("/run-monitor", s.handleRunMonitor)
		api.Get("/run-monitor/logs", s.handleRunMonitorLogs)
	})

	r.NotFound(s.handleLegacyRedirect)

	return r
}
