// Package server exposes the guard over HTTP.
//
// Routes:
//
//	POST /v1/diagnose                       diagnose a statement without running it
//	POST /v1/exec                           run a statement through the guard
//	GET  /v1/schema                          snapshot of every table and its keys
//	GET  /v1/tables/{table}/foreign-keys    keys of one table, including references into it
//	GET  /v1/reports/*                      read an archived report
//	GET  /healthz                           database liveness
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/logger"
	"github.com/koustreak/fkguard/internal/reportstore"
)

// Server serves the HTTP API.
type Server struct {
	db           database.DB
	guard        *fkcheck.Guard
	store        reportstore.Store
	log          *logger.Logger
	queryTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithReportStore enables GET /v1/reports/*.
func WithReportStore(s reportstore.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithQueryTimeout bounds every statement and probe a request runs.
func WithQueryTimeout(d time.Duration) Option {
	return func(srv *Server) { srv.queryTimeout = d }
}

// New returns a Server running statements through guard on db.
func New(db database.DB, guard *fkcheck.Guard, log *logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{db: db, guard: guard, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with its middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/diagnose", s.handleDiagnose)
		r.Post("/exec", s.handleExec)
		r.Get("/schema", s.handleSchema)
		r.Get("/tables/{table}/foreign-keys", s.handleForeignKeys)
		r.Get("/reports/*", s.handleReport)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", addr).Logger().Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
