// Package server exposes the engine's schema graphs over a read-only
// HTTP API.
//
//	GET /healthz
//	GET /schemas
//	GET /tables?schema=HR            GET /views?schema=HR
//	GET /tables/{name}               GET /tables/{name}/records
//	GET /constraints?schema=HR
//	GET /routines/{kind}?schema=HR   GET /routines/{kind}/{name}
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
	"github.com/koustreak/datri-oracle/internal/oracle"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves engine metadata as JSON.
type Server struct {
	cfg    Config
	eng    *oracle.Engine
	reader *oracle.Reader
	log    *logger.Logger
	router chi.Router
}

// New builds the router over eng.
func New(cfg Config, eng *oracle.Engine, log *logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		eng:    eng,
		reader: oracle.NewReader(eng),
		log:    log.Component("server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/schemas", s.listSchemas)
	r.Get("/tables", s.listTables)
	r.Get("/views", s.listViews)
	r.Get("/constraints", s.listConstraints)
	r.Route("/tables/{name}", func(r chi.Router) {
		r.Get("/", s.describeTable)
		r.Get("/records", s.listRecords)
	})
	r.Route("/routines/{kind}", func(r chi.Router) {
		r.Get("/", s.listRoutines)
		r.Get("/{name}", s.describeRoutine)
	})
	return r
}

// Handler returns the HTTP handler, useful for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on " + s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "http server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "http shutdown", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.HTTPEvent().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
