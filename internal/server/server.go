// Package server exposes generation over HTTP.
//
//	GET  /healthz                       liveness
//	POST /v1/validate                   schema document in, relation summary out (JSON)
//	POST /v1/generate?format=&seed=     schema document in, rendered database out
//
// Schema documents are YAML. A request sent as application/json is
// converted to YAML first, so the same document shape works in both.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/datforge/internal/logger"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MaxBodyBytes caps the size of a schema document.
	MaxBodyBytes int64

	// MaxRows caps the rows a schema document may ask for, degenerations
	// included. Rows added by foreign key propagation are bounded by
	// RequestTimeout instead.
	MaxRows int

	// RequestTimeout bounds the handling of one request. Generation stops
	// when it expires and the request fails with 504.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig listens on addr with 1 MiB documents, a million rows and
// 30s requests.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:            addr,
		MaxBodyBytes:    1 << 20,
		MaxRows:         1_000_000,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server routes generation requests.
type Server struct {
	cfg    Config
	log    *logger.Logger
	router chi.Router
}

// New builds the router. A nil log discards output.
func New(cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig("").MaxBodyBytes
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultConfig("").MaxRows
	}
	s := &Server{cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/generate", s.handleGenerate)
	})
	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", s.cfg.Addr).Logger().Info("http server listening")
		done <- srv.ListenAndServe()
	}()

	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.HTTPEvent().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
