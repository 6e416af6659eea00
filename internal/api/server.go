// Package api provides the read-only REST API over launcher metadata.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
	"github.com/matzehuels/mcmeta/pkg/store"
)

const (
	shutdownTimeout = 30 * time.Second
	// Archive downloads are large; the request timeout leaves room for one.
	requestTimeout    = 2 * time.Minute
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = requestTimeout + 15*time.Second
	idleTimeout       = 60 * time.Second
)

// Service is the metadata lookup the API serves.
// [*metadata.Service] implements it.
type Service interface {
	Manifest(ctx context.Context, refresh bool) (*mojang.VersionManifest, error)
	Version(ctx context.Context, id string, refresh bool) (*mojang.VersionDocument, error)
	Store() store.Store
}

// ServerOption configures the API router.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger      *log.Logger
	middlewares []func(http.Handler) http.Handler
}

// WithLogger sets the logger for request and error logging.
func WithLogger(l *log.Logger) ServerOption {
	return func(cfg *serverConfig) { cfg.logger = l }
}

// WithMiddlewares appends middleware after the default stack.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// NewServer creates the HTTP router for svc.
func NewServer(svc Service, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{logger: log.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(
		RequestID,
		middleware.RealIP,
		LoggingMiddleware(cfg.logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	rt := &routes{svc: svc, logger: cfg.logger}
	r.Get("/healthz", rt.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/manifest", rt.manifest)
		r.Get("/versions/{id}", rt.version)
		r.Get("/stored", rt.storedList)
		r.Get("/stored/{id}", rt.storedVersion)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// If ready is non-nil it receives the bound address once listening.
func Serve(ctx context.Context, addr string, h http.Handler, logger *log.Logger, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("server listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
