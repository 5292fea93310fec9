// Package server exposes the monitor's status over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	apperrors "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/server/handlers"
	servermw "github.com/namelens/domainwatch/internal/server/middleware"
)

// Options configures the status server.
type Options struct {
	Addr     string
	Timeouts config.ServerConfig
	Status   *handlers.MonitorStatus
	Logger   *logging.Logger
	// AdminToken enables POST /admin/signal with bearer auth when set.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	opts   Options
	health *handlers.HealthManager

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	r.Use(servermw.RequestID)      // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics) // 2. Metrics (measure everything)
	r.Use(servermw.Recovery)       // 3. Panics become 500s (after metrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req,
			apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
		health: handlers.NewHealthManager(handlers.AppVersion),
	}

	s.registerRoutes()

	return s
}

// Start binds the listen address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	timeouts := s.opts.Timeouts
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  durationOr(timeouts.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(timeouts.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(timeouts.IdleTimeout, 120*time.Second),
	}
	s.mu.Lock()
	s.listener = ln
	s.server = srv
	s.mu.Unlock()

	observability.LoggerOr(s.opts.Logger).Info("Starting status server",
		zap.String("addr", ln.Addr().String()))
	metrics.SetServerStartTime(time.Now().Unix())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	observability.LoggerOr(s.opts.Logger).Info("Shutting down status server")
	return srv.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
