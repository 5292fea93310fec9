package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/server/handlers"
)

// AdminTokenEnv names the variable run reads Options.AdminToken from.
const AdminTokenEnv = "DOMAINWATCH_ADMIN_TOKEN"

// Admin signal endpoint rate limit: requests per minute, and burst.
const (
	adminRateLimit = 10
	adminRateBurst = 5
)

func (s *Server) registerRoutes() {
	routes := map[string]http.HandlerFunc{
		"/health":         s.health.HealthHandler,
		"/health/live":    s.health.LivenessHandler,
		"/health/ready":   s.health.ReadinessHandler,
		"/health/startup": s.health.StartupHandler,
		"/version":        handlers.VersionHandler,
		"/metrics":        MetricsHandler,
	}

	if status := s.opts.Status; status != nil {
		s.health.RegisterChecker("monitor", status)
		s.health.RegisterChecker("store", handlers.StoreChecker{Store: status.Store()})
		routes["/status"] = status.StatusHandler
		routes["/snapshot"] = status.SnapshotHandler
	}

	for path, handler := range routes {
		s.router.Get(path, handler)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes gofulmen's signal handler so an operator
// can trigger a graceful shutdown over HTTP.
func (s *Server) registerAdminEndpoint() {
	logger := observability.LoggerOr(s.opts.Logger)
	if s.opts.AdminToken == "" {
		logger.Debug("Admin signal endpoint disabled", zap.String("env", AdminTokenEnv))
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	logger.Info("Admin signal endpoint enabled",
		zap.String("path", "/admin/signal"),
		zap.Int("rate_limit_per_min", adminRateLimit))
}
