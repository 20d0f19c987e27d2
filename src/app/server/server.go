// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metadirectory/src/app/http/handler"
	"metadirectory/src/app/http/response"
	"metadirectory/src/app/middleware"
	"metadirectory/src/core/access"
	"metadirectory/src/core/ports"
	"metadirectory/src/core/usecase"
	"metadirectory/src/infra/config"
	"metadirectory/src/infra/metrics"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Repo ports.DirectoryRepository
	// Tokens overrides Repo for bearer lookups, e.g. with a cache.
	Tokens ports.TokenRepository
	// Health lists extra dependencies for /health/detailed.
	Health map[string]ports.ExternalService
	// Registry receives the Prometheus collectors. Nil uses a fresh registry.
	Registry *prometheus.Registry
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg    *config.Config
	log    *slog.Logger
	router *gin.Engine
	http   *http.Server

	repo     ports.DirectoryRepository
	tokens   ports.TokenRepository
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	healthHandler *handler.HealthHandler
	domainHandler *handler.DomainHandler
}

// New creates a new Server with all dependencies wired up.
func New(cfg *config.Config, log *slog.Logger, deps Deps) *Server {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	tokens := deps.Tokens
	if tokens == nil {
		tokens = deps.Repo
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.New(registry)

	healthComponents := map[string]ports.ExternalService{"store": deps.Repo}
	for name, c := range deps.Health {
		healthComponents[name] = c
	}

	healthService := usecase.NewHealthService(log, healthComponents)
	domainService := usecase.NewDomainService(deps.Repo, access.NewEvaluator(), m, log)

	s := &Server{
		cfg:           cfg,
		log:           log,
		router:        router,
		repo:          deps.Repo,
		tokens:        tokens,
		registry:      registry,
		metrics:       m,
		healthHandler: handler.NewHealthHandler(healthService),
		domainHandler: handler.NewDomainHandler(domainService, cfg.Server.MaxBodyBytes),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Recovery first so it sees panics from everything after it.
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logging(s.log))
	if s.cfg.Metrics.Enabled {
		s.router.Use(middleware.Metrics(s.metrics))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/detailed", s.healthHandler.DetailedHealth)

	if s.cfg.Metrics.Enabled {
		s.router.GET(s.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	{
		domains := v1.Group("/domains/:domain_id",
			middleware.Credential(s.tokens, s.repo, s.log),
			middleware.DomainFromParam(s.repo, "domain_id", s.log),
		)
		domains.GET("", s.domainHandler.Get)
		domains.PUT("", s.domainHandler.Update)
		domains.DELETE("", s.domainHandler.Delete)
	}

	s.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "The requested resource was not found", middleware.GetRequestID(c))
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("starting HTTP server",
			"addr", s.cfg.Server.Addr(),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		s.log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
