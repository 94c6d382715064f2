// Package server assembles the HTTP server and its dependencies.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/memstore/internal/api/http"
	"github.com/GriffinCanCode/memstore/internal/api/middleware"
	"github.com/GriffinCanCode/memstore/internal/diagnostics"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/config"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/memstore/internal/lock"
	"github.com/GriffinCanCode/memstore/internal/providers/memory"
	"github.com/GriffinCanCode/memstore/internal/service"
	"github.com/GriffinCanCode/memstore/internal/shared/paths"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router   *gin.Engine
	registry *service.Registry
	sink     *diagnostics.Sink
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	httpSrv  *http.Server
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing memstore server",
		zap.String("port", cfg.Server.Port),
		zap.String("storage_root", cfg.Storage.Root),
		zap.String("namespace", paths.Namespace),
	)

	// The storage root backing /memories is created once at startup and is
	// immutable for the process lifetime.
	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", cfg.Storage.Root, err)
	}

	metrics := monitoring.NewMetrics()
	sink := diagnostics.NewSink(logger, cfg.Diagnostics.QueueSize)

	coordinator := lock.NewCoordinator(lock.Config{
		Root:           cfg.Storage.Root,
		ReadTimeout:    cfg.Lock.ReadTimeout,
		WriteTimeout:   cfg.Lock.WriteTimeout,
		StaleThreshold: cfg.Lock.StaleThreshold,
		RetryInterval:  cfg.Lock.RetryInterval,
		WaitObserver: func(waited time.Duration) {
			metrics.LockWaitSeconds.Observe(waited.Seconds())
		},
	})

	registry := service.NewRegistry()
	memoryProvider := memory.NewProvider(cfg.Storage.Root, coordinator, sink, metrics)
	if err := registry.Register(memoryProvider); err != nil {
		return nil, fmt.Errorf("failed to register memory provider: %w", err)
	}
	logger.Info("Registered memory provider")

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)
	router.GET("/metrics", handlers.Metrics())

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		registry: registry,
		sink:     sink,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server and drains diagnostics.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	s.sink.Close()
	_ = s.logger.Sync()
	return nil
}
