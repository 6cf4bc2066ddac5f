package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/api/handlers"
	"github.com/desokroshan/truckflow-ai/internal/jobs"
	"github.com/desokroshan/truckflow-ai/internal/metrics"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config          config.Config
	router          *gin.Engine
	httpServer      *http.Server
	dispatchService *services.DispatchService
	runner          *jobs.Runner
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, dispatchService *services.DispatchService, runner *jobs.Runner, m *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:          cfg,
		dispatchService: dispatchService,
		runner:          runner,
		metrics:         m,
		tracer:          tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	api := router.Group("/api")

	loadHandler := handlers.NewLoadHandler(s.dispatchService, s.tracer)
	loadHandler.RegisterRoutes(api)

	callHandler := handlers.NewCallHandler(s.dispatchService, s.tracer, s.config.Uploads)
	callHandler.RegisterRoutes(api)

	telephonyHandler := handlers.NewTelephonyHandler(s.dispatchService, s.runner, s.tracer)
	telephonyHandler.RegisterRoutes(api)

	metricsHandler := handlers.NewMetricsHandler(s.dispatchService, s.metrics)
	metricsHandler.RegisterRoutes(api)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// requestLogger logs each request with method, path, status and latency
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request handled")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server, then waits for background jobs
// to drain
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	drainCtx, cancelDrain := context.WithTimeout(ctx, 30*time.Second)
	defer cancelDrain()
	if err := s.runner.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Msg("Background jobs did not drain before shutdown deadline")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
