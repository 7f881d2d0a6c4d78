package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	mw "github.com/nutrilog/nutrilog/internal/api/middleware"
	"github.com/nutrilog/nutrilog/internal/buildinfo"
	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/ingest"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/observability"
)

// statsCacheTTL bounds how stale cached health figures may be.
const statsCacheTTL = 30 * time.Second

//go:embed static
var staticFiles embed.FS

// Ingester processes one uploaded CSV file.
type Ingester interface {
	ProcessFile(ctx context.Context, path, filename string) (*ingest.Result, error)
}

// Server is the HTTP upload server.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	ingester Ingester
	metrics  *observability.Metrics
	build    *buildinfo.Context

	// uploads serializes ingest runs within this process
	uploads *semaphore.Weighted

	// statsCache holds health figures that are costly to collect per request
	statsCache *cache.Cache

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics exposes the given metrics on /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo reports the given build metadata on /api/health.
func WithBuildInfo(build *buildinfo.Context) ServerOption {
	return func(s *Server) {
		s.build = build
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, ingester Ingester, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if ingester == nil {
		return nil, fmt.Errorf("ingest service is required")
	}

	s := &Server{
		config:     config,
		settings:   settings,
		ingester:   ingester,
		uploads:    semaphore.NewWeighted(1),
		statsCache: cache.New(statsCacheTTL, 0),
		startTime:  time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.log.Module("echo"))
	s.echo.HTTPErrorHandler = s.httpErrorHandler

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug),
		logger.String("upload_dir", config.UploadDir))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	if s.config.Debug {
		s.echo.Use(mw.NewRequestLogger(s.log.Module("http")))
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.index)
	s.echo.GET("/grafana", s.grafanaRedirect)

	apiGroup := s.echo.Group("/api")
	apiGroup.GET("/health", s.healthCheck)
	apiGroup.POST("/upload", s.uploadFile, mw.NewRateLimiter(s.config.RateLimit, s.config.RateBurst))

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.log.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and shuts it down on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		s.log.Info("Shutdown signal received, initiating graceful shutdown")
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
