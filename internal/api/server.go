package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/proctor-go/internal/analysis"
	mw "github.com/tphakala/proctor-go/internal/api/middleware"
	"github.com/tphakala/proctor-go/internal/audio"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/media"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
	"github.com/tphakala/proctor-go/internal/vision"
)

// Analyzer is the analysis surface the handlers need. *analysis.Service implements it.
type Analyzer interface {
	AnalyzeFace(ctx context.Context, raw []byte, timestamp *int64) (vision.FaceSignalResult, error)
	AnalyzeAudio(ctx context.Context, samples []float32, sampleRate int, timestamp *int64) (audio.AudioSignalResult, error)
	AnalyzeVideo(ctx context.Context, path string) (*analysis.VideoReport, error)
	AnalyzeAudioClip(ctx context.Context, clip media.Clip) (*analysis.BlobReport, error)
}

// Server is the HTTP server for the proctoring API.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	analyzer    Analyzer
	httpMetrics *metrics.HTTPMetrics
	health      *healthReporter
	tempDir     string
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithHTTPMetrics records every request in m.
func WithHTTPMetrics(m *metrics.HTTPMetrics) ServerOption {
	return func(s *Server) {
		s.httpMetrics = m
	}
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTempDir sets where uploaded videos are spooled, default os.TempDir.
func WithTempDir(dir string) ServerOption {
	return func(s *Server) {
		s.tempDir = dir
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, analyzer Analyzer, opts ...ServerOption) (*Server, error) {
	if analyzer == nil {
		return nil, errors.Newf("analyzer is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{
		config:   config,
		settings: settings,
		log:      GetLogger(),
		analyzer: analyzer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	s.health = newHealthReporter(settings.Version, s.tempDir)

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.HTTPErrorHandler = s.handleHTTPError

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.String("body_limit", config.BodyLimit),
		logger.Float64("rate_limit", config.RateLimit),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.WithContext(c.Request().Context()).Error("Handler panic",
				logger.Error(err),
				logger.String("stack", string(stack)))
			return err
		},
	}))

	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.log.Module("access")))
	s.echo.Use(mw.NewHTTPMetrics(s.httpMetrics))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	limit := mw.NewRateLimiter(mw.RateLimitConfig{PerSecond: s.config.RateLimit, Burst: s.config.RateBurst})
	s.echo.POST("/analyze-face", s.analyzeFace, limit)
	s.echo.POST("/analyze-audio", s.analyzeAudio, limit)
	s.echo.POST("/analyze-video", s.analyzeVideo, limit)
	s.echo.POST("/analyze-audio-blob", s.analyzeAudioBlob, limit)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.NetworkError(err, s.config.Address(), 0)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.echo.Listener = listener
	s.log.Info("Starting HTTP server", logger.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(fmt.Errorf("server error: %w", err)).
				Component("api").
				Category(errors.CategoryNetwork).
				Build()
		}
		return nil
	case <-ctx.Done():
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	<-errCh
	return nil
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
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHTTPError keeps the response envelope for errors raised outside
// handlers: unknown routes, oversized bodies, recovered panics.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Success: false, Error: message})
	}
	if err != nil {
		s.log.Warn("Failed to write error response", logger.Error(err))
	}
}
