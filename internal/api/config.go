// Package api serves the proctoring analyzers over HTTP. Every endpoint
// answers with the same envelope: {"success":true,"analysis":{...}} or
// {"success":false,"error":"..."}.
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/logger"
)

var (
	apiLogger logger.Logger
	initOnce  sync.Once
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		apiLogger = logger.Global().Module("api")
	})
	return apiLogger
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 2 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "32M"
	DefaultSampleRate      = 44100
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // Maximum request body size (e.g., "1M", "10M")

	// Per-client limit on the /analyze-* routes
	RateLimit float64
	RateBurst int

	// Audio form defaults
	DefaultSampleRate int
	BlobWindow        time.Duration

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:              conf.DefaultPort,
		AllowedOrigins:    []string{"*"},
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		BodyLimit:         DefaultBodyLimit,
		DefaultSampleRate: DefaultSampleRate,
		BlobWindow:        time.Second,
	}
}

// ConfigFromSettings creates a Config from the application settings.
// Zero values in settings keep the defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	ws := &settings.WebServer

	cfg.Host = ws.Host
	if ws.Port != "" {
		cfg.Port = ws.Port
	}
	if len(ws.AllowOrigins) > 0 {
		cfg.AllowedOrigins = ws.AllowOrigins
	}
	if ws.ReadTimeout > 0 {
		cfg.ReadTimeout = ws.ReadTimeout
	}
	if ws.WriteTimeout > 0 {
		cfg.WriteTimeout = ws.WriteTimeout
	}
	if ws.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = ws.ShutdownTimeout
	}
	if ws.BodyLimit != "" {
		cfg.BodyLimit = ws.BodyLimit
	}
	cfg.RateLimit = ws.RateLimit
	cfg.RateBurst = ws.RateBurst
	if settings.Audio.DefaultSampleRate > 0 {
		cfg.DefaultSampleRate = settings.Audio.DefaultSampleRate
	}
	if settings.Audio.BlobWindowSeconds > 0 {
		cfg.BlobWindow = time.Duration(settings.Audio.BlobWindowSeconds * float64(time.Second))
	}
	cfg.Debug = settings.Main.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.DefaultSampleRate <= 0 {
		return fmt.Errorf("default sample rate must be positive")
	}
	// middleware.BodyLimit panics on a limit it cannot parse
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}
