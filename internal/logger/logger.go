// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// # Quick Start
//
//	cfg := &logger.LoggingConfig{
//	    DefaultLevel: "info",
//	    Console: &logger.ConsoleOutput{Enabled: true, Level: "info"},
//	}
//
//	centralLogger, err := logger.NewCentralLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer centralLogger.Close()
//	logger.SetGlobal(centralLogger)
//
//	log := logger.Global().Module("vision")
//	log.Info("Frame analyzed",
//	    logger.Int("faces", 1),
//	    logger.Bool("looking_away", false))
//
// # Module Scoping
//
// Module loggers nest with a dot separator:
//
//	apiLog := centralLogger.Module("api")
//	apiLog.Module("health").Debug("probe")  // module="api.health"
//
// # Context-Aware Logging
//
// The request ID middleware stores a trace ID in the request context with
// WithTraceID. WithContext picks it up:
//
//	log.WithContext(c.Request().Context()).Info("Analyzing frame")  // includes trace_id
//
// # Outputs
//
// Console output is human-readable text without timestamps. File output is JSON
// with RFC3339 timestamps and is rotated by size through lumberjack. Individual
// modules may be routed to their own files via the modules section.
//
//	logging:
//	  default_level: info
//	  console:
//	    enabled: true
//	    level: info
//	  file_output:
//	    enabled: true
//	    path: logs/proctor.log
//	    max_size: 100
//	  module_levels:
//	    vision: debug
//	  modules:
//	    access:
//	      enabled: true
//	      file_path: logs/access.log
//
// # Redaction
//
// String fields whose key looks like a credential (password, token, dsn, ...) are
// replaced with [REDACTED] before reaching any handler.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned using unique.Make() so that repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

// internKey returns an interned version of the key string.
func internKey(key string) string {
	return unique.Make(key).Value()
}

// Pre-interned common keys
var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	// Leveled logging methods
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Context-aware logging
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field for structured logging.
//
// Example:
//
//	log.Info("Request processed",
//	    logger.String("endpoint", "/analyze-face"),
//	    logger.String("method", "POST"))
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for structured logging.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field for structured logging.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float32 creates a 32-bit float field. Values are rounded to three decimals on output.
func Float32(key string, value float32) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field. Values are rounded to three decimals on output.
//
// Example:
//
//	log.Debug("Audio analyzed",
//	    logger.Float64("audio_level", result.AudioLevel),
//	    logger.Float64("confidence", result.Confidence))
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". If err is nil, the value will be nil.
//
// Example:
//
//	if err := publisher.Publish(ctx, verdict); err != nil {
//	    log.Warn("Failed to publish verdict",
//	        logger.Error(err),
//	        logger.String("topic", topic))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a string (e.g., "1.5s", "200ms").
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value.String()}
}

// Time creates a time field for structured logging.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value. Prefer the typed constructors for simple values.
//
// Warning: Ensure the value is JSON-serializable or file output may render it poorly.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
