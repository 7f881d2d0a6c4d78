// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Components receive a Logger and scope it with Module:
//
//	central, err := logger.NewCentralLogger(&settings.Logging)
//	if err != nil {
//	    return err
//	}
//	logger.SetGlobal(central)
//
//	parserLog := central.Module("parser")
//	parserLog.Info("CSV parsed",
//	    logger.Int("records", len(batch.Records)),
//	    logger.Int("degraded_rows", degraded))
//
// Console output is human-readable text, file output is JSON. Tests use
// NewSlogLogger(io.Discard, LogLevelError, time.UTC) or a bytes.Buffer.
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

// Keys shared by all handlers
const (
	moduleKey  = "module"
	traceIDKey = "trace_id"
)

// Field represents a structured log field.
// Keys are interned using unique.Make() so repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

// internKey returns an interned version of the key string.
func internKey(key string) string {
	return unique.Make(key).Value()
}

var errorKey = internKey("error")

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field. User identifiers are logged with it.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field. The key is always "error"; a nil err yields a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any JSON-serializable value.
// Prefer the typed constructors for simple values.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
