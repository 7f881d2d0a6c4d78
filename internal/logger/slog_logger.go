package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"
)

// LevelTrace sits below slog.LevelDebug (-4)
const LevelTrace = slog.Level(-8)

// SlogLogger implements Logger on top of a slog.Handler. Module and field
// scoping return copies; the handler is shared.
type SlogLogger struct {
	handler  slog.Handler
	level    slog.Level
	module   string
	timezone *time.Location
	fields   []Field
	// levelFor resolves per-module overrides when set by CentralLogger
	levelFor func(module string) slog.Level
}

// NewSlogLogger creates a logger writing JSON lines to writer.
// A nil writer means stdout, a nil timezone means UTC.
func NewSlogLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	if timezone == nil {
		timezone = time.UTC
	}

	slogLevel := parseSlogLevel(level)
	return &SlogLogger{
		handler:  slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slogLevel, ReplaceAttr: timeInZone(timezone)}),
		level:    slogLevel,
		timezone: timezone,
	}
}

// NewConsoleLogger creates a human-readable stdout logger for use before
// the central logger is configured.
func NewConsoleLogger(module string, level LogLevel) *SlogLogger {
	slogLevel := parseSlogLevel(level)
	return &SlogLogger{
		handler:  newTextHandler(os.Stdout, slogLevel, time.Local),
		level:    slogLevel,
		module:   module,
		timezone: time.Local,
	}
}

// Module returns a logger scoped to a specific module. Nested modules are
// joined with a dot.
func (l *SlogLogger) Module(name string) Logger {
	if l == nil {
		return nil
	}

	moduleName := name
	if l.module != "" {
		moduleName = l.module + "." + name
	}

	child := l.clone()
	child.module = moduleName
	if l.levelFor != nil {
		child.level = l.levelFor(moduleName)
	}
	return child
}

// Trace logs at the most verbose level
func (l *SlogLogger) Trace(msg string, fields ...Field) { l.log(LevelTrace, msg, fields...) }

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields...) }

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...Field) { l.log(slog.LevelInfo, msg, fields...) }

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...Field) { l.log(slog.LevelWarn, msg, fields...) }

// Error logs an error message
func (l *SlogLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields...) }

// Log logs a message with explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	l.log(parseSlogLevel(level), msg, fields...)
}

// With returns a new logger with accumulated fields
func (l *SlogLogger) With(fields ...Field) Logger {
	if l == nil {
		return nil
	}
	child := l.clone()
	child.fields = slices.Concat(l.fields, fields)
	return child
}

// WithContext returns a logger carrying the trace ID stored in ctx, if any
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil {
		return nil
	}
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.With(String(traceIDKey, traceID))
}

// Flush is a no-op; file syncing is owned by CentralLogger.
func (l *SlogLogger) Flush() error {
	return nil
}

func (l *SlogLogger) clone() *SlogLogger {
	return &SlogLogger{
		handler:  l.handler,
		level:    l.level,
		module:   l.module,
		timezone: l.timezone,
		fields:   l.fields,
		levelFor: l.levelFor,
	}
}

func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	if l == nil || l.handler == nil || level < l.level {
		return
	}
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}

	attrsPtr := getAttrs()
	attrs := *attrsPtr

	if l.module != "" {
		attrs = append(attrs, slog.String(moduleKey, l.module))
	}
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}

	record := slog.NewRecord(time.Now().In(l.timezone), level, msg, 0)
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)

	*attrsPtr = attrs
	putAttrs(attrsPtr)
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.Duration(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}

// parseSlogLevel converts LogLevel to slog.Level; unknown values mean info
func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return LevelTrace
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// timeInZone rewrites the built-in time attribute into the configured zone
func timeInZone(tz *time.Location) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
			return slog.Time(slog.TimeKey, a.Value.Time().In(tz))
		}
		if len(groups) == 0 && a.Key == slog.LevelKey {
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}
		return a
	}
}
