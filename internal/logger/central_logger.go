package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogFilePermissions is the default file permissions for log files (rw-------)
const LogFilePermissions = 0o600

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
// Call once during startup after loading configuration.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger, or a console-only fallback if
// SetGlobal has not been called.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)
	globalLogger = &CentralLogger{
		config:       cfg,
		timezone:     time.Local,
		baseHandler:  newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
		moduleLevels: map[string]slog.Level{},
	}
	return globalLogger
}

// CentralLogger owns the output handlers and hands out module-scoped loggers.
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	baseHandler  slog.Handler
	logFile      *os.File
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger with console text output and
// optional JSON file output.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	if err := cl.createBaseHandler(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}
	return cl, nil
}

func (cl *CentralLogger) createBaseHandler() error {
	var handlers []slog.Handler

	if cl.config.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stdout, parseLogLevel(cl.config.Console.Level), cl.timezone))
	}

	if cl.config.FileOutput.Enabled {
		if err := ensureFileDirectory(cl.config.FileOutput.Path); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cl.config.FileOutput.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cl.config.FileOutput.Path, err)
		}
		cl.logFile = file

		opts := &slog.HandlerOptions{
			Level:       parseLogLevel(cl.config.FileOutput.Level),
			ReplaceAttr: timeInZone(cl.timezone),
		}
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	switch len(handlers) {
	case 0:
		handlers = append(handlers, newTextHandler(os.Stdout, parseLogLevel(cl.config.DefaultLevel), cl.timezone))
		cl.baseHandler = handlers[0]
	case 1:
		cl.baseHandler = handlers[0]
	default:
		cl.baseHandler = newMultiWriterHandler(handlers...)
	}
	return nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	root := &SlogLogger{
		handler:  cl.baseHandler,
		level:    cl.moduleLevel(""),
		timezone: cl.timezone,
		levelFor: cl.moduleLevel,
	}
	return root.Module(name)
}

// moduleLevel resolves a level for a dotted module name, falling back to
// its parent modules and then the default level.
func (cl *CentralLogger) moduleLevel(module string) slog.Level {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	for name := module; name != ""; {
		if level, ok := cl.moduleLevels[name]; ok {
			return level
		}
		ext := filepath.Ext(name)
		if ext == "" {
			break
		}
		name = name[:len(name)-len(ext)]
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// SetModuleLevel overrides the level for one module at runtime. Loggers
// obtained before the call keep their level.
func (cl *CentralLogger) SetModuleLevel(module string, level LogLevel) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.moduleLevels[module] = parseSlogLevel(level)
}

// Flush syncs the log file if one is open
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.logFile != nil {
		if err := cl.logFile.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	flushErr := cl.Flush()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	var closeErr error
	if cl.logFile != nil {
		closeErr = cl.logFile.Close()
		cl.logFile = nil
	}
	return errors.Join(flushErr, closeErr)
}

// ensureFileDirectory creates the directory for a file path if it doesn't exist
func ensureFileDirectory(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}

	const dirPermissions = 0o700
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// parseLogLevel converts a config string to slog.Level
func parseLogLevel(level string) slog.Level {
	return parseSlogLevel(LogLevel(level))
}
