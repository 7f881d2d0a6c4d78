package logger

import (
	"fmt"
	"io"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter routes echo's internal logging through Logger so the
// HTTP server shares the console/file format of every other module.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(central.Module("api"))
type EchoLoggerAdapter struct {
	logger Logger
	level  echo_log.Lvl
}

// NewEchoLoggerAdapter wraps logger; nil falls back to a console logger.
func NewEchoLoggerAdapter(logger Logger) *EchoLoggerAdapter {
	if logger == nil {
		logger = NewConsoleLogger("echo", LogLevelInfo)
	}
	return &EchoLoggerAdapter{logger: logger, level: echo_log.INFO}
}

// Output is unused; output is owned by Logger.
func (a *EchoLoggerAdapter) Output() io.Writer { return io.Discard }

// SetOutput is a no-op.
func (a *EchoLoggerAdapter) SetOutput(_ io.Writer) {}

// Prefix is unused; module scoping replaces prefixes.
func (a *EchoLoggerAdapter) Prefix() string { return "" }

// SetPrefix is a no-op.
func (a *EchoLoggerAdapter) SetPrefix(_ string) {}

// Level reports the level echo last requested. Filtering stays with Logger.
func (a *EchoLoggerAdapter) Level() echo_log.Lvl { return a.level }

// SetLevel records the requested level.
func (a *EchoLoggerAdapter) SetLevel(v echo_log.Lvl) { a.level = v }

// SetHeader is a no-op.
func (a *EchoLoggerAdapter) SetHeader(_ string) {}

func (a *EchoLoggerAdapter) Print(i ...any)                    { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Printf(format string, args ...any) { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Printj(j echo_log.JSON)            { a.logger.Info("echo", Any("data", j)) }

func (a *EchoLoggerAdapter) Debug(i ...any)                    { a.logger.Debug(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Debugf(format string, args ...any) { a.logger.Debug(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON)            { a.logger.Debug("echo", Any("data", j)) }

func (a *EchoLoggerAdapter) Info(i ...any)                    { a.logger.Info(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Infof(format string, args ...any) { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON)            { a.logger.Info("echo", Any("data", j)) }

func (a *EchoLoggerAdapter) Warn(i ...any)                    { a.logger.Warn(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Warnf(format string, args ...any) { a.logger.Warn(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON)            { a.logger.Warn("echo", Any("data", j)) }

func (a *EchoLoggerAdapter) Error(i ...any)                    { a.logger.Error(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Errorf(format string, args ...any) { a.logger.Error(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON)            { a.logger.Error("echo", Any("data", j)) }

// Fatal logs and panics so the server's recover path can shut down cleanly
// instead of exiting the process.
func (a *EchoLoggerAdapter) Fatal(i ...any) { a.fail(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Fatalf(format string, args ...any) { a.fail(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON)            { a.fail(fmt.Sprintf("%v", j)) }
func (a *EchoLoggerAdapter) Panic(i ...any)                    { a.fail(fmt.Sprint(i...)) }
func (a *EchoLoggerAdapter) Panicf(format string, args ...any) { a.fail(fmt.Sprintf(format, args...)) }
func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON)            { a.fail(fmt.Sprintf("%v", j)) }

func (a *EchoLoggerAdapter) fail(msg string) {
	a.logger.Error(msg)
	panic("echo: " + msg)
}
