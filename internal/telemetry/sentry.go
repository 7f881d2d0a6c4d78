// Package telemetry reports server errors to Sentry when the user opts in.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/nutrilog/nutrilog/internal/buildinfo"
	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// DefaultFlushTimeout bounds how long shutdown waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK. Nothing is reported unless
// sentry.enabled is set.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	if !settings.Sentry.Enabled {
		getLogger().Info("Sentry telemetry is disabled (opt-in required)")
		return nil
	}

	if err := initializeSentrySDK(clientOptions(settings, build)); err != nil {
		return err
	}

	getLogger().Info("Sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", "nutrilog@"+build.GetVersion()))
	return nil
}

func clientOptions(settings *conf.Settings, build *buildinfo.Context) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		Release:          "nutrilog@" + build.GetVersion(),
		BeforeSend:       applyPrivacyFilters,
	}
}

func initializeSentrySDK(opts sentry.ClientOptions) error {
	if err := sentry.Init(opts); err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}
	sentryInitialized.Store(true)
	return nil
}

// CaptureError reports err with its category and the reporting component.
// It is a no-op until InitSentry has enabled reporting.
func CaptureError(err error, component string) {
	if err == nil || !sentryInitialized.Load() {
		return
	}

	category := string(errors.CategoryGeneric)
	message := err.Error()
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		category = enhanced.GetCategory()
		message = enhanced.GetMessage()
	}
	message = ScrubMessage(message)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", category)
		scope.SetFingerprint([]string{category, component})

		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = message
		event.Exception = []sentry.Exception{{
			Type:  category,
			Value: message,
		}}
		sentry.CaptureEvent(event)
	})

	getLogger().Debug("error event sent",
		logger.String("component", component),
		logger.String("category", category))
}

// Flush waits up to timeout for queued events to be delivered.
func Flush(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
