package telemetry

import (
	"regexp"

	"github.com/getsentry/sentry-go"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	// two or more path segments, so uploaded file names and staging paths do not leak
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[/\\][^\s/\\:"']+){2,}`)
)

// ScrubMessage removes email addresses and filesystem paths from msg.
func ScrubMessage(msg string) string {
	msg = emailPattern.ReplaceAllString(msg, "[email]")
	return pathPattern.ReplaceAllString(msg, "[path]")
}

// applyPrivacyFilters strips host and request details from outgoing events.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}

	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil
	event.Message = ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = ScrubMessage(event.Exception[i].Value)
	}
	return event
}
