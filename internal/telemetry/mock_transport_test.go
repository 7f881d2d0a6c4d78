package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// mockTransport implements sentry.Transport and keeps events in memory.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool { return true }

func (t *mockTransport) FlushWithContext(context.Context) bool { return true }

func (t *mockTransport) Close() {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}
