// Package testutil provides shared test utilities for nutrilog.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for asserting that something does not happen.
	ShortTestTimeout = 100 * time.Millisecond
)

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// RequireNoSignal fails if the channel delivers a signal within wait.
func RequireNoSignal(t *testing.T, ch <-chan struct{}, wait time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
		require.Fail(t, msg)
	case <-time.After(wait):
	}
}
