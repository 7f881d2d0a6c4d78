package logger

import (
	"context"
	"log/slog"
	"sync"
)

type contextKey string

// TraceIDKey is the context key holding a request trace ID
const TraceIDKey contextKey = "trace_id"

// WithTraceID stores a trace ID in ctx for WithContext to pick up.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// TraceIDFromContext returns the trace ID stored in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

const defaultAttrCapacity = 8

var attrPool = sync.Pool{
	New: func() any {
		attrs := make([]slog.Attr, 0, defaultAttrCapacity)
		return &attrs
	},
}

func getAttrs() *[]slog.Attr {
	attrsPtr := attrPool.Get().(*[]slog.Attr) //nolint:errcheck // pool only holds *[]slog.Attr
	*attrsPtr = (*attrsPtr)[:0]
	return attrsPtr
}

func putAttrs(attrsPtr *[]slog.Attr) {
	// oversized slices are dropped so the pool stays small
	if cap(*attrsPtr) > 64 {
		return
	}
	clear(*attrsPtr)
	attrPool.Put(attrsPtr)
}
