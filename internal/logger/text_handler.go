package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleTimeFormat renders as [DD.MM.YYYY HH:MM:SS]
const consoleTimeFormat = "02.01.2006 15:04:05"

// textHandler writes one human-readable line per record:
//
//	[19.10.2026 14:03:11] INFO  [ingest] upload processed records=12 users=2
type textHandler struct {
	mu       *sync.Mutex
	w        io.Writer
	level    slog.Leveler
	timezone *time.Location
	attrs    []slog.Attr
}

func newTextHandler(w io.Writer, level slog.Leveler, timezone *time.Location) *textHandler {
	if timezone == nil {
		timezone = time.Local
	}
	return &textHandler{mu: &sync.Mutex{}, w: w, level: level, timezone: timezone}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteByte('[')
	buf.WriteString(r.Time.In(h.timezone).Format(consoleTimeFormat))
	buf.WriteString("] ")
	fmt.Fprintf(&buf, "%-5s ", levelName(r.Level))

	var module string
	rest := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey {
			module = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if module != "" {
		buf.WriteString("[" + module + "] ")
	}
	buf.WriteString(r.Message)

	for _, a := range rest {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &textHandler{
		mu:       h.mu,
		w:        h.w,
		level:    h.level,
		timezone: h.timezone,
		attrs:    slices.Concat(h.attrs, attrs),
	}
}

// WithGroup is not used by this codebase; groups are flattened.
func (h *textHandler) WithGroup(_ string) slog.Handler {
	return h
}

func levelName(level slog.Level) string {
	if level <= LevelTrace {
		return "TRACE"
	}
	return level.String()
}

func formatValue(v slog.Value) string {
	s := v.Resolve().String()
	if strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
