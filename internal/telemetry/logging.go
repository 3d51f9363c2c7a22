package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a JSON logger that stamps records with the active
// trace and span IDs when a span is present on the context.
func NewLogger(level string) *slog.Logger {
	base := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(&traceHandler{base: base})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type traceHandler struct {
	base slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.base
	if traceID := TraceID(ctx); traceID != "" {
		attrs := []slog.Attr{slog.String("trace_id", traceID)}
		if spanID := SpanID(ctx); spanID != "" {
			attrs = append(attrs, slog.String("span_id", spanID))
		}
		handler = handler.WithAttrs(attrs)
	}
	return handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{base: h.base.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{base: h.base.WithGroup(name)}
}
