// Package log builds the process loggers and threads pipeline run and
// request correlation IDs through the context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/skyvisionhq/skyvision/internal/config"
)

type contextKey string

const (
	runIDKey         contextKey = "run_id"
	correlationIDKey contextKey = "correlation_id"
)

// WithRunID stamps a pipeline run ID into the context. Records logged through
// the *Context slog methods carry it from there on.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the pipeline run ID stamped into the context, or "".
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID stamps a request correlation ID into the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID stamped into the context, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// contextHandler appends the context IDs to records logged through the
// *Context slog methods. Records logged without a context pass through
// untouched.
type contextHandler struct {
	inner slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	runID, corrID := RunID(ctx), CorrelationID(ctx)
	if runID == "" && corrID == "" {
		return h.inner.Handle(ctx, r)
	}

	// Clone before appending: the record's attr backing array may be shared
	// with the caller.
	r = r.Clone()
	if runID != "" {
		r.AddAttrs(slog.String("run_id", runID))
	}
	if corrID != "" {
		r.AddAttrs(slog.String("correlation_id", corrID))
	}
	return h.inner.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{inner: h.inner.WithGroup(name)}
}

// NewLogger creates a logger based on configuration, writing to stdout.
func NewLogger(cfg config.AppConfig) *slog.Logger {
	return NewLoggerWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a logger that writes to the specified writer.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *slog.Logger {
	lvl := parseLevel(level)

	var handler slog.Handler
	switch format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = newTerminalHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	return slog.New(contextHandler{inner: handler})
}

// Configure builds the configured logger and installs it as the process
// default, so components that fall back to slog.Default share the same
// handler.
func Configure(cfg config.AppConfig) *slog.Logger {
	l := NewLogger(cfg)
	slog.SetDefault(l)
	return l
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
