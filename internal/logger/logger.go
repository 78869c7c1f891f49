package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Setup configures the global structured logger with environment-aware defaults.
func Setup() *slog.Logger {
	logger := New(os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w using LOG_LEVEL / LOG_FORMAT / ENV.
func New(w io.Writer) *slog.Logger {
	return slog.New(&traceHandler{Handler: determineHandler(w)})
}

func determineHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     getLogLevel(),
		AddSource: os.Getenv("LOG_SOURCE") == "true",
	}

	switch getLogFormat() {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "pretty":
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05.000"))
			}
			return a
		}
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

func getLogLevel() slog.Level {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		if isProduction() {
			return slog.LevelInfo
		}
		return slog.LevelDebug
	}

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

func getLogFormat() string {
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return strings.ToLower(format)
	}
	if isProduction() {
		return "json"
	}
	return "pretty"
}

func isProduction() bool {
	env := strings.ToLower(os.Getenv("ENV"))
	return strings.HasPrefix(env, "prod") || os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// traceHandler stamps records with the active span so client logs line up
// with the otelhttp spans of the same request.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}
