// Package main is the entry point for the onto-registry command line tool.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stacklok/ontology-registry/cmd/onto-registry/app"
	"github.com/stacklok/ontology-registry/internal/config"
)

// getLogLevel parses the ONTO_REGISTRY_LOG_LEVEL environment variable and returns the corresponding slog.Level.
// Falls back to LOG_LEVEL. Defaults to slog.LevelInfo if neither is set or if the value is invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// newZapLogger builds the JSON process logger on stderr, keeping stdout clean for command output.
// logr maps slog debug records to V(4), which zapr emits at zap level -4. The zap floor
// stays open that far and level filtering happens in the slog handlers, so management
// client output can follow the client verbosity rather than the process log level.
func newZapLogger() (*zap.Logger, error) {
	floor := zapcore.Level(slog.LevelDebug)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(floor)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// traceHandler wraps an slog.Handler to automatically inject OpenTelemetry
// trace_id and span_id into every log record, enabling log-trace correlation.
type traceHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *traceHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

func main() {
	level := getLogLevel()
	zapLogger, err := newZapLogger()
	if err != nil {
		slog.Error("Failed to build logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	base := logr.ToSlogHandler(zapr.NewLogger(zapLogger))
	slog.SetDefault(slog.New(&traceHandler{Handler: base, level: level}))

	// client records are filtered by the client verbosity alone
	clientHandler := &traceHandler{Handler: base, level: slog.LevelDebug}

	if err := app.NewRootCmd(app.WithClientLogHandler(clientHandler)).Execute(); err != nil {
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}
