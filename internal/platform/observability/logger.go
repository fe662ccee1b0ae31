package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/croix-presskit/presskit/internal/platform/requestctx"
)

// EventLogger is the structured event hook accepted by service constructors.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

// NewLogger returns the process logger: JSON on stdout with the field names
// Cloud Logging recognises (severity, message, timestamp). LOG_LEVEL picks
// the level; anything unparsable means info.
func NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.MessageKey = "message"
	enc.TimeKey = "timestamp"
	enc.LevelKey = "severity"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

// WithLogger injects the logger into ctx for code that runs outside a request.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// Events adapts a zap logger to the EventLogger hook. Failures and orphaned
// objects are errors, degraded or skipped work is a warning, the rest is debug.
func Events(logger *zap.Logger) EventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		zf := make([]zap.Field, 0, len(fields)+2)
		zf = append(zf, zap.String("event", event))
		if id := requestctx.TraceID(ctx); id != "" {
			zf = append(zf, zap.String("trace_id", id))
		}
		for k, v := range fields {
			zf = append(zf, zap.Any(k, v))
		}
		logger.Log(eventLevel(event), event, zf...)
	}
}

func eventLevel(event string) zapcore.Level {
	switch event[strings.LastIndexByte(event, '.')+1:] {
	case "failed", "orphaned":
		return zapcore.ErrorLevel
	case "degraded", "skipped":
		return zapcore.WarnLevel
	default:
		return zapcore.DebugLevel
	}
}
