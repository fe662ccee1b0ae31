// Package requestctx carries per-request values (logger, trace, admin
// identity) between middleware and handlers.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	traceKey  struct{}
	adminKey  struct{}
)

var noop = zap.NewNop()

// TraceInfo is the Cloud Trace context of the current request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noop
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger never returns nil.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return noop
}

// NoopLogger is what Logger returns when nothing was attached.
func NoopLogger() *zap.Logger { return noop }

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(ctx, traceKey{}, info)
}

func Trace(ctx context.Context) (TraceInfo, bool) {
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithAdmin records the admin email after the credentials check passed.
func WithAdmin(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminKey{}, email)
}

func Admin(ctx context.Context) (string, bool) {
	email, _ := ctx.Value(adminKey{}).(string)
	return email, email != ""
}
