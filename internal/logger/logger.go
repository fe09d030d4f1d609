// Package logger wires zap into the request context so that handlers and
// services log with the request-scoped fields attached by middleware.
package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type ctxKey struct{}

var nop = zap.NewNop().Sugar()

// New builds the process logger. APP_ENV=dev gets the human-readable
// development encoder, everything else JSON.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = lvl
	return cfg.Build()
}

// ToContext stores l in ctx for FromContext.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by ToContext, or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return nop
}

func Infof(ctx context.Context, template string, args ...any) {
	FromContext(ctx).Infof(template, args...)
}

func Warnf(ctx context.Context, template string, args ...any) {
	FromContext(ctx).Warnf(template, args...)
}

func Errorf(ctx context.Context, template string, args ...any) {
	FromContext(ctx).Errorf(template, args...)
}
