// Package logger holds the process-wide zap logger. Output is ECS-formatted
// JSON so it can be shipped to an Elastic stack unchanged.
package logger

import (
	"context"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type closeLog func() error

var baseLogger = zap.NewNop()

// Init builds the base logger at the given level ("debug", "info", ...).
// Development mode switches to the human friendly console config.
func Init(level string, development bool) (closeLog, error) {
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig = ecszap.ECSCompatibleEncoderConfig(config.EncoderConfig)

	l, err := config.Build(ecszap.WrapCoreOption(), zap.AddCaller())
	if err != nil {
		return nil, err
	}
	baseLogger = l

	return func() error {
		return baseLogger.Sync()
	}, nil
}

// Set replaces the base logger; tests use it with zaptest or zap.NewNop.
func Set(l *zap.Logger) { baseLogger = l }

func Log() *zap.Logger {
	return baseLogger
}

func With(fields ...zap.Field) *zap.Logger {
	return baseLogger.With(fields...)
}

type loggerKey struct{}

func NewContext(parent context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(parent, loggerKey{}, logger)
}

func FromContext(ctx context.Context) *zap.Logger {
	log, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if ok {
		return log
	}
	return baseLogger
}
