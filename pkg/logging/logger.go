package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides logging functionality with structured fields
type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
	With(fields map[string]any) Logger
}

// ZapLogger implements Logger using zap
type ZapLogger struct {
	logger    *zap.Logger
	component string
	context   map[string]any
}

// NewZapLogger builds a production zap logger tagged with component.
// level is one of debug, info, warn, error; anything else means info.
func NewZapLogger(component, level string) *ZapLogger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	return &ZapLogger{
		logger:    logger,
		component: component,
		context:   make(map[string]any),
	}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger, component string) *ZapLogger {
	return &ZapLogger{logger: l, component: component, context: make(map[string]any)}
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop(), context: make(map[string]any)}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapLogger) Info(msg string, fields map[string]any) {
	z.logger.Info(msg, z.buildZapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields map[string]any) {
	z.logger.Warn(msg, z.buildZapFields(fields)...)
}

func (z *ZapLogger) Debug(msg string, fields map[string]any) {
	z.logger.Debug(msg, z.buildZapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, err error, fields map[string]any) {
	zapFields := z.buildZapFields(fields)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	z.logger.Error(msg, zapFields...)
}

// With returns a child logger that adds fields to every entry.
func (z *ZapLogger) With(fields map[string]any) Logger {
	ctx := make(map[string]any, len(z.context)+len(fields))
	for k, v := range z.context {
		ctx[k] = v
	}
	for k, v := range fields {
		ctx[k] = v
	}
	return &ZapLogger{logger: z.logger, component: z.component, context: ctx}
}

// Sync flushes buffered entries; call it before exit.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

// Zap exposes the underlying logger for libraries that want one.
func (z *ZapLogger) Zap() *zap.Logger {
	return z.logger
}

func (z *ZapLogger) buildZapFields(fields map[string]any) []zap.Field {
	zapFields := make([]zap.Field, 0, len(z.context)+len(fields)+1)
	if z.component != "" {
		zapFields = append(zapFields, zap.String("component", z.component))
	}
	for k, v := range z.context {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}
