// Package logging provides the structured logger shared by every core
// subsystem: a singleton with a development fallback, and context-scoped
// fields for connection and room identifiers.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	// CorrelationIDKey tags a log line with a caller-supplied correlation id.
	CorrelationIDKey contextKey = "correlation_id"
	// ConnectionIDKey tags a log line with the connection it concerns.
	ConnectionIDKey contextKey = "connection_id"
	// RoomNameKey tags a log line with the room it concerns.
	RoomNameKey contextKey = "room"
)

// Initialize sets up the global logger. development selects a human-readable,
// color-level encoder; otherwise a JSON production encoder with ISO8601
// timestamps is used. Safe to call multiple times; only the first call wins.
func Initialize(development bool) error {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if development {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		logger, err = cfg.Build(zap.AddCallerSkip(1))
	})
	return err
}

// Get returns the global logger, falling back to a development logger if
// Initialize was never called — embedders of the library are not required
// to call Initialize.
func Get() *zap.Logger {
	if logger == nil {
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	fields = append(fields, zap.String("service", "wynd"))
	if v, ok := ctx.Value(ConnectionIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("connection_id", v))
	}
	if v, ok := ctx.Value(RoomNameKey).(string); ok && v != "" {
		fields = append(fields, zap.String("room", v))
	}
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("correlation_id", v))
	}
	return fields
}

// Debug logs at DebugLevel with context fields attached.
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Get().Debug(msg, appendContextFields(ctx, fields)...)
}

// Info logs at InfoLevel with context fields attached.
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Get().Info(msg, appendContextFields(ctx, fields)...)
}

// Warn logs at WarnLevel with context fields attached.
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Get().Warn(msg, appendContextFields(ctx, fields)...)
}

// Error logs at ErrorLevel with context fields attached.
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	Get().Error(msg, appendContextFields(ctx, fields)...)
}
