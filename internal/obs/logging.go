// Package obs wires logging and metrics ambient infrastructure, grounded on
// the teacher's go-adk/cmd/main.go setupLogger (zap.NewProductionConfig +
// zapr.NewLogger) and go/tools telemetry package's metrics registration
// style.
package obs

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a logr.Logger backed by zap, with an ISO8601 timestamp
// key so log lines sort and grep predictably across tenants. Falls back to
// a development config if the production encoder fails to build (grounded
// on the teacher's setupLogger fallback path).
func NewLogger(level string) (logr.Logger, *zap.Logger) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(level))
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := zapConfig.Build()
	if err != nil {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(parseLevel(level))
		zapLogger, _ = devConfig.Build()
	}

	return zapr.NewLogger(zapLogger), zapLogger
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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

// WithLogger attaches logger to ctx so request-scoped code can retrieve it
// via logr.FromContextOrDiscard without threading it through every call.
func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}
