package obs

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNewLoggerBuildsUsableLogger(t *testing.T) {
	logger, zapLogger := NewLogger("debug")
	assert.NotNil(t, zapLogger)
	logger.Info("smoke test")
}

func TestWithLoggerRoundTrips(t *testing.T) {
	logger, _ := NewLogger("info")
	ctx := WithLogger(context.Background(), logger)
	got := logr.FromContextOrDiscard(ctx)
	got.Info("should not panic")
}
