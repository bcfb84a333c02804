package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/copilotd/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_DebugLevel(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "console"}, nil)
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud", Format: "json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging level")
}

func TestNew_WithOTELProvider(t *testing.T) {
	provider := noop.NewLoggerProvider()

	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, provider)
	require.NoError(t, err)
	require.NotNil(t, logger)

	// Logging through the teed core must not panic
	logger.Info("bridge check")
}
