package logger

import (
	"testing"

	"glauk-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetBeforeInitialize(t *testing.T) {
	assert.NotNil(t, Get())
}

func TestInitialize(t *testing.T) {
	require.NoError(t, Initialize(config.LoggerConfig{Level: "debug", Env: "production"}))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Initialize(config.LoggerConfig{Level: "warn"}))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, Initialize(config.LoggerConfig{Level: "loud"}))
}
