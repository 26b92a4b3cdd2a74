package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("not-a-level", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNewLoggerDebug(t *testing.T) {
	l, err := NewLogger("debug", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithComponentAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core)).
		WithComponent("detector").
		WithFields(map[string]interface{}{"run": 7})

	l.Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "detector", ctx["component"])
	assert.EqualValues(t, 7, ctx["run"])
}
