package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })
	return logs
}

func TestSetRoutesAllHelpers(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Debugf("debug %d", 1)
	Infof("info %s", "x")
	Warnw("slow", "ms", 120)
	Error("failed", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.EqualValues(t, 120, entries[2].ContextMap()["ms"])
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestSetRespectsLevel(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	Info("hidden")
	Warnf("shown %d", 2)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown 2", logs.All()[0].Message)
}
