package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core), "decks")

	child := log.With(map[string]any{"user_id": "u-1"})
	child.Info("deck saved", map[string]any{"deck_id": int64(7)})
	child.Error("save failed", errors.New("locked"), nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "deck saved", entries[0].Message)
	assert.Equal(t, "decks", first["component"])
	assert.Equal(t, "u-1", first["user_id"])
	assert.Equal(t, int64(7), first["deck_id"])

	second := entries[1].ContextMap()
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "locked", second["error"])
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	parent := FromZap(zap.New(core), "")

	_ = parent.With(map[string]any{"request": "abc"})
	parent.Info("plain", nil)

	require.Len(t, logs.All(), 1)
	_, ok := logs.All()[0].ContextMap()["request"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
