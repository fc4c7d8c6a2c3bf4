package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidateID(t *testing.T) {
	for _, ok := range []string{"opp-1001", "pm_002", "a0b1c2d3-e4f5-6789-abcd-ef0123456789"} {
		assert.NoError(t, ValidateID(ok), ok)
	}
	for _, bad := range []string{"", "-lead", "a b", "x;DROP", strings.Repeat("a", 65)} {
		assert.Error(t, ValidateID(bad), bad)
	}
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate(""))
	assert.NoError(t, ValidateDate("2025-03-12"))
	assert.Error(t, ValidateDate("12/03/2025"))
	assert.Error(t, ValidateDate("2025-02-30"))
	assert.Error(t, ValidateDate("2025-03-12 09:30"))
}

func TestValidateDateTime(t *testing.T) {
	assert.NoError(t, ValidateDateTime(""))
	assert.NoError(t, ValidateDateTime("2025-03-12"))
	assert.NoError(t, ValidateDateTime("2025-03-12 09:30"))
	assert.Error(t, ValidateDateTime("2025-03-12 25:00"))
	assert.Error(t, ValidateDateTime("12/03/2025 09:30"))
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("next_steps", strings.Repeat("é", MaxTextLength)))
	assert.Error(t, ValidateText("next_steps", strings.Repeat("x", MaxTextLength+1)))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewKVLogger(zap.New(core))

	logger.Info("Task saved", "session_id", "s-1", "count", 2, "dangling")
	logger.Error("Request failed", "error", errors.New("boom"), 42, "ignored")

	entries := logs.All()
	require.Len(t, entries, 2)

	info := entries[0].ContextMap()
	assert.Equal(t, "s-1", info["session_id"])
	assert.EqualValues(t, 2, info["count"])
	assert.Len(t, info, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Len(t, entries[1].ContextMap(), 1)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := t.TempDir() + "/logs/review.log"
	logger, err := NewFileLogger("debug", path)
	require.NoError(t, err)
	logger.Debug("hello")
	require.NoError(t, logger.Sync())
}
