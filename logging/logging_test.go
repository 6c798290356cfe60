package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ffkit.log")

	logger, err := New(path, "info")
	require.NoError(t, err)
	logger.Debug("hidden below level")
	logger.Info("session started", zap.Int64("session_id", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), `"session_id": 3`)
	assert.NotContains(t, string(data), "hidden below level")
}

func TestNew_EmptyPathIsNop(t *testing.T) {
	logger, err := New("", "debug")
	require.NoError(t, err)
	assert.NotPanics(t, func() { logger.Info("dropped") })
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "x.log"), "loud")
	assert.Error(t, err)
}
