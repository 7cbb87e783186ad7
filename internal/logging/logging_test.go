package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"mindtrack/internal/config"
	"mindtrack/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logging.ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, logging.ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, logging.ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, logging.ParseLevel("chatty"))
}

func TestNew_WritesRollingFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogPath = filepath.Join(t.TempDir(), "logs", "mindtrack.log")

	logger, err := logging.New(cfg)
	require.NoError(t, err)
	logger.Info("hello", logging.Since(time.Now()))
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"duration"`)
}
