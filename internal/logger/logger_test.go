package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodorderpro/food-bot/internal/config"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(config.LogConfig{Level: "warn", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("Order event dropped")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Order event dropped")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
