package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"docchat-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{GinMode: "release"}, &buf)

	log.Info("index built", "tenant_id", "acme", "chunks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "index built", entry["msg"])
	assert.Equal(t, "acme", entry["tenant_id"])
	assert.EqualValues(t, 3, entry["chunks"])
}

func TestLevelFor(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{GinMode: "release", LogLevel: "warn"}, &buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestHelpersWithoutLogger(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Info("no logger")
		Error("no logger")
	})
}
