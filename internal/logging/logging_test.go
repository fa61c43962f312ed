package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, Options{Format: "text"})).Info("scan", "step", "review")
	assert.Contains(t, buf.String(), "step=review")

	buf.Reset()
	slog.New(newHandler(&buf, Options{})).Info("scan", "step", "review")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "review", rec["step"])

	h := newHandler(&buf, Options{Level: "warn"})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "cardsnap.log")
	logger, cleanup, err := New(Options{Level: "info", LogFile: path})
	require.NoError(t, err)

	logger.Info("contact saved", "contact_id", "c1")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contact_id":"c1"`)
	assert.Contains(t, string(data), `"app":"cardsnap"`)
}

func TestNewBadLogFile(t *testing.T) {
	_, _, err := New(Options{LogFile: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
