package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesFormattedEntries(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, slog.LevelInfo)
	defer func() { _ = l.Close() }()

	l.Info("processor", "created task")
	l.Error("checker", "sweep failed")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "habitask.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] [processor] created task")
	assert.Contains(t, string(data), "[ERROR] [checker] sweep failed")
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, slog.LevelWarn)
	defer func() { _ = l.Close() }()

	l.Debug("processor", "noise")
	l.Info("processor", "noise")
	l.Warn("processor", "signal")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "habitask.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "noise")
	assert.Contains(t, string(data), "[WARN] [processor] signal")
}

func TestLogger_EmptyDataDirDisables(t *testing.T) {
	l := New("", slog.LevelDebug)
	// Must not create files or panic.
	l.Info("processor", "dropped")
	assert.NoError(t, l.Close())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFormatLog(t *testing.T) {
	ts := time.Date(2026, 8, 29, 9, 32, 51, 0, time.UTC)
	entry := formatLog(ts, slog.LevelInfo, "creator", "hello")
	assert.Equal(t, "[2026-08-29 09:32:51] [INFO] [creator] hello\n", entry)
}
