package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, closeFn, err := New(dir, false)
	require.NoError(t, err)

	logger.Infow("provisioning started", "node", "192.168.1.10")
	closeFn()

	entries, err := os.ReadDir(filepath.Join(dir, logDirName))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, logDirName, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "provisioning started")
	assert.Contains(t, string(data), "192.168.1.10")
}

func TestPrune_RemovesOldLogs(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, logDirName)
	require.NoError(t, os.MkdirAll(logDir, 0o755))

	oldLog := filepath.Join(logDir, logFilePrefix+"20200101-000000.log")
	newLog := filepath.Join(logDir, logFilePrefix+"20990101-000000.log")
	require.NoError(t, os.WriteFile(oldLog, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newLog, []byte("new"), 0o644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldLog, past, past))

	removed, err := Prune(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldLog)
	assert.FileExists(t, newLog)
}

func TestPrune_MissingDirIsNoop(t *testing.T) {
	removed, err := Prune(t.TempDir(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
