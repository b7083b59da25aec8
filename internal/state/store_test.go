package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndCurrent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Current("control_plane_initialized")
	assert.False(t, ok)

	require.NoError(t, s.Record("control_plane_initialized", "true"))

	v, ok := s.Current("control_plane_initialized")
	require.True(t, ok)
	assert.Equal(t, "true", v)
	assert.True(t, s.IsSatisfied("control_plane_initialized", "true"))
	assert.False(t, s.IsSatisfied("control_plane_initialized", "false"))
}

func TestLastWriteWins(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Record("x", "a"))
	require.NoError(t, s.Record("x", "b"))

	v, ok := s.Current("x")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Record("worker_192.168.1.11_joined", "true"))
	require.NoError(t, s.Record("worker_192.168.1.11_joined", "false"))
	require.NoError(t, s.Record("nfs_server_configured", "true"))

	// Simulate a process restart.
	reopened, err := Open(dir)
	require.NoError(t, err)

	v, ok := reopened.Current("worker_192.168.1.11_joined")
	require.True(t, ok)
	assert.Equal(t, "false", v)
	assert.True(t, reopened.IsSatisfied("nfs_server_configured", "true"))
}

func TestAppendOnlyLogRetainsHistory(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Record("x", "a"))
	require.NoError(t, s.Record("x", "b"))

	data, err := os.ReadFile(filepath.Join(dir, milestoneFile))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "\tx\ta")
	assert.Contains(t, lines[1], "\tx\tb")
}

func TestReplaySkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	log := "2026-01-01T00:00:00Z\tgood\tyes\nthis line was hand mangled\n\n2026-01-02T00:00:00Z\tgood\tno\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, milestoneFile), []byte(log), 0o644))

	s, err := Open(dir)
	require.NoError(t, err)

	v, ok := s.Current("good")
	require.True(t, ok)
	assert.Equal(t, "no", v)
	assert.Len(t, s.Snapshot(), 1)
}

func TestRecordRejectsUnsafeKeys(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Record("", "v"))
	assert.Error(t, s.Record("key\twith\ttabs", "v"))
	assert.Error(t, s.Record("key", "value\nwith newline"))
}

func TestConcurrentAppends(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := "worker_" + string(rune('a'+n)) + "_joined"
			assert.NoError(t, s.Record(key, "true"))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot(), 8)
}

func TestTokenRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteToken("K10abcdef::server:secret\n"))

	token, err := s.ReadToken()
	require.NoError(t, err)
	assert.Equal(t, "K10abcdef::server:secret", token)

	info, err := os.Stat(filepath.Join(s.Dir(), tokenFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadToken_Missing(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.ReadToken()
	assert.Error(t, err)
}

func TestWriteToken_Empty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.WriteToken("   \n"))
}

func TestWriteRunSummary(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	path, err := s.WriteRunSummary("join", map[string]string{"192.168.1.11": "Joined"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Joined")
	assert.Contains(t, filepath.Base(path), "join-")
}

func TestWriteKubeconfigPermissions(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteKubeconfig([]byte("apiVersion: v1\nkind: Config\n")))

	info, err := os.Stat(s.KubeconfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Error(t, s.WriteKubeconfig(nil))
}

func TestLock(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	lock, err := s.AcquireLock()
	require.NoError(t, err)

	_, err = s.AcquireLock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	lock.Release()

	lock2, err := s.AcquireLock()
	require.NoError(t, err)
	lock2.Release()
}
