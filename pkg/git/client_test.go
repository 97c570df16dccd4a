package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, ".studywise/git.lock", nil)

	unlock, err := client.Lock()
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, ".studywise", "git.lock")
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	unlock()

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_LockTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	client.LockTimeout = 30 * time.Millisecond

	unlock, err := client.Lock()
	require.NoError(t, err)
	defer unlock()

	_, err = client.Lock()
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestClient_InitAndCommit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	require.NoError(t, client.Init())
	assert.True(t, client.IsRepo())

	_, _ = client.Run("config", "user.email", "test@example.com")
	_, _ = client.Run("config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.md"), []byte("hi"), 0644))
	require.NoError(t, client.Add("a.md"))
	require.NoError(t, client.Commit("docs: add a"))

	// Nothing staged: no error.
	require.NoError(t, client.Commit("empty"))

	status, err := client.Status()
	require.NoError(t, err)
	assert.Empty(t, status)

	assert.False(t, client.HasRemote())
	assert.Error(t, client.Sync())
}
