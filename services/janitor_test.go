package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitorSweep(t *testing.T) {
	docsDir, indexDir := t.TempDir(), t.TempDir()
	dirs := ScratchDirs(docsDir, indexDir)

	stale := filepath.Join(dirs[1], "acme-1234")
	fresh := filepath.Join(dirs[1], "acme-5678")
	staleUpload := filepath.Join(dirs[0], "old.tmp")
	writeFile(t, filepath.Join(stale, indexFileName), []byte("partial"))
	writeFile(t, filepath.Join(fresh, indexFileName), []byte("in progress"))
	writeFile(t, staleUpload, []byte("partial"))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(staleUpload, old, old))

	removed := NewJanitor(time.Hour, dirs...).Sweep()
	assert.Equal(t, 2, removed)
	assert.NoDirExists(t, stale)
	assert.NoFileExists(t, staleUpload)
	assert.DirExists(t, fresh)
}

func TestJanitorMissingDirs(t *testing.T) {
	j := NewJanitor(time.Hour, filepath.Join(t.TempDir(), "missing"))
	assert.Zero(t, j.Sweep())
}
