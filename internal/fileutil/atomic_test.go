package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "events.yaml")

	require.NoError(t, WriteAtomic(path, []byte("first"), 0o600, ".events-*.tmp"))
	require.NoError(t, WriteAtomic(path, []byte("second"), 0o600, ".events-*.tmp"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteAtomicEmptyPath(t *testing.T) {
	assert.Error(t, WriteAtomic("", []byte("x"), 0o600, "*.tmp"))
}
