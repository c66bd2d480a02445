// Package fileutil holds small file helpers shared by config and the event store.
package fileutil

import (
	"errors"
	"os"
	"path/filepath"
)

// WriteAtomic replaces path with data so that readers observe either the old
// or the new content, never a partial write.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes to a temp file in the same directory (pattern as for os.CreateTemp).
//   - Syncs, sets perm, then renames over path.
func WriteAtomic(path string, data []byte, perm os.FileMode, pattern string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error. After a successful rename
	// the name no longer exists and Remove is a no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
