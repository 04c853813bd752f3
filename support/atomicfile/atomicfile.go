// Package atomicfile writes files so that readers observe either the old or the new content.
package atomicfile

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

// Write replaces the file at path with data by writing a temporary sibling and renaming it.
func Write(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmpFile := path + ".tmp"
	file, err := os.OpenFile(tmpFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", tmpFile, err)
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return xerrors.Errorf("failed to write %s: %w", tmpFile, err)
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return xerrors.Errorf("failed to sync %s: %w", tmpFile, err)
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return xerrors.Errorf("failed to close %s: %w", tmpFile, err)
	}

	return os.Rename(tmpFile, path)
}
