package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFile writes data to dest/rel, creating parent directories. The data is
// written to a temporary file first and renamed into place, so a reader (or a
// concurrent re-run) never observes a partially written output.
func WriteFile(dest, rel string, data []byte) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", err
	}
	return target, nil
}
