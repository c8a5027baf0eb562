package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//writeFile replaces the file atomically via a temp file and rename
func writeFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "Can't create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "Can't create temp file for %s", path)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "Can't write %s", tmpPath)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "Can't chmod %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "Can't sync %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "Can't close %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "Can't rename to %s", path)
	}
	return nil
}

//readFile returns nil data if the file does not exist
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read %s", path)
	}
	return b, nil
}
