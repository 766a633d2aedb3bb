package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// beforeRename runs between writing the temp file and renaming it; tests
// use it to simulate a crash.
var beforeRename func()

// RenameError is returned when the final rename fails. The temp file is
// removed, TempPath reports where it was.
type RenameError struct {
	Err      error
	tempPath string
}

func (e RenameError) Error() string    { return fmt.Sprintf("failed to rename %s: %v", e.tempPath, e.Err) }
func (e RenameError) TempPath() string { return e.tempPath }
func (e RenameError) Unwrap() error    { return e.Err }

// AtomicWriteFile writes data to a temp file next to filename, syncs it and
// renames it over filename, so readers see either the old or the new file.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-annotation-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("failed to remove temp file", "path", tmpPath, "error", rmErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if beforeRename != nil {
		beforeRename()
	}

	rename := os.Rename
	if runtime.GOOS == "windows" {
		rename = atomicRenameWindows
	}
	if err := rename(tmpPath, filename); err != nil {
		return RenameError{Err: err, tempPath: tmpPath}
	}
	return nil
}
