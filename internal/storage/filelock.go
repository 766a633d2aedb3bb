package storage

import (
	"errors"
	"os"
)

// ErrWouldBlock reports that another process holds the lock.
var ErrWouldBlock = errors.New("file lock would block")

// ErrLocked is returned when an annotation is already open elsewhere.
var ErrLocked = errors.New("annotation is open in another process")

// TryLock takes the exclusive lock at path without blocking. It reports
// false, with a nil error, when another process holds it. Release the lock
// with Unlock.
func TryLock(path string) (*os.File, bool, error) {
	f, err := acquireFileLock(path)
	if errors.Is(err, ErrWouldBlock) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// Unlock releases a lock taken with TryLock and removes the lock file.
func Unlock(f *os.File) error { return releaseFileLock(f) }
