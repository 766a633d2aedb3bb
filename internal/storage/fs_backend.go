package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileSystemBackend stores one annotation as a JSON file and holds an
// exclusive lock on it while open.
type FileSystemBackend struct {
	annotationID int64
	lockFile     *os.File
	now          func() time.Time
}

// NewFileSystemBackend opens the backend for annotationID. It fails with
// ErrLocked when another process has the annotation open.
func NewFileSystemBackend(annotationID int64) (*FileSystemBackend, error) {
	if annotationID <= 0 {
		return nil, fmt.Errorf("invalid annotation id %d", annotationID)
	}
	dir, err := annotationDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create annotation directory: %w", err)
	}
	lockPath, err := annotationLockFilePath(annotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock file path: %w", err)
	}
	f, ok, err := TryLock(lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to lock annotation %d: %w", annotationID, err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to lock annotation %d: %w", annotationID, ErrLocked)
	}
	return &FileSystemBackend{annotationID: annotationID, lockFile: f, now: time.Now}, nil
}

// Load reads the record, or returns (nil, nil) when there is none.
func (b *FileSystemBackend) Load(annotationID int64) (*Record, error) {
	if err := b.check(annotationID); err != nil {
		return nil, err
	}
	return ReadRecord(annotationID)
}

// ReadRecord reads the saved record for annotationID without taking the
// lock, or returns (nil, nil) when there is none. Saves replace the file
// atomically, so a concurrent reader sees one whole revision.
func ReadRecord(annotationID int64) (*Record, error) {
	path, err := annotationFilePath(annotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation file path: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotation %d: %w", annotationID, err)
	}
	return &rec, nil
}

// Save stamps the schema version and update time, then writes rec
// atomically.
func (b *FileSystemBackend) Save(rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if err := b.check(rec.AnnotationID); err != nil {
		return err
	}
	path, err := annotationFilePath(rec.AnnotationID)
	if err != nil {
		return fmt.Errorf("failed to get annotation file path: %w", err)
	}
	rec.Version = CurrentSchemaVersion
	rec.UpdatedAt = b.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal annotation: %w", err)
	}
	if err := AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write annotation file: %w", err)
	}
	return nil
}

// Close releases the lock. It is safe to call more than once.
func (b *FileSystemBackend) Close() error {
	if b.lockFile == nil {
		return nil
	}
	err := releaseFileLock(b.lockFile)
	b.lockFile = nil
	if err != nil {
		return fmt.Errorf("failed to release annotation lock: %w", err)
	}
	return nil
}

func (b *FileSystemBackend) check(annotationID int64) error {
	if b.lockFile == nil {
		return errors.New("backend is closed")
	}
	if annotationID != b.annotationID {
		return fmt.Errorf("annotation id mismatch: backend is locked for %d, requested %d", b.annotationID, annotationID)
	}
	return nil
}

var _ Backend = (*FileSystemBackend)(nil)
