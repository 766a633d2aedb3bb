package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// InMemoryBackend keeps records in a process-wide map. Records survive
// Close, so a later backend for the same annotation sees them.
type InMemoryBackend struct {
	annotationID int64
	now          func() time.Time
}

var memoryStore = struct {
	sync.RWMutex
	records map[int64]Record
}{records: make(map[int64]Record)}

// NewInMemoryBackend returns the memory backend for annotationID.
func NewInMemoryBackend(annotationID int64) (*InMemoryBackend, error) {
	if annotationID <= 0 {
		return nil, fmt.Errorf("invalid annotation id %d", annotationID)
	}
	return &InMemoryBackend{annotationID: annotationID, now: time.Now}, nil
}

// Load returns a copy of the record, or (nil, nil).
func (b *InMemoryBackend) Load(annotationID int64) (*Record, error) {
	if annotationID != b.annotationID {
		return nil, fmt.Errorf("annotation id mismatch: backend is for %d, requested %d", b.annotationID, annotationID)
	}
	memoryStore.RLock()
	rec, ok := memoryStore.records[annotationID]
	memoryStore.RUnlock()
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Save stores a copy of rec.
func (b *InMemoryBackend) Save(rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.AnnotationID != b.annotationID {
		return fmt.Errorf("annotation id mismatch: backend is for %d, record has %d", b.annotationID, rec.AnnotationID)
	}
	rec.Version = CurrentSchemaVersion
	rec.UpdatedAt = b.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	memoryStore.Lock()
	memoryStore.records[rec.AnnotationID] = *rec
	memoryStore.Unlock()
	return nil
}

// Close is a no-op.
func (b *InMemoryBackend) Close() error { return nil }

// ClearMemory drops every in-memory record.
func ClearMemory() {
	memoryStore.Lock()
	memoryStore.records = make(map[int64]Record)
	memoryStore.Unlock()
}

var _ Backend = (*InMemoryBackend)(nil)
