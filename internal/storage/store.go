package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/inline-annotator/internal/editor"
)

// Store persists one annotation's items through a Backend. It implements
// editor.Saver.
type Store struct {
	mu           sync.Mutex
	backend      Backend
	annotationID int64
}

// NewStore returns a store for annotationID on backend.
func NewStore(backend Backend, annotationID int64) *Store {
	return &Store{backend: backend, annotationID: annotationID}
}

// Load returns the saved record. An annotation that was never saved yields
// a record with empty content and revision zero.
func (s *Store) Load(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.backend.Load(s.annotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load annotation %d: %w", s.annotationID, err)
	}
	if rec == nil {
		rec = &Record{AnnotationID: s.annotationID}
	}
	return rec, nil
}

// Save writes the request content as the next revision.
func (s *Store) Save(ctx context.Context, req editor.SaveRequest) (*editor.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.AnnotationID != s.annotationID {
		return nil, fmt.Errorf("annotation id mismatch: store is for %d, request has %d", s.annotationID, req.AnnotationID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.backend.Load(s.annotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load annotation %d: %w", s.annotationID, err)
	}
	if rec == nil {
		rec = &Record{AnnotationID: s.annotationID}
	}
	rec.Content = req.Items
	if req.DraftAssetID != 0 {
		rec.DraftAssetID = req.DraftAssetID
	}
	rec.Revision++
	if err := s.backend.Save(rec); err != nil {
		return nil, fmt.Errorf("failed to save annotation %d: %w", s.annotationID, err)
	}
	return &editor.SaveResult{
		AnnotationID: rec.AnnotationID,
		Items:        rec.Content,
		DraftAssetID: rec.DraftAssetID,
		Revision:     rec.Revision,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

var _ editor.Saver = (*Store)(nil)
