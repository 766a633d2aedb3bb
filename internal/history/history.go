// Package history keeps the linear undo/redo stack of an editor: snapshots
// of the full item list together with the selection at each step.
package history

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/joeycumines/inline-annotator/internal/item"
)

// DefaultMaxEntries bounds the stack unless overridden.
const DefaultMaxEntries = 200

// Entry is one snapshot.
type Entry struct {
	ID string `json:"id"`
	// Items is the encoded item list.
	Items []byte `json:"items"`
	// Actives is nil when the step has no selection to restore.
	Actives   []item.ID `json:"actives"`
	Timestamp time.Time `json:"timestamp"`
}

// Decode returns the entry's item list.
func (e Entry) Decode() ([]item.Item, error) {
	return item.Decode(e.Items)
}

// History is a cursor over time ordered entries. It is not safe for
// concurrent use.
type History struct {
	entries    []Entry
	cursor     int
	maxEntries int
	now        func() time.Time
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries caps the number of retained entries. Values below two
// disable the cap.
func WithMaxEntries(n int) Option {
	return func(h *History) { h.maxEntries = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// New returns an empty history.
func New(opts ...Option) *History {
	h := &History{maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Seed records the state an editor opened with, with no selection. Nothing
// is recorded for an empty list.
func (h *History) Seed(items []item.Item) error {
	if len(items) == 0 {
		return nil
	}
	return h.Commit(items, nil)
}

// Commit appends a snapshot after the cursor, discarding any redo entries.
func (h *History) Commit(items []item.Item, actives []item.ID) error {
	data, err := item.Encode(items)
	if err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, Entry{
		ID:        uuid.NewString(),
		Items:     data,
		Actives:   slices.Clone(actives),
		Timestamp: h.now(),
	})
	if h.maxEntries > 1 && len(h.entries) > h.maxEntries {
		h.entries = slices.Delete(h.entries, 0, len(h.entries)-h.maxEntries)
	}
	h.cursor = len(h.entries) - 1
	return nil
}

// Undo moves the cursor back and returns the entry to restore.
func (h *History) Undo() (Entry, bool) {
	if !h.CanUndo() {
		return Entry{}, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo moves the cursor forward and returns the entry to restore.
func (h *History) Redo() (Entry, bool) {
	if !h.CanRedo() {
		return Entry{}, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// CanUndo reports whether an earlier entry exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a later entry exists.
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Clear drops every entry. The next commit becomes the undo floor.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = 0
}

// Len is the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Cursor is the index of the current entry.
func (h *History) Cursor() int { return h.cursor }

// Entries returns a copy of the stack.
func (h *History) Entries() []Entry { return slices.Clone(h.entries) }

// Current returns the entry at the cursor.
func (h *History) Current() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[h.cursor], true
}
