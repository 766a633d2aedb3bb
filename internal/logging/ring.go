package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Entry is one record kept by a RingHandler.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

type ring struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// RingHandler keeps the most recent records in memory.
type RingHandler struct {
	ring   *ring
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewRingHandler keeps up to size records at level and above. A size of
// zero or less keeps 1000.
func NewRingHandler(size int, level slog.Leveler) *RingHandler {
	if size <= 0 {
		size = 1000
	}
	if level == nil {
		level = slog.LevelDebug
	}
	return &RingHandler{ring: &ring{entries: make([]Entry, size)}, level: level}
}

func (h *RingHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Time: r.Time, Level: r.Level, Message: r.Message}
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		e.Attrs = make(map[string]string, len(h.attrs)+r.NumAttrs())
		prefix := strings.Join(h.groups, ".")
		for _, a := range h.attrs {
			flatten(e.Attrs, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			flatten(e.Attrs, prefix, a)
			return true
		})
	}

	h.ring.mu.Lock()
	h.ring.entries[h.ring.next] = e
	h.ring.next = (h.ring.next + 1) % len(h.ring.entries)
	if h.ring.next == 0 {
		h.ring.full = true
	}
	h.ring.mu.Unlock()
	return nil
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			flatten(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.String()
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	prefix := strings.Join(h.groups, ".")
	c.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(slices.Clone(h.groups), name)
	return &c
}

// Entries returns the kept records, oldest first.
func (h *RingHandler) Entries() []Entry {
	return h.Recent(0)
}

// Recent returns the last n records, oldest first; n <= 0 means all.
func (h *RingHandler) Recent(n int) []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	var all []Entry
	if h.ring.full {
		all = append(all, h.ring.entries[h.ring.next:]...)
	}
	all = append(all, h.ring.entries[:h.ring.next]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// Search returns records whose message or attributes contain query, case
// insensitively.
func (h *RingHandler) Search(query string) []Entry {
	query = strings.ToLower(query)
	var out []Entry
	for _, e := range h.Entries() {
		if strings.Contains(strings.ToLower(e.Message), query) {
			out = append(out, e)
			continue
		}
		for k, v := range e.Attrs {
			if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
