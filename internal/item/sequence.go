package item

import (
	"sync"
	"time"
)

// Sequence hands out strictly increasing int64 values seeded from a clock,
// so values stay ordered by creation even when the clock stalls.
type Sequence struct {
	mu    sync.Mutex
	clock func() int64
	last  int64
}

// NewSequence returns a sequence driven by clock. A nil clock uses the
// current unix time in milliseconds.
func NewSequence(clock func() int64) *Sequence {
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &Sequence{clock: clock}
}

// Next returns a value greater than every value returned or observed before.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.clock()
	if v <= s.last {
		v = s.last + 1
	}
	s.last = v
	return v
}

// Observe raises the floor so later values exceed v.
func (s *Sequence) Observe(v int64) {
	s.mu.Lock()
	if v > s.last {
		s.last = v
	}
	s.mu.Unlock()
}
