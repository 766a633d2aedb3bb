// Package player provides a simulated video player and timeline: a clock
// with play, pause and seek, a playback window, and skip segments. It
// stands in for the browser player when the editor runs headless.
package player

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/joeycumines/inline-annotator/internal/geometry"
)

// EventType classifies player notifications.
type EventType string

const (
	EventSeek       EventType = "seek"
	EventPlay       EventType = "play"
	EventPause      EventType = "pause"
	EventTimeUpdate EventType = "timeupdate"
)

// Event is one player notification.
type Event struct {
	Type EventType
	Time float64
}

// Window is the playable range in seconds, inclusive at both ends.
type Window struct {
	Start float64
	End   float64
}

// Contains reports whether t is inside w.
func (w Window) Contains(t float64) bool { return t >= w.Start && t <= w.End }

// Segment is a skipped range in seconds, [Start, End).
type Segment struct {
	Start float64
	End   float64
}

// Contains reports whether t is inside s.
func (s Segment) Contains(t float64) bool { return t >= s.Start && t < s.End }

// ParseSegments reads a comma separated list of "start-end" ranges, each
// bound being a timestamp accepted by geometry.ParseTimestamp.
func ParseSegments(s string) ([]Segment, error) {
	var out []Segment
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("invalid skip segment %q: want start-end", part)
		}
		start, err := geometry.ParseTimestamp(from)
		if err != nil {
			return nil, fmt.Errorf("invalid skip segment %q: %w", part, err)
		}
		end, err := geometry.ParseTimestamp(to)
		if err != nil {
			return nil, fmt.Errorf("invalid skip segment %q: %w", part, err)
		}
		if start < 0 || end <= start {
			return nil, fmt.Errorf("invalid skip segment %q: end must follow start", part)
		}
		out = append(out, Segment{Start: start, End: end})
	}
	return out, nil
}

// Simulated is a player driven by explicit calls. It is safe for
// concurrent use. Listeners run synchronously, outside the lock.
type Simulated struct {
	mu        sync.Mutex
	window    Window
	skips     []Segment
	now       float64
	playing   bool
	listeners map[int]func(Event)
	nextID    int
}

// NewSimulated returns a paused player at the start of window.
func NewSimulated(window Window, skips ...Segment) *Simulated {
	return &Simulated{
		window:    window,
		skips:     slices.Clone(skips),
		now:       window.Start,
		listeners: make(map[int]func(Event)),
	}
}

// Window returns the playback window.
func (p *Simulated) Window() Window { return p.window }

// CurrentTime returns the playhead in seconds.
func (p *Simulated) CurrentTime(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now, nil
}

// Playing reports whether the player is playing.
func (p *Simulated) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Seek moves the playhead, clamped to the window.
func (p *Simulated) Seek(_ context.Context, t float64) error {
	if math.IsNaN(t) {
		return fmt.Errorf("failed to seek: invalid time")
	}
	p.mu.Lock()
	p.now = math.Min(math.Max(t, p.window.Start), p.window.End)
	now := p.now
	p.mu.Unlock()
	p.emit(Event{Type: EventSeek, Time: now})
	return nil
}

// Play starts playback.
func (p *Simulated) Play(context.Context) error {
	p.mu.Lock()
	p.playing = true
	now := p.now
	p.mu.Unlock()
	p.emit(Event{Type: EventPlay, Time: now})
	return nil
}

// Pause stops playback.
func (p *Simulated) Pause(context.Context) error {
	p.mu.Lock()
	p.playing = false
	now := p.now
	p.mu.Unlock()
	p.emit(Event{Type: EventPause, Time: now})
	return nil
}

// Advance moves a playing player forward by d seconds, jumping over skip
// segments and pausing at the end of the window.
func (p *Simulated) Advance(d float64) {
	p.mu.Lock()
	if !p.playing || d <= 0 {
		p.mu.Unlock()
		return
	}
	t := p.now + d
	for _, s := range p.skips {
		if s.Contains(t) {
			t = s.End
		}
	}
	ended := t >= p.window.End
	if ended {
		t = p.window.End
		p.playing = false
	}
	p.now = t
	p.mu.Unlock()
	p.emit(Event{Type: EventTimeUpdate, Time: t})
	if ended {
		p.emit(Event{Type: EventPause, Time: t})
	}
}

// Subscribe registers fn for every event. The returned func removes it.
func (p *Simulated) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// InPlaybackWindow reports whether t may carry an interaction.
func (p *Simulated) InPlaybackWindow(t float64) bool { return p.window.Contains(t) }

// InSkipSegment reports whether t falls in a skipped range.
func (p *Simulated) InSkipSegment(t float64) bool {
	return slices.ContainsFunc(p.skips, func(s Segment) bool { return s.Contains(t) })
}

func (p *Simulated) emit(e Event) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.listeners[id])
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
