package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
)

var canvas = geometry.Size{Width: 1000, Height: 500}

type fakeSaver struct {
	mu       sync.Mutex
	requests []SaveRequest
	err      error
}

func (s *fakeSaver) Save(_ context.Context, req SaveRequest) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &SaveResult{
		AnnotationID: req.AnnotationID,
		Items:        req.Items,
		DraftAssetID: req.DraftAssetID,
		Revision:     int64(len(s.requests)),
		UpdatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type fakeConfirmer struct {
	choice Choice
	err    error
	asked  int
}

func (f *fakeConfirmer) Confirm(context.Context, string, string) (Choice, error) {
	f.asked++
	return f.choice, f.err
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	c       *Controller
	forms   *QueuedForms
	saver   *fakeSaver
	notes   *notify.Recorder
	player  *player.Simulated
	confirm *fakeConfirmer
	events  []Event
}

func zero() int64 { return 0 }

func newHarness(t *testing.T, items []item.Item, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		forms:   &QueuedForms{},
		saver:   &fakeSaver{},
		notes:   &notify.Recorder{},
		player:  player.NewSimulated(player.Window{Start: 5, End: 60}, player.Segment{Start: 20, End: 30}),
		confirm: &fakeConfirmer{choice: ChoiceDiscard},
	}
	opts := Options{
		Annotation: Annotation{ID: 42, Timestamp: 12, DraftAssetID: 7},
		Canvas:     canvas,
		Forms:      h.forms,
		Saver:      h.saver,
		Player:     h.player,
		Notifier:   h.notes,
		Confirmer:  h.confirm,
		IDs:        item.NewSequence(zero),
		Groups:     item.NewSequence(zero),
		Rand:       func() float64 { return 0.5 },
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	stored, err := item.EncodeForStorage(items)
	require.NoError(t, err)
	require.NoError(t, c.Open(h.ctx, stored))
	c.OnEvent(func(e Event) { h.events = append(h.events, e) })
	h.c = c
	return h
}

// box is a shape at percentage coordinates.
func box(id item.ID, left, top, width, height float64, z int) item.Item {
	return item.Item{
		ID:   id,
		Type: item.TypeShape,
		Position: item.Position{
			Frame: geometry.Frame{
				Left:   geometry.Percent(left),
				Top:    geometry.Percent(top),
				Width:  geometry.Percent(width),
				Height: geometry.Percent(height),
			},
			ZIndex: z,
		},
		Properties: item.Properties{},
	}
}

func grouped(it item.Item, g item.GroupID) item.Item {
	it.Position.Group = g
	return it
}

func (h *harness) get(id item.ID) item.Item {
	h.t.Helper()
	for _, it := range h.c.Items() {
		if it.ID == id {
			return it
		}
	}
	h.t.Fatalf("item %d not found", id)
	return item.Item{}
}

func (h *harness) keys() []notify.Key {
	var out []notify.Key
	for _, n := range h.notes.All() {
		out = append(out, n.Key)
	}
	return out
}

func (h *harness) eventTypes() []EventType {
	var out []EventType
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

var errBoom = errors.New("boom")
