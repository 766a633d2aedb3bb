package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/player"
	"github.com/joeycumines/inline-annotator/internal/storage"
)

type fixture struct {
	s      *Session
	forms  *editor.QueuedForms
	store  *storage.Store
	player *player.Simulated
}

func start(t *testing.T, stored string) *fixture {
	t.Helper()
	t.Cleanup(storage.ClearMemory)
	backend, err := storage.NewInMemoryBackend(1)
	require.NoError(t, err)
	f := &fixture{
		forms:  &editor.QueuedForms{},
		store:  storage.NewStore(backend, 1),
		player: player.NewSimulated(player.Window{Start: 0, End: 100}),
	}
	s, err := Start(t.Context(), Options{
		Editor: editor.Options{
			Annotation: editor.Annotation{ID: 1, Timestamp: 10},
			Canvas:     geometry.Size{Width: 800, Height: 450},
			Forms:      f.forms,
			Saver:      f.store,
			Player:     f.player,
			Notifier:   &notify.Recorder{},
		},
		Stored: stored,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	f.s = s
	return f
}

func TestSessionDoAndView(t *testing.T) {
	f := start(t, `[{"id":1,"type":"shape","position":{"left":"10%","top":"10%","width":"10%","height":"10%","z-index":6},"properties":{}}]`)
	ctx := t.Context()

	v, err := f.s.View(ctx)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.False(t, v.Dirty)

	err = f.s.Do(ctx, func(c *editor.Controller) error {
		_, err := c.Add(ctx, item.TypeShape, nil)
		return err
	})
	require.NoError(t, err)

	v, err = f.s.View(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Items, 2)
	assert.True(t, v.Dirty)
	assert.True(t, v.CanUndo)
}

func TestSessionSave(t *testing.T) {
	f := start(t, "")
	ctx := t.Context()

	var events []editor.EventType
	var mu sync.Mutex
	cancel, err := f.s.Subscribe(ctx, func(e editor.Event) {
		mu.Lock()
		events = append(events, e.Type)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, f.s.Do(ctx, func(c *editor.Controller) error {
		_, err := c.Add(ctx, item.TypeHotspot, nil)
		return err
	}))

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.s.Save(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	rec, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Revision)
	assert.Contains(t, rec.Content, `"hotspot"`)

	v, err := f.s.View(ctx)
	require.NoError(t, err)
	assert.False(t, v.Dirty)
	assert.False(t, v.CanUndo)

	mu.Lock()
	assert.Contains(t, events, editor.EventAnnotationUpdated)
	mu.Unlock()
}

func TestSessionPlayerEvents(t *testing.T) {
	f := start(t, "")
	ctx := t.Context()

	// seeks are delivered through the loop, ahead of later tasks
	require.NoError(t, f.player.Seek(ctx, 50))
	v, err := f.s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, editor.StateClosed, v.State)
}

func TestSessionClose(t *testing.T) {
	f := start(t, "")
	ctx := t.Context()

	require.NoError(t, f.s.Close(ctx))
	select {
	case <-f.s.Done():
	default:
		t.Fatal("loop still running after Close")
	}
	err := f.s.Do(ctx, func(*editor.Controller) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, f.s.Shutdown(ctx))
}

func TestSessionCloseRefusedWhileDirty(t *testing.T) {
	f := start(t, "")
	ctx := t.Context()
	require.NoError(t, f.s.Do(ctx, func(c *editor.Controller) error {
		_, err := c.Add(ctx, item.TypeShape, nil)
		return err
	}))
	assert.ErrorIs(t, f.s.Close(ctx), editor.ErrUnsavedChanges)

	v, err := f.s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, editor.StateIdle, v.State)
}

func TestSessionWithoutSaver(t *testing.T) {
	s, err := Start(t.Context(), Options{Editor: editor.Options{Canvas: geometry.Size{Width: 10, Height: 10}}})
	require.NoError(t, err)
	defer s.Shutdown(context.Background())
	assert.ErrorIs(t, s.Save(t.Context()), editor.ErrNoSaver)
}

func TestStartRejectsBadContent(t *testing.T) {
	_, err := Start(t.Context(), Options{
		Editor: editor.Options{Canvas: geometry.Size{Width: 10, Height: 10}},
		Stored: "{",
	})
	assert.Error(t, err)
}
