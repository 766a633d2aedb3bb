package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/item"
)

func snapshot(ids ...item.ID) []item.Item {
	items := make([]item.Item, len(ids))
	for i, id := range ids {
		items[i] = item.Item{ID: id, Type: item.TypeShape, Position: item.Position{ZIndex: 6 + i}, Properties: item.Properties{}}
	}
	return items
}

func decoded(t *testing.T, e Entry) []item.Item {
	t.Helper()
	items, err := e.Decode()
	require.NoError(t, err)
	return items
}

func TestSeed(t *testing.T) {
	t.Run("empty list records nothing", func(t *testing.T) {
		h := New()
		require.NoError(t, h.Seed(nil))
		assert.Zero(t, h.Len())
		assert.False(t, h.CanUndo())
	})

	t.Run("initial state is the floor", func(t *testing.T) {
		h := New()
		require.NoError(t, h.Seed(snapshot(1)))
		require.Equal(t, 1, h.Len())
		e, _ := h.Current()
		assert.Nil(t, e.Actives)
		assert.NotEmpty(t, e.ID)
		assert.False(t, h.CanUndo())
		assert.False(t, h.CanRedo())
	})
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New()
	require.NoError(t, h.Seed(snapshot(1)))
	require.NoError(t, h.Commit(snapshot(1, 2), []item.ID{2}))
	require.NoError(t, h.Commit(snapshot(1, 2, 3), []item.ID{3}))

	pre, _ := h.Current()

	e, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, snapshot(1, 2), decoded(t, e))
	assert.Equal(t, []item.ID{2}, e.Actives)
	assert.True(t, h.CanRedo())

	e, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, decoded(t, pre), decoded(t, e))
	assert.False(t, h.CanRedo())
}

func TestBoundariesAreNoOps(t *testing.T) {
	h := New()
	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)

	require.NoError(t, h.Commit(snapshot(1), nil))
	_, ok = h.Undo()
	assert.False(t, ok, "first entry is the floor")
	assert.Equal(t, 0, h.Cursor())
}

func TestCommitDiscardsRedoBranch(t *testing.T) {
	h := New()
	require.NoError(t, h.Commit(snapshot(1), nil))
	require.NoError(t, h.Commit(snapshot(1, 2), nil))
	require.NoError(t, h.Commit(snapshot(1, 2, 3), nil))
	h.Undo()
	h.Undo()

	require.NoError(t, h.Commit(snapshot(1, 4), []item.ID{4}))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.Cursor())
	assert.False(t, h.CanRedo())

	e, _ := h.Undo()
	assert.Equal(t, snapshot(1), decoded(t, e))
}

func TestMaxEntries(t *testing.T) {
	h := New(WithMaxEntries(3))
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Commit(snapshot(item.ID(i)), nil))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Cursor())

	h.Undo()
	e, _ := h.Undo()
	assert.Equal(t, snapshot(3), decoded(t, e))
	assert.False(t, h.CanUndo())
}

func TestTimestampsAreOrdered(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	h := New(WithClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Commit(snapshot(1), nil))
	}
	entries := h.Entries()
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
		assert.NotEqual(t, entries[i].ID, entries[i-1].ID)
	}
}

func TestClear(t *testing.T) {
	h := New()
	require.NoError(t, h.Commit(snapshot(1), nil))
	require.NoError(t, h.Commit(snapshot(2), nil))
	h.Clear()
	assert.Zero(t, h.Len())
	assert.False(t, h.CanUndo())
	_, ok := h.Current()
	assert.False(t, ok)

	require.NoError(t, h.Commit(snapshot(3), []item.ID{3}))
	assert.Equal(t, 0, h.Cursor())
}
