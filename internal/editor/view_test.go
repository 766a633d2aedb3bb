package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/item"
)

func TestSnapshot(t *testing.T) {
	items := []item.Item{box(2, 0.005, 10, 99.6, 10, 7), box(1, 10, 10, 10, 10, 6)}

	t.Run("view mode normalizes edges", func(t *testing.T) {
		h := newHarness(t, items, func(o *Options) { o.View = true })
		v := h.c.Snapshot()
		assert.False(t, v.Editing)
		require.Len(t, v.Items, 2)
		assert.Equal(t, item.ID(1), v.Items[0].ID, "bottom layer first")
		wide := v.Items[1]
		assert.Equal(t, "0%", wide.Position.Left.String())
		assert.Equal(t, "100%", wide.Position.Width.String())
		assert.Nil(t, v.Info)
	})

	t.Run("edit mode keeps stored values", func(t *testing.T) {
		h := newHarness(t, items)
		require.NoError(t, h.c.Click(h.ctx, 1, false))
		v := h.c.Snapshot()
		assert.True(t, v.Editing)
		assert.Equal(t, "0.005%", v.Items[1].Position.Left.String())
		assert.True(t, v.Items[0].Active)
		assert.False(t, v.Items[1].Active)
		assert.Equal(t, &PositionInfo{X: 100, Y: 50, Z: 1, W: 100, H: 50}, v.Info)
		assert.True(t, v.Affordances.Edit)
		assert.False(t, v.Affordances.Group)
		assert.Equal(t, StateIdle, v.State)
	})

	t.Run("info only for a single item", func(t *testing.T) {
		h := newHarness(t, items)
		require.NoError(t, h.c.Click(h.ctx, 1, false))
		require.NoError(t, h.c.Click(h.ctx, 2, true))
		v := h.c.Snapshot()
		assert.Nil(t, v.Info)
		assert.True(t, v.Affordances.Group)
		assert.False(t, v.Affordances.Edit)
	})
}

func TestStateString(t *testing.T) {
	for _, s := range []State{StateIdle, StateDragging, StateResizing, StateEditingForm, StateKeyboardNudge, StateClosed} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, s.String(), string(text))
		assert.NotEmpty(t, s.String())
	}
}
