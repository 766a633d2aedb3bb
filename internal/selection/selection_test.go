package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/inline-annotator/internal/item"
)

func fixture(t *testing.T) *item.Registry {
	t.Helper()
	r := item.NewRegistry(nil, nil)
	require.NoError(t, r.Load([]item.Item{
		{ID: 1, Type: item.TypeShape, Position: item.Position{ZIndex: 6}},
		{ID: 2, Type: item.TypeShape, Position: item.Position{ZIndex: 7, Group: 50}},
		{ID: 3, Type: item.TypeShape, Position: item.Position{ZIndex: 8, Group: 50}},
		{ID: 4, Type: item.TypeImage, Position: item.Position{ZIndex: 9}},
	}))
	return r
}

func TestSetBasics(t *testing.T) {
	s := NewSet(3, 1, 3)
	assert.Equal(t, []item.ID{3, 1}, s.IDs())
	s.Add(2, 1)
	assert.Equal(t, []item.ID{3, 1, 2}, s.IDs())
	s.Remove(1)
	assert.Equal(t, []item.ID{3, 2}, s.IDs())
	assert.True(t, s.Contains(2))
	s.Clear()
	assert.True(t, s.Empty())

	var zero Set
	assert.Zero(t, zero.Len())
}

func TestClick(t *testing.T) {
	tests := []struct {
		name     string
		start    []item.ID
		id       item.ID
		additive bool
		want     []item.ID
	}{
		{"plain replaces", []item.ID{4}, 1, false, []item.ID{1}},
		{"plain expands group", nil, 3, false, []item.ID{3, 2}},
		{"additive adds", []item.ID{1}, 4, true, []item.ID{1, 4}},
		{"additive toggles off", []item.ID{1, 4}, 4, true, []item.ID{1}},
		{"additive adds group", []item.ID{1}, 2, true, []item.ID{1, 2, 3}},
		{"additive removes group", []item.ID{1, 2, 3}, 3, true, []item.ID{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fixture(t)
			s := NewSet(tt.start...)
			require.NoError(t, s.Click(r, tt.id, tt.additive))
			assert.Equal(t, tt.want, s.IDs())
		})
	}
}

func TestClickUnknown(t *testing.T) {
	s := NewSet(1)
	err := s.Click(fixture(t), 99, false)
	assert.ErrorIs(t, err, item.ErrNotFound)
	assert.Equal(t, []item.ID{1}, s.IDs())
}

func TestPruneAndExpand(t *testing.T) {
	r := fixture(t)
	s := NewSet(2, 4)
	require.NoError(t, r.Remove(4))
	s.Prune(r)
	assert.Equal(t, []item.ID{2}, s.IDs())
	require.NoError(t, s.Expand(r))
	assert.Equal(t, []item.ID{2, 3}, s.IDs())
}

func TestGroupUngroupRoundTrip(t *testing.T) {
	r := fixture(t)
	before := r.Items()

	require.NoError(t, Group(r, []item.ID{1, 4}, 77))
	got, _ := r.Get(1)
	assert.Equal(t, item.GroupID(77), got.Position.Group)
	got, _ = r.Get(4)
	assert.Equal(t, item.GroupID(77), got.Position.Group)

	changed, err := Ungroup(r, []item.ID{1, 4})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before, r.Items())
}

func TestGroupRequiresTwo(t *testing.T) {
	r := fixture(t)
	before := r.Items()
	assert.ErrorIs(t, Group(r, []item.ID{1}, 77), ErrTooFewToGroup)
	assert.ErrorIs(t, Group(r, []item.ID{1, 1}, 77), ErrTooFewToGroup)
	assert.ErrorIs(t, Group(r, []item.ID{1, 99}, 77), item.ErrNotFound)
	assert.Equal(t, before, r.Items())
}

func TestUngroupNothingGrouped(t *testing.T) {
	r := fixture(t)
	changed, err := Ungroup(r, []item.ID{1, 4})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCompute(t *testing.T) {
	r := fixture(t)
	tests := []struct {
		name string
		ids  []item.ID
		want Affordances
	}{
		{"empty", nil, Affordances{}},
		{"single", []item.ID{1}, Affordances{Edit: true, Copy: true, Delete: true, Reorder: true}},
		{"two loose", []item.ID{1, 4}, Affordances{Copy: true, Delete: true, Reorder: true, Group: true}},
		{"one whole group", []item.ID{2, 3}, Affordances{Copy: true, Delete: true, Reorder: true, Ungroup: true}},
		{"group plus loose", []item.ID{2, 3, 4}, Affordances{Copy: true, Delete: true, Reorder: true, Group: true, Ungroup: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(r, NewSet(tt.ids...)))
		})
	}
}
