package item

import (
	"cmp"
	"fmt"
	"slices"
)

// DefaultLayer is reported as both top and bottom layer of an empty list,
// so the first item lands on DefaultLayer+1.
const DefaultLayer = 5

// TopLayer is the highest z-index in items, or DefaultLayer.
func TopLayer(items []Item) int {
	if len(items) == 0 {
		return DefaultLayer
	}
	top := items[0].Position.ZIndex
	for _, it := range items[1:] {
		top = max(top, it.Position.ZIndex)
	}
	return top
}

// BottomLayer is the lowest z-index in items, or DefaultLayer.
func BottomLayer(items []Item) int {
	if len(items) == 0 {
		return DefaultLayer
	}
	bottom := items[0].Position.ZIndex
	for _, it := range items[1:] {
		bottom = min(bottom, it.Position.ZIndex)
	}
	return bottom
}

// SortByLayer sorts items in place by z-index. Equal layers order by the
// lowest id first in either direction.
func SortByLayer(items []Item, descending bool) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return compareLayer(a.Position.ZIndex, a.ID, b.Position.ZIndex, b.ID, descending)
	})
}

func compareLayer(az int, aid ID, bz int, bid ID, descending bool) int {
	c := cmp.Compare(az, bz)
	if descending {
		c = -c
	}
	if c == 0 {
		c = cmp.Compare(aid, bid)
	}
	return c
}

// TopLayer is the highest live z-index, or DefaultLayer.
func (r *Registry) TopLayer() int {
	if len(r.items) == 0 {
		return DefaultLayer
	}
	return r.stack()[0].Position.ZIndex
}

// BottomLayer is the lowest live z-index, or DefaultLayer.
func (r *Registry) BottomLayer() int {
	if len(r.items) == 0 {
		return DefaultLayer
	}
	s := r.stack()
	return s[len(s)-1].Position.ZIndex
}

// Raise moves each listed item one step up the stack. It reports whether
// anything changed.
func (r *Registry) Raise(ids []ID) (bool, error) { return r.reorder(ids, true) }

// Lower moves each listed item one step down the stack. It reports whether
// anything changed.
func (r *Registry) Lower(ids []ID) (bool, error) { return r.reorder(ids, false) }

func (r *Registry) reorder(ids []ID, up bool) (bool, error) {
	var moving []*Item
	for _, id := range ids {
		it := r.find(id)
		if it == nil {
			return false, fmt.Errorf("failed to reorder: %w: %d", ErrNotFound, id)
		}
		if !slices.Contains(moving, it) {
			moving = append(moving, it)
		}
	}
	if len(moving) == 0 {
		return false, nil
	}

	// the item nearest the destination moves first, so the set keeps its
	// relative order
	slices.SortStableFunc(moving, func(a, b *Item) int {
		return compareLayer(a.Position.ZIndex, a.ID, b.Position.ZIndex, b.ID, up)
	})

	stack := r.stack()
	if len(moving) > 1 {
		idx := make([]int, len(moving))
		for i, it := range moving {
			idx[i] = slices.Index(stack, it)
		}
		slices.Sort(idx)
		contiguous := idx[len(idx)-1]-idx[0] == len(idx)-1
		if contiguous && ((up && idx[0] == 0) || (!up && idx[len(idx)-1] == len(stack)-1)) {
			return false, nil
		}
	}

	changed := false
	for _, it := range moving {
		stack = r.stack()
		i := slices.Index(stack, it)
		j := i + 1
		if up {
			j = i - 1
		}
		if j < 0 || j >= len(stack) {
			continue
		}
		stack[i].Position.ZIndex, stack[j].Position.ZIndex = stack[j].Position.ZIndex, stack[i].Position.ZIndex
		changed = true
	}
	return changed, nil
}

// stack is the live items ordered top first.
func (r *Registry) stack() []*Item {
	s := slices.Clone(r.items)
	slices.SortStableFunc(s, func(a, b *Item) int {
		return compareLayer(a.Position.ZIndex, a.ID, b.Position.ZIndex, b.ID, true)
	})
	return s
}
