package selection

import (
	"fmt"

	"github.com/joeycumines/inline-annotator/internal/item"
)

// Group assigns g to every listed item. At least two distinct ids are
// required, otherwise nothing changes.
func Group(r *item.Registry, ids []item.ID, g item.GroupID) error {
	distinct := NewSet(ids...)
	if distinct.Len() < 2 {
		return ErrTooFewToGroup
	}
	for _, id := range distinct.ids {
		if !r.Has(id) {
			return fmt.Errorf("failed to group: %w: %d", item.ErrNotFound, id)
		}
	}
	for _, id := range distinct.ids {
		if err := r.Update(id, item.Patch{Group: &g}); err != nil {
			return fmt.Errorf("failed to group: %w", err)
		}
	}
	return nil
}

// Ungroup clears the group of every listed item. It reports whether any
// item was grouped.
func Ungroup(r *item.Registry, ids []item.ID) (bool, error) {
	for _, id := range ids {
		if !r.Has(id) {
			return false, fmt.Errorf("failed to ungroup: %w: %d", item.ErrNotFound, id)
		}
	}
	var none item.GroupID
	changed := false
	for _, id := range ids {
		it, _ := r.Get(id)
		if !it.Position.Grouped() {
			continue
		}
		if err := r.Update(id, item.Patch{Group: &none}); err != nil {
			return changed, fmt.Errorf("failed to ungroup: %w", err)
		}
		changed = true
	}
	return changed, nil
}

// Affordances says which toolbar commands apply to a selection.
type Affordances struct {
	Edit    bool `json:"edit"`
	Copy    bool `json:"copy"`
	Delete  bool `json:"delete"`
	Reorder bool `json:"reorder"`
	Group   bool `json:"group"`
	Ungroup bool `json:"ungroup"`
}

// Compute derives the affordances of s over r.
func Compute(r *item.Registry, s *Set) Affordances {
	a := Affordances{
		Edit:    s.Len() == 1,
		Copy:    !s.Empty(),
		Delete:  !s.Empty(),
		Reorder: !s.Empty(),
	}
	groups := map[item.GroupID]struct{}{}
	ungrouped := false
	for _, id := range s.ids {
		it, err := r.Get(id)
		if err != nil {
			continue
		}
		if it.Position.Grouped() {
			groups[it.Position.Group] = struct{}{}
			a.Ungroup = true
		} else {
			ungrouped = true
		}
	}
	a.Group = s.Len() >= 2 && (ungrouped || len(groups) > 1)
	return a
}
