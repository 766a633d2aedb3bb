// Package selection tracks the active items of an editor and the group
// relation that makes items select and move as one unit.
package selection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/joeycumines/inline-annotator/internal/item"
)

// ErrTooFewToGroup rejects grouping fewer than two items.
var ErrTooFewToGroup = errors.New("at least two items are needed to group")

// Set is an ordered, duplicate free set of item ids. The zero value is an
// empty set.
type Set struct {
	ids []item.ID
}

// NewSet returns a set holding ids, in order, without duplicates.
func NewSet(ids ...item.ID) *Set {
	s := &Set{}
	s.Replace(ids)
	return s
}

// IDs returns a copy of the members in selection order.
func (s *Set) IDs() []item.ID { return slices.Clone(s.ids) }

// Len is the number of members.
func (s *Set) Len() int { return len(s.ids) }

// Empty reports whether nothing is selected.
func (s *Set) Empty() bool { return len(s.ids) == 0 }

// Contains reports membership of id.
func (s *Set) Contains(id item.ID) bool { return slices.Contains(s.ids, id) }

// Add appends ids that are not already members.
func (s *Set) Add(ids ...item.ID) {
	for _, id := range ids {
		if !s.Contains(id) {
			s.ids = append(s.ids, id)
		}
	}
}

// Remove drops ids.
func (s *Set) Remove(ids ...item.ID) {
	s.ids = slices.DeleteFunc(s.ids, func(id item.ID) bool { return slices.Contains(ids, id) })
}

// Replace sets the members to ids.
func (s *Set) Replace(ids []item.ID) {
	s.ids = nil
	s.Add(ids...)
}

// Clear empties the set.
func (s *Set) Clear() { s.ids = nil }

// Prune drops members no longer present in r.
func (s *Set) Prune(r *item.Registry) {
	s.ids = slices.DeleteFunc(s.ids, func(id item.ID) bool { return !r.Has(id) })
}

// unit is id together with every member of its group.
func unit(r *item.Registry, id item.ID) ([]item.ID, error) {
	it, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !it.Position.Grouped() {
		return []item.ID{id}, nil
	}
	members := r.GroupMembers(it.Position.Group)
	// clicked item first
	out := []item.ID{id}
	for _, m := range members {
		if m != id {
			out = append(out, m)
		}
	}
	return out, nil
}

// Click applies a click on id. A plain click selects only id and its group;
// an additive (ctrl/meta) click toggles the membership of id and its group.
func (s *Set) Click(r *item.Registry, id item.ID, additive bool) error {
	members, err := unit(r, id)
	if err != nil {
		return fmt.Errorf("failed to select: %w", err)
	}
	switch {
	case !additive:
		s.Replace(members)
	case s.Contains(id):
		s.Remove(members...)
	default:
		s.Add(members...)
	}
	return nil
}

// Expand adds the group members of every selected item.
func (s *Set) Expand(r *item.Registry) error {
	for _, id := range s.IDs() {
		members, err := unit(r, id)
		if err != nil {
			return fmt.Errorf("failed to expand selection: %w", err)
		}
		s.Add(members...)
	}
	return nil
}
