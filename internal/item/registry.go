package item

import (
	"fmt"
	"slices"

	"github.com/joeycumines/inline-annotator/internal/geometry"
)

// Default sizes applied by Registry.Add.
var (
	defaultWidth  = geometry.Percent(30)
	buttonHeight  = geometry.Pixels(40)
	buttonWidth   = geometry.Pixels(130)
	shapeSize     = geometry.Pixels(100)
	hotspotWidth  = geometry.Percent(5)
	textFontSize  = geometry.Pixels(16)
	textLineSpace = geometry.Pixels(20)
)

// Registry is the live item list of one annotation. It is not safe for
// concurrent use.
type Registry struct {
	items  []*Item
	ids    *Sequence
	groups *Sequence
}

// NewRegistry returns an empty registry. Nil sequences default to
// clock-seeded ones.
func NewRegistry(ids, groups *Sequence) *Registry {
	if ids == nil {
		ids = NewSequence(nil)
	}
	if groups == nil {
		groups = NewSequence(nil)
	}
	return &Registry{ids: ids, groups: groups}
}

// Load replaces the list with copies of items, e.g. when hydrating from
// storage or restoring a history entry.
func (r *Registry) Load(items []Item) error {
	seen := make(map[ID]struct{}, len(items))
	next := make([]*Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return fmt.Errorf("failed to load items: %w: %d", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
		c := it.Clone()
		next = append(next, &c)
		r.ids.Observe(int64(it.ID))
		r.groups.Observe(int64(it.Position.Group))
	}
	r.items = next
	return nil
}

// Len is the number of live items.
func (r *Registry) Len() int { return len(r.items) }

// Items returns deep copies of every item in list order.
func (r *Registry) Items() []Item {
	out := make([]Item, len(r.items))
	for i, it := range r.items {
		out[i] = it.Clone()
	}
	return out
}

// Get returns a copy of the item with the given id.
func (r *Registry) Get(id ID) (Item, error) {
	it := r.find(id)
	if it == nil {
		return Item{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return it.Clone(), nil
}

// Has reports whether id is live.
func (r *Registry) Has(id ID) bool { return r.find(id) != nil }

// HasType reports whether any item has type t.
func (r *Registry) HasType(t Type) bool {
	return slices.ContainsFunc(r.items, func(it *Item) bool { return it.Type == t })
}

// GroupMembers lists the ids sharing group g in list order. Zero yields
// nothing.
func (r *Registry) GroupMembers(g GroupID) []ID {
	if g == 0 {
		return nil
	}
	var ids []ID
	for _, it := range r.items {
		if it.Position.Group == g {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// GroupInUse reports whether any item belongs to g.
func (r *Registry) GroupInUse(g GroupID) bool {
	return g != 0 && slices.ContainsFunc(r.items, func(it *Item) bool { return it.Position.Group == g })
}

// NewID allocates an item id.
func (r *Registry) NewID() ID { return ID(r.ids.Next()) }

// NewGroupID allocates a group id.
func (r *Registry) NewGroupID() GroupID { return GroupID(r.groups.Next()) }

// Add creates an item of type t at origin (pixels), applying the type's
// default size and placing it above every other item.
func (r *Registry) Add(t Type, props Properties, origin geometry.Point) (Item, error) {
	if !t.Valid() {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if t == TypeStopwatch && r.HasType(TypeStopwatch) {
		return Item{}, ErrStopwatchExists
	}
	if props == nil {
		props = Properties{}
	}
	it := &Item{
		ID:         r.NewID(),
		Type:       t,
		Position:   DefaultPosition(t, origin),
		Properties: props.Clone(),
	}
	it.Position.ZIndex = r.TopLayer() + 1
	r.items = append(r.items, it)
	return it.Clone(), nil
}

// DefaultPosition is the initial box of a new item of type t.
func DefaultPosition(t Type, origin geometry.Point) Position {
	p := Position{Frame: geometry.Frame{
		Left:  geometry.Pixels(origin.X),
		Top:   geometry.Pixels(origin.Y),
		Width: defaultWidth,
	}}
	switch {
	case t.Button():
		p.Width, p.Height = buttonWidth, buttonHeight
	case t == TypeTextblock:
		p.FontSize, p.LineHeight = textFontSize, textLineSpace
	case t == TypeShape:
		p.Width, p.Height = shapeSize, shapeSize
	case t == TypeImage || t == TypeVideo:
		p.Height = geometry.Auto()
	case t == TypeHotspot:
		p.Width = hotspotWidth
	}
	return p
}

// Insert appends a fully formed item, e.g. a copy. The id must be unused.
func (r *Registry) Insert(it Item) error {
	if !it.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, it.Type)
	}
	if r.Has(it.ID) {
		return fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
	}
	if it.Type == TypeStopwatch && r.HasType(TypeStopwatch) {
		return ErrStopwatchExists
	}
	c := it.Clone()
	if c.Properties == nil {
		c.Properties = Properties{}
	}
	r.items = append(r.items, &c)
	r.ids.Observe(int64(c.ID))
	r.groups.Observe(int64(c.Position.Group))
	return nil
}

// Patch describes changes merged by Update. Nil fields are left alone.
type Patch struct {
	Frame      *geometry.Frame
	ZIndex     *int
	Group      *GroupID
	FontSize   *geometry.Length
	LineHeight *geometry.Length
	// Properties are merged key by key. A nil value deletes the key.
	Properties Properties
	// ReplaceProperties swaps the whole bag instead of merging.
	ReplaceProperties bool
}

// Update merges patch into the item with the given id. The id and type never
// change.
func (r *Registry) Update(id ID, patch Patch) error {
	it := r.find(id)
	if it == nil {
		return fmt.Errorf("failed to update item: %w: %d", ErrNotFound, id)
	}
	if patch.Frame != nil {
		it.Position.Frame = *patch.Frame
	}
	if patch.ZIndex != nil {
		it.Position.ZIndex = *patch.ZIndex
	}
	if patch.Group != nil {
		it.Position.Group = *patch.Group
		r.groups.Observe(int64(*patch.Group))
	}
	if patch.FontSize != nil {
		it.Position.FontSize = *patch.FontSize
	}
	if patch.LineHeight != nil {
		it.Position.LineHeight = *patch.LineHeight
	}
	if patch.ReplaceProperties {
		it.Properties = patch.Properties.Clone()
		if it.Properties == nil {
			it.Properties = Properties{}
		}
	} else if len(patch.Properties) > 0 {
		if it.Properties == nil {
			it.Properties = Properties{}
		}
		for k, v := range patch.Properties.Clone() {
			if v == nil {
				delete(it.Properties, k)
				continue
			}
			it.Properties[k] = v
		}
	}
	return nil
}

// Remove deletes one item.
func (r *Registry) Remove(id ID) error {
	return r.RemoveAll([]ID{id})
}

// RemoveAll deletes every listed item. Nothing is removed unless every id
// is live.
func (r *Registry) RemoveAll(ids []ID) error {
	drop := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		if !r.Has(id) {
			return fmt.Errorf("failed to remove item: %w: %d", ErrNotFound, id)
		}
		drop[id] = struct{}{}
	}
	r.items = slices.DeleteFunc(r.items, func(it *Item) bool {
		_, ok := drop[it.ID]
		return ok
	})
	return nil
}

func (r *Registry) find(id ID) *Item {
	for _, it := range r.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}
