package editor

import (
	"math"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/selection"
)

// ItemView is an item as the canvas draws it.
type ItemView struct {
	item.Item
	// Rect is the live pixel box.
	Rect   geometry.Rect `json:"rect"`
	Active bool          `json:"active"`
}

// PositionInfo is the toolbar readout for a single selected item, in
// rounded pixels. Z counts from the first layer above the empty-canvas
// default.
type PositionInfo struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
	W int `json:"w"`
	H int `json:"h"`
}

// View is a read-only picture of the controller for rendering.
type View struct {
	AnnotationID int64                 `json:"annotationId"`
	Editing      bool                  `json:"editing"`
	Hidden       bool                  `json:"hidden"`
	State        State                 `json:"state"`
	Dirty        bool                  `json:"dirty"`
	Canvas       geometry.Size         `json:"canvas"`
	Items        []ItemView            `json:"items"`
	Selection    []item.ID             `json:"selection"`
	Affordances  selection.Affordances `json:"affordances"`
	CanUndo      bool                  `json:"canUndo"`
	CanRedo      bool                  `json:"canRedo"`
	Info         *PositionInfo         `json:"info,omitempty"`
}

// Snapshot returns the current view, items ordered bottom layer first. Out
// of edit mode, positions get the display normalization of
// geometry.ClampNearBoundary.
func (c *Controller) Snapshot() View {
	items := c.items.Items()
	item.SortByLayer(items, false)
	v := View{
		AnnotationID: c.annotation.ID,
		Editing:      c.editing,
		Hidden:       c.hidden,
		State:        c.state,
		Dirty:        c.Dirty(),
		Canvas:       c.canvas,
		Items:        make([]ItemView, 0, len(items)),
		Selection:    c.selection.IDs(),
		Affordances:  selection.Compute(c.items, c.selection),
		CanUndo:      c.history.CanUndo(),
		CanRedo:      c.history.CanRedo(),
	}
	for _, it := range items {
		r := c.rect(it)
		it.Position.Frame = geometry.ClampNearBoundary(it.Position.Frame, c.editing)
		v.Items = append(v.Items, ItemView{Item: it, Rect: r, Active: c.selection.Contains(it.ID)})
	}
	if c.selection.Len() == 1 {
		if it, err := c.items.Get(c.selection.IDs()[0]); err == nil {
			r := c.rect(it)
			v.Info = &PositionInfo{
				X: int(math.Round(math.Max(0, r.Left))),
				Y: int(math.Round(math.Max(0, r.Top))),
				Z: it.Position.ZIndex - item.DefaultLayer,
				W: int(math.Round(r.Width)),
				H: int(math.Round(r.Height)),
			}
		}
	}
	return v
}
