package editor

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
)

type dragStart struct {
	id    item.ID
	rect  geometry.Rect
	frame geometry.Frame
}

type dragSession struct {
	starts []dragStart
	dx, dy float64
}

// BeginDrag starts moving the selection from a press on item id. An item
// that is not yet selected is clicked first.
func (c *Controller) BeginDrag(ctx context.Context, id item.ID, additive bool) error {
	if err := c.ready(true); err != nil {
		return err
	}
	if !c.selection.Contains(id) {
		if err := c.selection.Click(c.items, id, additive); err != nil {
			return err
		}
	}
	if !c.items.Has(id) {
		return fmt.Errorf("failed to drag: %w: %d", item.ErrNotFound, id)
	}
	d := &dragSession{}
	for _, active := range c.selection.IDs() {
		it, err := c.items.Get(active)
		if err != nil {
			return fmt.Errorf("failed to drag: %w", err)
		}
		d.starts = append(d.starts, dragStart{id: it.ID, rect: c.rect(it), frame: it.Position.Frame})
	}
	c.drag = d
	c.state = StateDragging
	c.emit(Event{Type: EventChanged})
	return nil
}

// DragTo moves the dragged selection by dx, dy pixels from where the drag
// began. The selection moves rigidly and stops at the canvas edges.
func (c *Controller) DragTo(ctx context.Context, dx, dy float64) error {
	if c.state != StateDragging || c.drag == nil {
		return fmt.Errorf("%w: not dragging", ErrBusy)
	}
	rects := make([]clampCandidate, len(c.drag.starts))
	for i, s := range c.drag.starts {
		rects[i] = clampCandidate{id: s.id, rect: s.rect}
	}
	dx, dy = clampDelta(rects, dx, dy, c.canvas)
	for _, s := range c.drag.starts {
		if err := c.place(s.id, s.rect.Translate(dx, dy)); err != nil {
			return fmt.Errorf("failed to drag: %w", err)
		}
	}
	c.drag.dx, c.drag.dy = dx, dy
	c.emit(Event{Type: EventChanged})
	return nil
}

// EndDrag finishes the drag and records one history entry when the
// selection moved.
func (c *Controller) EndDrag(ctx context.Context) error {
	if c.state != StateDragging || c.drag == nil {
		return fmt.Errorf("%w: not dragging", ErrBusy)
	}
	d := c.drag
	c.drag = nil
	c.state = StateIdle
	if d.dx == 0 && d.dy == 0 {
		for _, s := range d.starts {
			frame := s.frame
			if err := c.items.Update(s.id, item.Patch{Frame: &frame}); err != nil {
				return fmt.Errorf("failed to end drag: %w", err)
			}
		}
		c.emit(Event{Type: EventChanged})
		return nil
	}
	return c.commit(ctx, c.selection.IDs())
}

// CancelDrag puts every dragged item back where the drag began.
func (c *Controller) CancelDrag(ctx context.Context) error {
	if c.state != StateDragging || c.drag == nil {
		return fmt.Errorf("%w: not dragging", ErrBusy)
	}
	for _, s := range c.drag.starts {
		frame := s.frame
		if err := c.items.Update(s.id, item.Patch{Frame: &frame}); err != nil {
			return fmt.Errorf("failed to cancel drag: %w", err)
		}
	}
	c.drag = nil
	c.state = StateIdle
	c.emit(Event{Type: EventChanged})
	return nil
}

type clampCandidate struct {
	id   item.ID
	rect geometry.Rect
}

// clampDelta corrects a drag delta so every rect stays inside the canvas.
// For each edge in turn (left, top, right, bottom) the most overflowing rect
// is pinned to that edge and the delta re-derived from its start; ties go to
// the lowest id.
func clampDelta(rects []clampCandidate, dx, dy float64, canvas geometry.Size) (float64, float64) {
	type edge struct {
		value    func(r geometry.Rect, dx, dy float64) float64
		overflow func(v float64) bool
		// mostFirst orders the more overflowing value first
		mostFirst func(a, b float64) int
		fix       func(r geometry.Rect, dx, dy *float64)
	}
	edges := []edge{
		{
			value:     func(r geometry.Rect, dx, _ float64) float64 { return r.Left + dx },
			overflow:  func(v float64) bool { return v < 0 },
			mostFirst: cmp.Compare[float64],
			fix:       func(r geometry.Rect, dx, _ *float64) { *dx = -r.Left },
		},
		{
			value:     func(r geometry.Rect, _, dy float64) float64 { return r.Top + dy },
			overflow:  func(v float64) bool { return v < 0 },
			mostFirst: cmp.Compare[float64],
			fix:       func(r geometry.Rect, _, dy *float64) { *dy = -r.Top },
		},
		{
			value:     func(r geometry.Rect, dx, _ float64) float64 { return r.Right() + dx },
			overflow:  func(v float64) bool { return v > canvas.Width },
			mostFirst: func(a, b float64) int { return cmp.Compare(b, a) },
			fix:       func(r geometry.Rect, dx, _ *float64) { *dx = canvas.Width - r.Right() },
		},
		{
			value:     func(r geometry.Rect, _, dy float64) float64 { return r.Bottom() + dy },
			overflow:  func(v float64) bool { return v > canvas.Height },
			mostFirst: func(a, b float64) int { return cmp.Compare(b, a) },
			fix:       func(r geometry.Rect, _, dy *float64) { *dy = canvas.Height - r.Bottom() },
		},
	}
	for _, e := range edges {
		var over []clampCandidate
		for _, c := range rects {
			if e.overflow(e.value(c.rect, dx, dy)) {
				over = append(over, c)
			}
		}
		if len(over) == 0 {
			continue
		}
		slices.SortFunc(over, func(a, b clampCandidate) int {
			if n := e.mostFirst(e.value(a.rect, dx, dy), e.value(b.rect, dx, dy)); n != 0 {
				return n
			}
			return cmp.Compare(a.id, b.id)
		})
		e.fix(over[0].rect, &dx, &dy)
	}
	return dx, dy
}

// Modifiers are the keys held during a gesture.
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

type resizeSession struct {
	id      item.ID
	start   geometry.Rect
	frame   geometry.Frame
	changed bool
}

// BeginResize starts resizing item id.
func (c *Controller) BeginResize(ctx context.Context, id item.ID) error {
	if err := c.ready(true); err != nil {
		return err
	}
	it, err := c.items.Get(id)
	if err != nil {
		return fmt.Errorf("failed to resize: %w", err)
	}
	c.resize = &resizeSession{id: id, start: c.rect(it), frame: it.Position.Frame}
	c.state = StateResizing
	c.emit(Event{Type: EventChanged})
	return nil
}

// ResizeTo applies a proposed pixel box to the item being resized. The box
// is kept inside the canvas; hotspots stay square, media keep their ratio
// and shapes keep their ratio while ctrl is held.
func (c *Controller) ResizeTo(ctx context.Context, r geometry.Rect, mods Modifiers) error {
	if c.state != StateResizing || c.resize == nil {
		return fmt.Errorf("%w: not resizing", ErrBusy)
	}
	it, err := c.items.Get(c.resize.id)
	if err != nil {
		return fmt.Errorf("failed to resize: %w", err)
	}
	ratio := 0.0
	switch {
	case it.Type == item.TypeHotspot:
		ratio = 1
	case it.Type == item.TypeImage || it.Type == item.TypeVideo,
		it.Type == item.TypeShape && mods.Ctrl:
		if c.resize.start.Height > 0 {
			ratio = c.resize.start.Width / c.resize.start.Height
		}
	}
	r = fitRatio(r, ratio, c.canvas)
	if err := c.place(it.ID, r); err != nil {
		return fmt.Errorf("failed to resize: %w", err)
	}
	if it.Type.TextBearing() {
		if err := c.applyTextMetrics(it.ID); err != nil {
			c.logger.WarnContext(ctx, "failed to recompute text metrics", "item", it.ID, "error", err)
		}
	}
	c.resize.changed = true
	c.emit(Event{Type: EventChanged})
	return nil
}

// fitRatio applies an optional width/height ratio, then contains r in the
// canvas without breaking the ratio.
func fitRatio(r geometry.Rect, ratio float64, canvas geometry.Size) geometry.Rect {
	if ratio > 0 {
		r.Height = r.Width / ratio
		if r.Height > canvas.Height {
			r.Height = canvas.Height
			r.Width = r.Height * ratio
		}
		if r.Width > canvas.Width {
			r.Width = canvas.Width
			r.Height = r.Width / ratio
		}
	}
	return r.Contain(canvas)
}

// EndResize finishes the resize, records it in history and selects the
// item.
func (c *Controller) EndResize(ctx context.Context) error {
	if c.state != StateResizing || c.resize == nil {
		return fmt.Errorf("%w: not resizing", ErrBusy)
	}
	rs := c.resize
	c.resize = nil
	c.state = StateIdle
	if err := c.selection.Click(c.items, rs.id, false); err != nil {
		return err
	}
	if !rs.changed {
		c.emit(Event{Type: EventChanged})
		return nil
	}
	return c.commit(ctx, []item.ID{rs.id})
}

const nudgeStep = 1.0

// Nudge moves the selection one pixel in dir. The selection moves as a
// unit by the largest step, at most one pixel, that keeps every item
// inside the canvas. It reports whether anything moved.
func (c *Controller) Nudge(ctx context.Context, dir Direction) (bool, error) {
	if err := c.ready(true); err != nil {
		return false, err
	}
	if c.selection.Empty() {
		return false, nil
	}
	c.state = StateKeyboardNudge
	defer func() { c.state = StateIdle }()

	ids := c.selection.IDs()
	rects := make([]geometry.Rect, len(ids))
	step := nudgeStep
	for i, id := range ids {
		it, err := c.items.Get(id)
		if err != nil {
			return false, fmt.Errorf("failed to nudge: %w", err)
		}
		r := c.rect(it)
		rects[i] = r
		var room float64
		switch dir {
		case DirUp:
			room = r.Top
		case DirDown:
			room = c.canvas.Height - r.Bottom()
		case DirLeft:
			room = r.Left
		case DirRight:
			room = c.canvas.Width - r.Right()
		default:
			return false, fmt.Errorf("invalid nudge direction %d", dir)
		}
		step = math.Min(step, room)
	}
	if step <= 0 {
		return false, nil
	}
	var dx, dy float64
	switch dir {
	case DirUp:
		dy = -step
	case DirDown:
		dy = step
	case DirLeft:
		dx = -step
	case DirRight:
		dx = step
	}
	for i, id := range ids {
		if err := c.place(id, rects[i].Translate(dx, dy)); err != nil {
			return false, fmt.Errorf("failed to nudge: %w", err)
		}
	}
	return true, c.commit(ctx, ids)
}

// Key is a key press on the canvas.
type Key struct {
	Name string
	Ctrl bool
	Meta bool
}

// HandleKey runs the keyboard shortcut for k: arrows nudge, Delete deletes
// and ctrl/meta+d duplicates. It reports whether the key was handled.
func (c *Controller) HandleKey(ctx context.Context, k Key) (bool, error) {
	if err := c.ready(true); err != nil {
		return false, err
	}
	if c.selection.Empty() {
		return false, nil
	}
	switch {
	case k.Name == "ArrowUp":
		_, err := c.Nudge(ctx, DirUp)
		return true, err
	case k.Name == "ArrowDown":
		_, err := c.Nudge(ctx, DirDown)
		return true, err
	case k.Name == "ArrowLeft":
		_, err := c.Nudge(ctx, DirLeft)
		return true, err
	case k.Name == "ArrowRight":
		_, err := c.Nudge(ctx, DirRight)
		return true, err
	case k.Name == "Delete":
		return true, c.Delete(ctx)
	case (k.Ctrl || k.Meta) && strings.EqualFold(k.Name, "d"):
		_, err := c.Copy(ctx)
		return true, err
	}
	return false, nil
}
