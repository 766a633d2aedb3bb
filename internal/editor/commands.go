package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
	"github.com/joeycumines/inline-annotator/internal/notify"
	"github.com/joeycumines/inline-annotator/internal/selection"
)

// Add opens the form for a new item of type t and places the submitted item
// on the canvas, above everything else, as the only selected item. A nil
// origin scatters the item near the top left corner.
func (c *Controller) Add(ctx context.Context, t item.Type, origin *geometry.Point) (item.Item, error) {
	if err := c.ready(true); err != nil {
		return item.Item{}, err
	}
	if !t.Valid() {
		return item.Item{}, fmt.Errorf("%w: %q", item.ErrUnknownType, t)
	}
	if t == item.TypeStopwatch && c.items.HasType(item.TypeStopwatch) {
		c.notify(ctx, notify.LevelDanger, notify.KeyStopwatchExists)
		return item.Item{}, item.ErrStopwatchExists
	}

	props, err := c.openForm(ctx, FormRequest{
		Kind:         t.FormKind(),
		Type:         t,
		AnnotationID: c.annotation.ID,
		Initial:      Defaults(t),
	})
	if err != nil {
		return item.Item{}, err
	}
	props = c.reviewTimestamp(ctx, t, props, "")

	at := c.scatter()
	if origin != nil {
		at = *origin
	}
	it, err := c.items.Add(t, props, at)
	if err != nil {
		if errors.Is(err, item.ErrStopwatchExists) {
			c.notify(ctx, notify.LevelDanger, notify.KeyStopwatchExists)
		}
		return item.Item{}, fmt.Errorf("failed to add item: %w", err)
	}
	if r := c.rect(it); r != r.Contain(c.canvas) {
		// keep the new item inside, in the units it was created with
		contained := r.Contain(c.canvas)
		frame := it.Position.Frame
		frame.Left, frame.Top = geometry.Pixels(contained.Left), geometry.Pixels(contained.Top)
		if err := c.items.Update(it.ID, item.Patch{Frame: &frame}); err != nil {
			return item.Item{}, err
		}
	}
	c.selection.Replace([]item.ID{it.ID})
	if err := c.commit(ctx, []item.ID{it.ID}); err != nil {
		return item.Item{}, err
	}
	c.logger.InfoContext(ctx, "item added", "item", it.ID, "type", string(t))
	return c.items.Get(it.ID)
}

// Edit opens the form pre-filled from the selected item and replaces its
// properties with the submission. The id and type are kept.
func (c *Controller) Edit(ctx context.Context) (item.Item, error) {
	if err := c.ready(true); err != nil {
		return item.Item{}, err
	}
	if c.selection.Len() != 1 {
		return item.Item{}, ErrSingleSelection
	}
	it, err := c.items.Get(c.selection.IDs()[0])
	if err != nil {
		return item.Item{}, fmt.Errorf("failed to edit item: %w", err)
	}
	props, err := c.openForm(ctx, FormRequest{
		Kind:         it.Type.FormKind(),
		Type:         it.Type,
		AnnotationID: c.annotation.ID,
		ItemID:       it.ID,
		Initial:      it.Properties.Clone(),
	})
	if err != nil {
		return item.Item{}, err
	}
	props = c.reviewTimestamp(ctx, it.Type, props, it.Properties.String("timestamp"))

	patch := item.Patch{Properties: props, ReplaceProperties: true}
	if it.Type == item.TypeImage || it.Type == item.TypeVideo {
		frame := it.Position.Frame
		frame.Height = geometry.Auto()
		patch.Frame = &frame
	}
	if err := c.items.Update(it.ID, patch); err != nil {
		return item.Item{}, fmt.Errorf("failed to edit item: %w", err)
	}
	if err := c.commit(ctx, []item.ID{it.ID}); err != nil {
		return item.Item{}, err
	}
	c.logger.InfoContext(ctx, "item edited", "item", it.ID)
	return c.items.Get(it.ID)
}

func (c *Controller) openForm(ctx context.Context, req FormRequest) (item.Properties, error) {
	if c.forms == nil {
		return nil, fmt.Errorf("failed to open %s form: no form provider", req.Kind)
	}
	c.state = StateEditingForm
	defer func() {
		if c.state == StateEditingForm {
			c.state = StateIdle
		}
	}()
	props, err := c.forms.Open(ctx, req)
	switch {
	case errors.Is(err, ErrFormCancelled):
		return nil, err
	case err != nil:
		c.notify(ctx, notify.LevelDanger, notify.KeyFormFailed, err.Error())
		return nil, fmt.Errorf("failed to open %s form: %w", req.Kind, err)
	}
	if c.state == StateClosed {
		return nil, ErrClosed
	}
	if props == nil {
		props = item.Properties{}
	}
	return props, nil
}

// Click applies a click on an item: plain clicks select the item (with its
// group), additive clicks toggle it.
func (c *Controller) Click(ctx context.Context, id item.ID, additive bool) error {
	if err := c.ready(true); err != nil {
		return err
	}
	if err := c.selection.Click(c.items, id, additive); err != nil {
		return err
	}
	c.emit(Event{Type: EventChanged})
	return nil
}

// ClickCanvas handles a click on empty canvas, which clears the selection.
func (c *Controller) ClickCanvas(ctx context.Context) error {
	if err := c.ready(true); err != nil {
		return err
	}
	c.selection.Clear()
	c.emit(Event{Type: EventChanged})
	return nil
}

func (c *Controller) requireSelection() ([]item.ID, error) {
	if err := c.ready(true); err != nil {
		return nil, err
	}
	if c.selection.Empty() {
		return nil, ErrNoSelection
	}
	return c.selection.IDs(), nil
}

// Copy duplicates every selected item above the current top layer. The
// copies become the selection. Copies of grouped items share a new group.
func (c *Controller) Copy(ctx context.Context) ([]item.ID, error) {
	ids, err := c.requireSelection()
	if err != nil {
		return nil, err
	}
	var sources []item.Item
	for _, id := range ids {
		it, err := c.items.Get(id)
		if err != nil {
			return nil, fmt.Errorf("failed to copy: %w", err)
		}
		if it.Type == item.TypeStopwatch {
			c.notify(ctx, notify.LevelDanger, notify.KeyStopwatchExists)
			continue
		}
		sources = append(sources, it)
	}
	if len(sources) == 0 {
		return nil, item.ErrStopwatchExists
	}
	item.SortByLayer(sources, false)

	top := c.items.TopLayer()
	groups := make(map[item.GroupID]item.GroupID)
	used := make(map[item.GroupID]bool)
	copies := make([]item.ID, 0, len(sources))
	for i, src := range sources {
		dup := src.Clone()
		dup.ID = c.items.NewID()
		dup.Position.Frame = c.frameOf(c.rect(src))
		dup.Position.ZIndex = top + i + 1
		if src.Position.Grouped() {
			g, ok := groups[src.Position.Group]
			if !ok {
				g = src.Position.Group + 1
				if c.items.GroupInUse(g) || used[g] {
					g = c.items.NewGroupID()
				}
				groups[src.Position.Group] = g
				used[g] = true
			}
			dup.Position.Group = g
		}
		if err := c.items.Insert(dup); err != nil {
			return nil, fmt.Errorf("failed to copy: %w", err)
		}
		copies = append(copies, dup.ID)
	}
	c.selection.Replace(copies)
	if err := c.commit(ctx, copies); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "items copied", "sources", len(sources))
	return copies, nil
}

// Delete removes every selected item and clears the selection.
func (c *Controller) Delete(ctx context.Context) error {
	ids, err := c.requireSelection()
	if err != nil {
		return err
	}
	if err := c.items.RemoveAll(ids); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	c.selection.Clear()
	if err := c.commit(ctx, nil); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "items deleted", "items", ids)
	return nil
}

// Direction is a stacking or nudge direction.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// Reorder moves the selection one layer up or down. It reports whether the
// stacking changed; unchanged stacks commit nothing.
func (c *Controller) Reorder(ctx context.Context, dir Direction) (bool, error) {
	ids, err := c.requireSelection()
	if err != nil {
		return false, err
	}
	var changed bool
	switch dir {
	case DirUp:
		changed, err = c.items.Raise(ids)
	case DirDown:
		changed, err = c.items.Lower(ids)
	default:
		return false, fmt.Errorf("invalid reorder direction %d", dir)
	}
	if err != nil || !changed {
		return false, err
	}
	return true, c.commit(ctx, ids)
}

// Group links the selected items under a new group id.
func (c *Controller) Group(ctx context.Context) (item.GroupID, error) {
	ids, err := c.requireSelection()
	if err != nil {
		return 0, err
	}
	if len(ids) < 2 {
		c.notify(ctx, notify.LevelWarning, notify.KeyGroupTooSmall)
		return 0, selection.ErrTooFewToGroup
	}
	g := c.items.NewGroupID()
	if err := selection.Group(c.items, ids, g); err != nil {
		return 0, err
	}
	return g, c.commit(ctx, ids)
}

// Ungroup removes the group of every selected item. Nothing is committed
// when no selected item was grouped.
func (c *Controller) Ungroup(ctx context.Context) (bool, error) {
	ids, err := c.requireSelection()
	if err != nil {
		return false, err
	}
	changed, err := selection.Ungroup(c.items, ids)
	if err != nil || !changed {
		return false, err
	}
	return true, c.commit(ctx, ids)
}

// Undo restores the previous history entry. It reports whether anything
// was restored.
func (c *Controller) Undo(ctx context.Context) (bool, error) {
	if err := c.ready(true); err != nil {
		return false, err
	}
	e, ok := c.history.Undo()
	if !ok {
		return false, nil
	}
	return true, c.restore(ctx, e.Items, e.Actives)
}

// Redo restores the next history entry. It reports whether anything was
// restored.
func (c *Controller) Redo(ctx context.Context) (bool, error) {
	if err := c.ready(true); err != nil {
		return false, err
	}
	e, ok := c.history.Redo()
	if !ok {
		return false, nil
	}
	return true, c.restore(ctx, e.Items, e.Actives)
}

func (c *Controller) restore(ctx context.Context, data []byte, actives []item.ID) error {
	items, err := item.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to restore history: %w", err)
	}
	if err := c.items.Load(items); err != nil {
		return fmt.Errorf("failed to restore history: %w", err)
	}
	c.selection.Replace(actives)
	c.selection.Prune(c.items)
	c.revision++
	if bytes.Equal(data, c.savedItems) {
		c.savedRevision = c.revision
	}
	c.logger.DebugContext(ctx, "history restored", "cursor", c.history.Cursor(), "dirty", c.Dirty())
	c.emit(Event{Type: EventChanged})
	return nil
}

// ToggleVisibility hides or shows the canvas without changing the model.
func (c *Controller) ToggleVisibility() bool {
	c.hidden = !c.hidden
	c.emit(Event{Type: EventChanged})
	return !c.hidden
}
