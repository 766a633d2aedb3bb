package editor

import (
	"context"
	"fmt"
	"math"

	"github.com/joeycumines/inline-annotator/internal/geometry"
	"github.com/joeycumines/inline-annotator/internal/item"
)

// rect resolves the live pixel box of it. Sizes left to the content (auto
// or unset) are derived from the item type.
func (c *Controller) rect(it item.Item) geometry.Rect {
	width, ok := it.Position.Width.Resolve(c.canvas.Width)
	if !ok {
		width = c.canvas.Width * 0.3
	}
	return it.Position.Frame.Resolve(c.canvas, geometry.Size{Width: width, Height: intrinsicHeight(it, width)})
}

func intrinsicHeight(it item.Item, width float64) float64 {
	switch it.Type {
	case item.TypeHotspot:
		return width
	case item.TypeTextblock:
		line, ok := it.Position.LineHeight.Resolve(0)
		if !ok || line <= 0 {
			line = 20
		}
		return line * float64(it.TextRows())
	case item.TypeImage, item.TypeVideo:
		ratio := geometry.DefaultAspectRatio
		if v, ok := it.Properties["aspectratio"].(float64); ok && v > 0 {
			ratio = v
		}
		return width / ratio
	default:
		return 40
	}
}

// frameOf expresses r as percentages, keeping the far edges inside the
// canvas after rounding.
func (c *Controller) frameOf(r geometry.Rect) geometry.Frame {
	f := geometry.ToPercentPosition(r, c.canvas)
	if over := f.Left.Value + f.Width.Value - 100; over > 0 {
		f.Left = geometry.Percent(geometry.RoundToTwo(math.Max(0, f.Left.Value-over)))
	}
	if over := f.Top.Value + f.Height.Value - 100; over > 0 {
		f.Top = geometry.Percent(geometry.RoundToTwo(math.Max(0, f.Top.Value-over)))
	}
	return f
}

// place moves item id to the pixel box r.
func (c *Controller) place(id item.ID, r geometry.Rect) error {
	f := c.frameOf(r)
	return c.items.Update(id, item.Patch{Frame: &f})
}

// applyTextMetrics recomputes the typography of a text-bearing item from
// its rendered height.
func (c *Controller) applyTextMetrics(id item.ID) error {
	it, err := c.items.Get(id)
	if err != nil {
		return err
	}
	if !it.Type.TextBearing() {
		return nil
	}
	height := c.rect(it).Height
	if height <= 0 {
		return fmt.Errorf("item %d has no height", id)
	}
	m := geometry.DeriveTextMetrics(height, it.TextRows(), it.Type.Button())
	font := geometry.Pixels(geometry.RoundToTwo(m.FontSize))
	line := geometry.Pixels(geometry.RoundToTwo(m.LineHeight))
	return c.items.Update(id, item.Patch{FontSize: &font, LineHeight: &line})
}

// SetCanvasSize records a new canvas size, e.g. after the player resized,
// and recomputes derived text metrics. Items that cannot be measured are
// logged and skipped.
func (c *Controller) SetCanvasSize(ctx context.Context, size geometry.Size) error {
	if c.state == StateClosed {
		return ErrClosed
	}
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid canvas size %vx%v", size.Width, size.Height)
	}
	c.canvas = size
	for _, it := range c.items.Items() {
		if !it.Type.TextBearing() || it.Position.Height.Unit != geometry.UnitPercent {
			// pixel heights do not follow the canvas
			continue
		}
		if err := c.applyTextMetrics(it.ID); err != nil {
			c.logger.WarnContext(ctx, "failed to relayout item", "item", it.ID, "error", err)
		}
	}
	c.emit(Event{Type: EventChanged})
	return nil
}

// scatter picks the pixel origin of a new item, as the toolbar does, within
// the first hundred pixels of the canvas.
func (c *Controller) scatter() geometry.Point {
	return geometry.Point{
		X: math.Floor(c.rand()*math.Min(100, c.canvas.Width/2)*100) / 100,
		Y: math.Floor(c.rand()*math.Min(100, c.canvas.Height/2)*100) / 100,
	}
}
