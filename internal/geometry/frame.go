package geometry

import "math"

// Size is a width and height in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Point is a pixel coordinate.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned pixel box.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Right is the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom is the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Translate returns r moved by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// Contain returns r clamped into a container of the given size. The rect is
// shifted back inside first and only shrunk if it is larger than the
// container. Sizes below one pixel are raised to one pixel.
func (r Rect) Contain(container Size) Rect {
	r.Width = math.Max(1, math.Min(r.Width, container.Width))
	r.Height = math.Max(1, math.Min(r.Height, container.Height))
	r.Left = math.Max(0, math.Min(r.Left, container.Width-r.Width))
	r.Top = math.Max(0, math.Min(r.Top, container.Height-r.Height))
	return r
}

// Frame is an item box as stored on the model: each side may be a
// percentage, pixel, auto or unset length.
type Frame struct {
	Left   Length
	Top    Length
	Width  Length
	Height Length
}

// Resolve converts f into pixels inside container. Auto or unset sizes fall
// back to the supplied intrinsic size.
func (f Frame) Resolve(container Size, intrinsic Size) Rect {
	var r Rect
	r.Left, _ = f.Left.Resolve(container.Width)
	r.Top, _ = f.Top.Resolve(container.Height)
	var ok bool
	if r.Width, ok = f.Width.Resolve(container.Width); !ok {
		r.Width = intrinsic.Width
	}
	if r.Height, ok = f.Height.Resolve(container.Height); !ok {
		r.Height = intrinsic.Height
	}
	return r
}

// ToPercentPosition expresses a pixel box as percentages of container,
// rounded to two decimals. Negative left and top offsets become zero.
func ToPercentPosition(r Rect, container Size) Frame {
	pct := func(v, extent float64) Length {
		if extent <= 0 {
			return Percent(0)
		}
		return Percent(RoundToTwo(v / extent * 100))
	}
	return Frame{
		Left:   pct(math.Max(0, r.Left), container.Width),
		Top:    pct(math.Max(0, r.Top), container.Height),
		Width:  pct(r.Width, container.Width),
		Height: pct(r.Height, container.Height),
	}
}

const (
	snapLowThreshold  = 0.01
	snapHighThreshold = 99.5
)

// ClampNearBoundary hides sub-pixel seams for display: percentage offsets
// below 0.01% become 0% and percentage sizes above 99.5% become 100%.
// While editing the frame is returned as is.
func ClampNearBoundary(f Frame, editing bool) Frame {
	if editing {
		return f
	}
	low := func(l Length) Length {
		if l.Unit == UnitPercent && l.Value < snapLowThreshold {
			return Percent(0)
		}
		return l
	}
	high := func(l Length) Length {
		if l.Unit == UnitPercent && l.Value > snapHighThreshold {
			return Percent(100)
		}
		return l
	}
	return Frame{
		Left:   low(f.Left),
		Top:    low(f.Top),
		Width:  high(f.Width),
		Height: high(f.Height),
	}
}

// DefaultAspectRatio is the canvas ratio used by the player.
const DefaultAspectRatio = 16.0 / 9.0

// FitAspect letterboxes a canvas of the given ratio inside container,
// centring it on the free axis.
func FitAspect(container Size, ratio float64) Rect {
	if ratio <= 0 || container.Width <= 0 || container.Height <= 0 {
		return Rect{Width: math.Max(0, container.Width), Height: math.Max(0, container.Height)}
	}
	w, h := container.Width, container.Width/ratio
	if h > container.Height {
		h = container.Height
		w = h * ratio
	}
	return Rect{
		Left:   (container.Width - w) / 2,
		Top:    (container.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}
