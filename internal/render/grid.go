package render

import (
	"math"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/item"
)

// cell holds one grapheme cluster. The trailing cell of a wide cluster is
// empty and skipped on output.
type cell struct {
	text string
	cont bool
}

type grid struct {
	cols, rows int
	cells      [][]cell
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows, cells: make([][]cell, rows)}
	for y := range g.cells {
		g.cells[y] = make([]cell, cols)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{text: " "}
		}
	}
	return g
}

type boxChars struct {
	tl, tr, bl, br, h, v string
}

var (
	plainBox  = boxChars{"┌", "┐", "└", "┘", "─", "│"}
	activeBox = boxChars{"╔", "╗", "╚", "╝", "═", "║"}
)

// glyphs mark items too small for a box.
var glyphs = map[item.Type]string{
	item.TypeHotspot:    "◎",
	item.TypeStopwatch:  "◷",
	item.TypeNavigation: "⏵",
	item.TypeFile:       "🗎",
	item.TypeAudio:      "♪",
	item.TypeImage:      "▣",
	item.TypeVideo:      "▶",
	item.TypeShape:      "■",
	item.TypeTextblock:  "¶",
}

func (g *grid) set(x, y int, s string) {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return
	}
	g.clearWide(x, y)
	g.cells[y][x] = cell{text: s}
}

// clearWide breaks up a wide cluster that x, y is part of.
func (g *grid) clearWide(x, y int) {
	if g.cells[y][x].cont && x > 0 {
		g.cells[y][x-1] = cell{text: " "}
	}
	if x+1 < g.cols && g.cells[y][x+1].cont {
		g.cells[y][x+1] = cell{text: " "}
	}
}

// text writes s from x, y, stopping before column limit.
func (g *grid) text(x, y, limit int, s string) {
	state := -1
	for s != "" && x < limit {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if w == 0 {
			continue
		}
		if x+w > limit {
			break
		}
		g.set(x, y, cluster)
		for i := 1; i < w; i++ {
			if next := x + i + 1; next < g.cols && g.cells[y][next].cont {
				g.cells[y][next] = cell{text: " "}
			}
			g.cells[y][x+i] = cell{cont: true}
		}
		x += w
	}
}

// draw paints one item, later calls painting over earlier ones.
func (g *grid) draw(v editor.View, it editor.ItemView) {
	if v.Canvas.Width <= 0 || v.Canvas.Height <= 0 {
		return
	}
	sx := float64(g.cols) / v.Canvas.Width
	sy := float64(g.rows) / v.Canvas.Height
	x0 := int(math.Floor(it.Rect.Left * sx))
	y0 := int(math.Floor(it.Rect.Top * sy))
	x1 := max(int(math.Ceil(it.Rect.Right()*sx))-1, x0)
	y1 := max(int(math.Ceil(it.Rect.Bottom()*sy))-1, y0)
	x1, y1 = min(x1, g.cols-1), min(y1, g.rows-1)

	if x1-x0 < 1 || y1-y0 < 1 {
		glyph := glyphs[it.Type]
		if glyph == "" {
			glyph = "?"
		}
		g.text(x0, y0, g.cols, glyph)
		return
	}

	b := plainBox
	if it.Active {
		b = activeBox
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			switch {
			case y == y0 && x == x0:
				g.set(x, y, b.tl)
			case y == y0 && x == x1:
				g.set(x, y, b.tr)
			case y == y1 && x == x0:
				g.set(x, y, b.bl)
			case y == y1 && x == x1:
				g.set(x, y, b.br)
			case y == y0 || y == y1:
				g.set(x, y, b.h)
			case x == x0 || x == x1:
				g.set(x, y, b.v)
			default:
				g.set(x, y, " ")
			}
		}
	}

	label := Label(it.Item)
	if label == "" {
		label = string(it.Type)
	}
	row := y0 + 1
	if y1-y0 < 2 {
		// two-row boxes carry the label in the top edge
		row = y0
	}
	g.text(x0+1, row, x1, Truncate(label, x1-x0-1, "…"))
}

func (g *grid) String() string {
	var b strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			if !c.cont {
				b.WriteString(c.text)
			}
		}
	}
	return b.String()
}
