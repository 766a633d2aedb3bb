// Package render draws an editor view as text: a cell grid of the canvas,
// a header line and an item legend.
package render

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"github.com/joeycumines/inline-annotator/internal/editor"
	"github.com/joeycumines/inline-annotator/internal/item"
)

// DefaultColumns is the grid width used when none is configured.
const DefaultColumns = 64

// Options control the output.
type Options struct {
	// Columns of the canvas grid; zero means DefaultColumns.
	Columns int
	// Rows of the canvas grid; zero derives them from the canvas ratio,
	// counting a cell as twice as tall as it is wide.
	Rows int
	// Color enables styling. Without it the output is plain text.
	Color bool
	// Legend appends one line per item.
	Legend bool
}

// TerminalColumns returns the width of the terminal on fd, or fallback
// when fd is not a terminal.
func TerminalColumns(fd uintptr, fallback int) int {
	if !term.IsTerminal(int(fd)) {
		return fallback
	}
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

type styles struct {
	frame  lipgloss.Style
	header lipgloss.Style
	active lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(color bool) styles {
	s := styles{
		frame:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()),
		header: lipgloss.NewStyle(),
		active: lipgloss.NewStyle(),
		muted:  lipgloss.NewStyle(),
	}
	if color {
		s.frame = s.frame.BorderForeground(lipgloss.Color("240"))
		s.header = s.header.Bold(true)
		s.active = s.active.Foreground(lipgloss.Color("212")).Bold(true)
		s.muted = s.muted.Faint(true)
	}
	return s
}

// View renders v.
func View(v editor.View, opts Options) string {
	st := newStyles(opts.Color)
	cols, rows := gridSize(v, opts)

	parts := []string{st.header.Render(header(v))}
	if v.Hidden {
		parts = append(parts, st.muted.Render("(annotations hidden)"))
	} else {
		g := newGrid(cols, rows)
		for _, it := range v.Items {
			g.draw(v, it)
		}
		parts = append(parts, st.frame.Render(g.String()))
	}
	if v.Info != nil {
		parts = append(parts, fmt.Sprintf("x:%d y:%d z:%d w:%d h:%d", v.Info.X, v.Info.Y, v.Info.Z, v.Info.W, v.Info.H))
	}
	if opts.Legend {
		for i := len(v.Items) - 1; i >= 0; i-- {
			line := legendLine(v.Items[i])
			if v.Items[i].Active {
				line = st.active.Render(line)
			}
			parts = append(parts, line)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func gridSize(v editor.View, opts Options) (int, int) {
	cols := opts.Columns
	if cols <= 0 {
		cols = DefaultColumns
	}
	rows := opts.Rows
	if rows <= 0 && v.Canvas.Width > 0 {
		rows = int(math.Round(float64(cols) * v.Canvas.Height / v.Canvas.Width / 2))
	}
	return cols, max(rows, 1)
}

func header(v editor.View) string {
	mode := "view"
	if v.Editing {
		mode = "edit"
	}
	parts := []string{fmt.Sprintf("annotation %d", v.AnnotationID), mode, v.State.String()}
	if v.Dirty {
		parts = append(parts, "unsaved")
	}
	if len(v.Selection) > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", len(v.Selection)))
	}
	return strings.Join(parts, " · ")
}

func legendLine(it editor.ItemView) string {
	mark := " "
	if it.Active {
		mark = "*"
	}
	line := fmt.Sprintf("%s #%d %-10s z=%d", mark, it.ID, it.Type, it.Position.ZIndex)
	if it.Position.Grouped() {
		line += fmt.Sprintf(" group=%d", it.Position.Group)
	}
	f := it.Position.Frame
	line += fmt.Sprintf(" [%s %s %s %s]", f.Left, f.Top, f.Width, f.Height)
	if label := Label(it.Item); label != "" {
		line += " " + Truncate(label, 24, "…")
	}
	return line
}

// Label is the text an item shows: its label, else its type.
func Label(it item.Item) string {
	for _, key := range []string{"label", "alt", "title"} {
		if s := strings.TrimSpace(it.Properties.String(key)); s != "" {
			return strings.Join(strings.Fields(s), " ")
		}
	}
	return ""
}

// Truncate cuts s to at most width terminal cells, appending tail when it
// cut anything. Grapheme clusters are never split.
func Truncate(s string, width int, tail string) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	room := width - uniseg.StringWidth(tail)
	if room < 0 {
		return ""
	}
	var b strings.Builder
	used, state := 0, -1
	for s != "" {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if used+w > room {
			break
		}
		used += w
		b.WriteString(cluster)
	}
	return b.String() + tail
}
