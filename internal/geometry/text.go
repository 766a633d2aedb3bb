package geometry

// TextMetrics are the derived typography values of a text-bearing item.
type TextMetrics struct {
	FontSize   float64
	LineHeight float64
	// PaddingX applies to the left and right edges.
	PaddingX float64
	// Padding applies to every edge of multi-row blocks, and is zero
	// otherwise.
	Padding float64
}

const (
	rowPaddingRatio   = 0.3
	plainFontRatio    = 0.9
	buttonFontRatio   = 0.7
	plainPaddingRatio = 0.3
	buttonPadRatio    = 0.5
)

// DeriveTextMetrics sizes text to fill an element of the given height.
// Multi-row blocks share the height between rows, reserving 30% of each row
// height as padding.
func DeriveTextMetrics(height float64, rows int, isButton bool) TextMetrics {
	var m TextMetrics
	size := height
	if rows > 1 {
		rowHeight := height / float64(rows)
		m.Padding = rowHeight * rowPaddingRatio
		size = (height - m.Padding*2) / float64(rows)
	}
	fontRatio, padRatio := plainFontRatio, plainPaddingRatio
	if isButton {
		fontRatio, padRatio = buttonFontRatio, buttonPadRatio
	}
	m.FontSize = size * fontRatio
	m.LineHeight = size
	m.PaddingX = size * padRatio
	return m
}
