package zireael

// GlyphMax is the storage capacity for one grapheme cluster in a cell.
// Clusters that do not fit collapse to U+FFFD.
const GlyphMax = 32

// replacementGlyph is the UTF-8 encoding of U+FFFD.
var replacementGlyph = [3]byte{0xEF, 0xBF, 0xBD}

// Cell stores one grapheme cluster and its style for a single grid position.
// Wide glyphs (2 columns) occupy a lead cell followed by a continuation cell
// with GlyphLen 0 and Width 0.
type Cell struct {
	Glyph    [GlyphMax]byte
	GlyphLen uint8
	Width    uint8
	Style    Style
}

// NewCell creates a cell holding a single space with the zero style.
func NewCell() Cell {
	var c Cell
	c.Glyph[0] = ' '
	c.GlyphLen = 1
	c.Width = 1
	return c
}

// GlyphBytes returns the stored grapheme cluster. Continuation cells return
// an empty slice.
func (c *Cell) GlyphBytes() []byte {
	return c.Glyph[:c.GlyphLen]
}

// SetGlyph stores a grapheme cluster and its display width. The caller must
// have sanitized the bytes; oversized clusters collapse to U+FFFD here as a
// backstop.
func (c *Cell) SetGlyph(b []byte, width int) {
	if len(b) > GlyphMax {
		c.SetReplacement()
		return
	}
	copy(c.Glyph[:], b)
	c.GlyphLen = uint8(len(b))
	c.Width = uint8(width)
}

// SetReplacement stores U+FFFD with width 1, keeping the style.
func (c *Cell) SetReplacement() {
	copy(c.Glyph[:], replacementGlyph[:])
	c.GlyphLen = 3
	c.Width = 1
}

// SetContinuation marks the cell as the trailing half of a wide glyph.
func (c *Cell) SetContinuation(style Style) {
	c.GlyphLen = 0
	c.Width = 0
	c.Style = style
}

// SetSpace resets the glyph to a single space with width 1, keeping style.
func (c *Cell) SetSpace() {
	c.Glyph[0] = ' '
	c.GlyphLen = 1
	c.Width = 1
}

// Reset restores the cell to a space with the given style.
func (c *Cell) Reset(style Style) {
	*c = NewCell()
	c.Style = style
}

// IsContinuation returns true if this is the trailing half of a wide glyph.
func (c *Cell) IsContinuation() bool {
	return c.Width == 0
}

// IsWide returns true if this cell is the lead of a 2-column glyph.
func (c *Cell) IsWide() bool {
	return c.Width == 2
}

// IsBlank returns true if the cell shows a plain space.
func (c *Cell) IsBlank() bool {
	return c.GlyphLen == 1 && c.Glyph[0] == ' ' && c.Width == 1
}

// Equal reports whether two cells render identically, ignoring link refs
// (those are compared by content at the framebuffer level).
func (c *Cell) Equal(o *Cell) bool {
	if c.GlyphLen != o.GlyphLen || c.Width != o.Width {
		return false
	}
	if !c.Style.SameVisual(o.Style) {
		return false
	}
	for i := uint8(0); i < c.GlyphLen; i++ {
		if c.Glyph[i] != o.Glyph[i] {
			return false
		}
	}
	return true
}
