package zireael

// Framebuffer dimension limits. Resize past these fails with ErrLimit and
// no partial effects.
const (
	FBMaxDim   = 8192
	FBMaxCells = 1 << 22
)

// Framebuffer is a contiguous row-major grid of cells plus the interned
// hyperlink table its cells reference. Two invariants hold at all times,
// whether cells are written by the executor, a scroll, or a blit: a Width=2
// lead at x is followed by a Width=0 continuation at x+1, and every
// continuation has a lead at x-1.
type Framebuffer struct {
	cols  int
	rows  int
	cells []Cell
	links linkTable
}

// NewFramebuffer creates a framebuffer of the given dimensions filled with
// blank cells in the zero style.
func NewFramebuffer(cols, rows int) (*Framebuffer, error) {
	if cols <= 0 || rows <= 0 {
		return nil, ErrInvalidArgument
	}
	if cols > FBMaxDim || rows > FBMaxDim || cols*rows > FBMaxCells {
		return nil, ErrLimit
	}
	fb := &Framebuffer{cols: cols, rows: rows, cells: make([]Cell, cols*rows)}
	blank := NewCell()
	for i := range fb.cells {
		fb.cells[i] = blank
	}
	return fb, nil
}

// Cols returns the grid width in columns.
func (fb *Framebuffer) Cols() int { return fb.cols }

// Rows returns the grid height in rows.
func (fb *Framebuffer) Rows() int { return fb.rows }

// Bounds returns the full-grid rect.
func (fb *Framebuffer) Bounds() Rect {
	return Rect{X0: 0, Y0: 0, X1: fb.cols - 1, Y1: fb.rows - 1}
}

// Cell returns a pointer to the cell at (x, y), or nil if out of bounds.
func (fb *Framebuffer) Cell(x, y int) *Cell {
	if x < 0 || x >= fb.cols || y < 0 || y >= fb.rows {
		return nil
	}
	return &fb.cells[y*fb.cols+x]
}

// CellAt returns a copy of the cell at (x, y). Out-of-bounds coordinates
// return a blank cell.
func (fb *Framebuffer) CellAt(x, y int) Cell {
	if c := fb.Cell(x, y); c != nil {
		return *c
	}
	return NewCell()
}

func (fb *Framebuffer) row(y int) []Cell {
	return fb.cells[y*fb.cols : (y+1)*fb.cols]
}

// Clear resets every cell to a space in the given style and empties the
// link table.
func (fb *Framebuffer) Clear(style Style) {
	blank := NewCell()
	blank.Style = style
	blank.Style.Link = 0
	for i := range fb.cells {
		fb.cells[i] = blank
	}
	fb.links.entries = fb.links.entries[:0]
}

// Resize changes the grid dimensions, preserving content at the top-left.
// Shrinking drops bottom/right content; growing adds blank cells. A wide
// glyph cut at the new right edge collapses to U+FFFD. Absurd dimensions
// fail with ErrLimit and no partial effects.
func (fb *Framebuffer) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return ErrInvalidArgument
	}
	if cols > FBMaxDim || rows > FBMaxDim || cols*rows > FBMaxCells {
		return ErrLimit
	}
	if cols == fb.cols && rows == fb.rows {
		return nil
	}
	next := make([]Cell, cols*rows)
	blank := NewCell()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if x < fb.cols && y < fb.rows {
				next[y*cols+x] = fb.cells[y*fb.cols+x]
			} else {
				next[y*cols+x] = blank
			}
		}
	}
	fb.cells = next
	fb.cols = cols
	fb.rows = rows
	for y := 0; y < rows; y++ {
		fb.repairRowSeams(y, 0, cols-1)
	}
	fb.compactLinks()
	return nil
}

// repairRowSeams restores the wide-glyph invariants on row y for the span
// [x0, x1] and its immediate neighbors: cut leads collapse to U+FFFD and
// orphaned continuations become spaces.
func (fb *Framebuffer) repairRowSeams(y, x0, x1 int) {
	row := fb.row(y)
	// A lead just left of the span lost its continuation.
	if x0 > 0 && row[x0-1].IsWide() && !row[x0].IsContinuation() {
		row[x0-1].SetReplacement()
	}
	// A continuation at the left edge of the span has no lead inside it.
	if row[x0].IsContinuation() && (x0 == 0 || !row[x0-1].IsWide()) {
		row[x0].SetSpace()
	}
	// A lead at the right edge of the span has no continuation.
	if row[x1].IsWide() && (x1+1 >= fb.cols || !row[x1+1].IsContinuation()) {
		row[x1].SetReplacement()
	}
	// A continuation just right of the span lost its lead.
	if x1+1 < fb.cols && row[x1+1].IsContinuation() && !row[x1].IsWide() {
		row[x1+1].SetSpace()
	}
}

// BlitRect copies srcRect from src into dst at (dstX, dstY) with memmove
// semantics: overlapping same-framebuffer copies behave as if the source
// block were read in full before any write. Wide-glyph pairs cut at the
// destination seams collapse to U+FFFD, and link refs are re-interned into
// dst when the framebuffers differ.
func BlitRect(dst *Framebuffer, dstX, dstY int, src *Framebuffer, srcRect Rect) error {
	if dst == nil || src == nil {
		return ErrInvalidArgument
	}
	srcRect = srcRect.Intersect(src.Bounds())
	if srcRect.Empty() {
		return ErrInvalidArgument
	}
	// Clip the destination placement, shifting the source to match.
	if dstX < 0 {
		srcRect.X0 -= dstX
		dstX = 0
	}
	if dstY < 0 {
		srcRect.Y0 -= dstY
		dstY = 0
	}
	if over := dstX + srcRect.Width() - dst.cols; over > 0 {
		srcRect.X1 -= over
	}
	if over := dstY + srcRect.Height() - dst.rows; over > 0 {
		srcRect.Y1 -= over
	}
	if srcRect.Empty() {
		return nil
	}
	w := srcRect.Width()
	h := srcRect.Height()

	backward := dst == src && dstY > srcRect.Y0
	for i := 0; i < h; i++ {
		rowIdx := i
		if backward {
			rowIdx = h - 1 - i
		}
		sy := srcRect.Y0 + rowIdx
		dy := dstY + rowIdx
		// copy is memmove-safe for same-row overlap.
		copy(dst.row(dy)[dstX:dstX+w], src.row(sy)[srcRect.X0:srcRect.X0+w])
	}

	if dst != src {
		for dy := dstY; dy < dstY+h; dy++ {
			row := dst.row(dy)
			for dx := dstX; dx < dstX+w; dx++ {
				ref := row[dx].Style.Link
				if ref == 0 {
					continue
				}
				uri, id := src.linkContent(ref)
				if uri == "" && id == "" {
					row[dx].Style.Link = 0
					continue
				}
				newRef, err := dst.LinkIntern(uri, id)
				if err != nil {
					return err
				}
				row[dx].Style.Link = newRef
			}
		}
	}

	for dy := dstY; dy < dstY+h; dy++ {
		dst.repairRowSeams(dy, dstX, dstX+w-1)
	}
	return nil
}

// ScrollUp shifts rows up by n within [top, bottom), clearing the vacated
// bottom rows to the given style.
func (fb *Framebuffer) ScrollUp(top, bottom, n int, style Style) {
	if n <= 0 || top >= bottom {
		return
	}
	top = maxInt(top, 0)
	bottom = minInt(bottom, fb.rows)
	n = minInt(n, bottom-top)
	if bottom-top-n > 0 {
		r := Rect{X0: 0, Y0: top + n, X1: fb.cols - 1, Y1: bottom - 1}
		_ = BlitRect(fb, 0, top, fb, r)
	}
	blank := NewCell()
	blank.Style = style
	for y := bottom - n; y < bottom; y++ {
		row := fb.row(y)
		for x := range row {
			row[x] = blank
		}
	}
}

// ScrollDown shifts rows down by n within [top, bottom), clearing the
// vacated top rows to the given style.
func (fb *Framebuffer) ScrollDown(top, bottom, n int, style Style) {
	if n <= 0 || top >= bottom {
		return
	}
	top = maxInt(top, 0)
	bottom = minInt(bottom, fb.rows)
	n = minInt(n, bottom-top)
	if bottom-top-n > 0 {
		r := Rect{X0: 0, Y0: top, X1: fb.cols - 1, Y1: bottom - 1 - n}
		_ = BlitRect(fb, 0, top+n, fb, r)
	}
	blank := NewCell()
	blank.Style = style
	for y := top; y < top+n; y++ {
		row := fb.row(y)
		for x := range row {
			row[x] = blank
		}
	}
}

// CopyFrom copies the cells of rect r from src, then clones src's link
// table wholesale so refs stay resolvable. Used by the engine to resync the
// previous frame from the next one via damage rects only.
func (fb *Framebuffer) CopyFrom(src *Framebuffer, r Rect) {
	if fb.cols != src.cols || fb.rows != src.rows {
		return
	}
	r = r.Intersect(fb.Bounds())
	if r.Empty() {
		return
	}
	for y := r.Y0; y <= r.Y1; y++ {
		copy(fb.row(y)[r.X0:r.X1+1], src.row(y)[r.X0:r.X1+1])
	}
	fb.links = src.links.clone()
}

// checkInvariants validates the wide-glyph invariants, returning the first
// violating position. The tests assert on this after mutating passes.
func (fb *Framebuffer) checkInvariants() (x, y int, ok bool) {
	for y := 0; y < fb.rows; y++ {
		row := fb.row(y)
		for x := 0; x < fb.cols; x++ {
			if row[x].IsWide() {
				if x+1 >= fb.cols || !row[x+1].IsContinuation() {
					return x, y, false
				}
			}
			if row[x].IsContinuation() {
				if x == 0 || !row[x-1].IsWide() {
					return x, y, false
				}
			}
		}
	}
	return 0, 0, true
}
