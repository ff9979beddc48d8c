package zireael

// ClipStackMax is the depth of a painter's clip stack.
const ClipStackMax = 64

// Painter wraps a framebuffer with a bounded clip stack and the width
// policy in effect. Clipping affects writes only: a wide glyph straddling
// the clip edge still consumes two columns of cursor advance, but commits
// U+FFFD at the lead and touches nothing at the continuation position.
type Painter struct {
	fb       *Framebuffer
	clips    [ClipStackMax + 1]Rect // slot 0 is the full-grid base clip
	depth    int
	policy   WidthPolicy
	tabWidth int
	damage   *DamageTracker
}

// NewPainter creates a painter over fb with the full grid as the base clip.
func NewPainter(fb *Framebuffer, policy WidthPolicy, tabWidth int) *Painter {
	if tabWidth <= 0 {
		tabWidth = 4
	}
	p := &Painter{fb: fb, policy: policy, tabWidth: tabWidth}
	p.clips[0] = fb.Bounds()
	p.depth = 1
	return p
}

// SetDamage attaches a damage tracker; subsequent writes record spans.
func (p *Painter) SetDamage(d *DamageTracker) { p.damage = d }

// Framebuffer returns the wrapped framebuffer.
func (p *Painter) Framebuffer() *Framebuffer { return p.fb }

// PushClip intersects r with the current clip and pushes the result.
// Exceeding the stack depth fails with ErrLimit.
func (p *Painter) PushClip(r Rect) error {
	if p.depth > ClipStackMax {
		return ErrLimit
	}
	p.clips[p.depth] = p.clips[p.depth-1].Intersect(r)
	p.depth++
	return nil
}

// PopClip removes the innermost clip. Popping the base clip fails with
// ErrInvalidArgument.
func (p *Painter) PopClip() error {
	if p.depth <= 1 {
		return ErrInvalidArgument
	}
	p.depth--
	return nil
}

// Clip returns the active clip rect.
func (p *Painter) Clip() Rect { return p.clips[p.depth-1] }

func (p *Painter) markSpan(y, x0, x1 int) {
	if p.damage != nil {
		p.damage.AddSpan(y, x0, x1)
	}
}

// PutGrapheme commits one sanitized grapheme cluster at (x, y) and returns
// the cursor advance. Oversized, malformed, or control-bearing clusters
// collapse to U+FFFD. A wide glyph whose continuation would fall out of
// bounds or outside the clip commits U+FFFD at the lead instead; the
// advance stays 2 so text layout is clip-independent.
func (p *Painter) PutGrapheme(x, y int, cluster []byte, width int, style Style) int {
	if width <= 0 {
		return 0
	}
	if width > 2 {
		width = 2
	}
	advance := width

	clip := p.Clip()
	if y < 0 || y >= p.fb.rows || !clip.Contains(x, y) {
		return advance
	}

	bad := len(cluster) == 0 || len(cluster) > GlyphMax || hasControlOrInvalid(cluster)
	if width == 2 && (x+1 >= p.fb.cols || !clip.Contains(x+1, y)) {
		// Half the glyph cannot be committed.
		bad = true
		width = 1
	}
	if bad {
		width = 1
	}

	row := p.fb.row(y)
	p.disturb(row, x, y)
	if width == 2 {
		p.disturb(row, x+1, y)
	}

	cell := &row[x]
	cell.Style = style
	if bad {
		cell.SetReplacement()
	} else {
		cell.SetGlyph(cluster, width)
	}
	if width == 2 {
		row[x+1].SetContinuation(style)
		p.markSpan(y, x, x+1)
	} else {
		p.markSpan(y, x, x)
	}
	return advance
}

// disturb prepares (x, y) for overwriting: if it currently holds half of a
// wide pair, the surviving half cannot render and is blanked to a space.
func (p *Painter) disturb(row []Cell, x, y int) {
	switch {
	case row[x].IsContinuation():
		if x > 0 && row[x-1].IsWide() {
			row[x-1].SetSpace()
			p.markSpan(y, x-1, x-1)
		}
	case row[x].IsWide():
		if x+1 < p.fb.cols && row[x+1].IsContinuation() {
			row[x+1].SetSpace()
			p.markSpan(y, x+1, x+1)
		}
	}
}

// DrawText draws text on row y starting at column x, iterating grapheme
// boundaries. Tabs advance to the next tab stop without writing; other
// control scalars render as U+FFFD. Returns the total cursor advance.
func (p *Painter) DrawText(x, y int, text []byte, style Style) int {
	advance := 0
	it := NewGraphemeIterator(text)
	for {
		cluster, ok := it.Next()
		if !ok {
			break
		}
		if len(cluster) == 1 && cluster[0] == '\t' {
			next := ((x + advance) / p.tabWidth) * p.tabWidth
			advance = next + p.tabWidth - x
			continue
		}
		w := GraphemeWidth(cluster, p.policy)
		if w == 0 {
			// A bare combining cluster has no base to attach to here;
			// render it as replacement rather than vanishing.
			w = 1
		}
		advance += p.PutGrapheme(x+advance, y, cluster, w, style)
	}
	return advance
}

// FillRect fills the clipped rect with copies of a single glyph. A nil or
// empty glyph fills with spaces. Wide fill glyphs are rejected down to
// U+FFFD where the pair does not fit the rect edge.
func (p *Painter) FillRect(r Rect, glyph []byte, style Style) {
	if len(glyph) == 0 {
		glyph = []byte{' '}
	}
	w := GraphemeWidth(glyph, p.policy)
	if w <= 0 {
		w = 1
	}
	r = r.Intersect(p.Clip())
	if r.Empty() {
		return
	}
	// Clip writes to the rect itself so a wide pair cannot spill past it.
	saved := p.clips[p.depth-1]
	p.clips[p.depth-1] = r
	for y := r.Y0; y <= r.Y1; y++ {
		for x := r.X0; x <= r.X1; x += w {
			p.PutGrapheme(x, y, glyph, w, style)
		}
	}
	p.clips[p.depth-1] = saved
}

// HLine draws a horizontal run of the given glyph.
func (p *Painter) HLine(x, y, w int, glyph []byte, style Style) {
	p.FillRect(RectXYWH(x, y, w, 1), glyph, style)
}

// VLine draws a vertical run of the given glyph.
func (p *Painter) VLine(x, y, h int, glyph []byte, style Style) {
	p.FillRect(RectXYWH(x, y, 1, h), glyph, style)
}

// Box draws a light box-drawing frame on the rect border.
func (p *Painter) Box(r Rect, style Style) {
	if r.Width() < 2 || r.Height() < 2 {
		return
	}
	p.HLine(r.X0+1, r.Y0, r.Width()-2, []byte("─"), style)
	p.HLine(r.X0+1, r.Y1, r.Width()-2, []byte("─"), style)
	p.VLine(r.X0, r.Y0+1, r.Height()-2, []byte("│"), style)
	p.VLine(r.X1, r.Y0+1, r.Height()-2, []byte("│"), style)
	p.PutGrapheme(r.X0, r.Y0, []byte("┌"), 1, style)
	p.PutGrapheme(r.X1, r.Y0, []byte("┐"), 1, style)
	p.PutGrapheme(r.X0, r.Y1, []byte("└"), 1, style)
	p.PutGrapheme(r.X1, r.Y1, []byte("┘"), 1, style)
}

// ScrollbarV draws a vertical scrollbar in the rect: a track with a thumb
// sized and placed for a view of viewLen cells into content of totalLen.
func (p *Painter) ScrollbarV(r Rect, offset, viewLen, totalLen int, style Style) {
	h := r.Height()
	if h <= 0 || totalLen <= 0 || viewLen <= 0 {
		return
	}
	thumb := maxInt(1, h*viewLen/totalLen)
	maxOff := maxInt(1, totalLen-viewLen)
	pos := minInt(h-thumb, offset*(h-thumb)/maxOff)
	for i := 0; i < h; i++ {
		g := []byte("░")
		if i >= pos && i < pos+thumb {
			g = []byte("█")
		}
		p.PutGrapheme(r.X0, r.Y0+i, g, 1, style)
	}
}

// ScrollbarH draws a horizontal scrollbar in the rect, mirroring
// ScrollbarV.
func (p *Painter) ScrollbarH(r Rect, offset, viewLen, totalLen int, style Style) {
	w := r.Width()
	if w <= 0 || totalLen <= 0 || viewLen <= 0 {
		return
	}
	thumb := maxInt(1, w*viewLen/totalLen)
	maxOff := maxInt(1, totalLen-viewLen)
	pos := minInt(w-thumb, offset*(w-thumb)/maxOff)
	for i := 0; i < w; i++ {
		g := []byte("░")
		if i >= pos && i < pos+thumb {
			g = []byte("█")
		}
		p.PutGrapheme(r.X0+i, r.Y0, g, 1, style)
	}
}

// MarkRect records rect damage without writing cells. Used by operations
// that mutate the framebuffer below the painter (blits).
func (p *Painter) MarkRect(r Rect) {
	if p.damage != nil {
		p.damage.AddRect(r.Intersect(p.fb.Bounds()))
	}
}
