package zireael

// RenderStats reports which hotpath fired and the telemetry counters for
// one render. Counters are exact and deterministic.
type RenderStats struct {
	PathSweep          bool
	DirtyRows          uint32
	CellsWritten       uint32
	SpansEmitted       uint32
	CollisionGuardHits uint32
	ScrollOptAttempted uint32
	ScrollOptHit       uint32
	BytesEmitted       uint32
}

// Scratch carries the diff renderer's persistent per-row state: row hashes
// of the last presented frame. Reusing it across frames lets the renderer
// skip re-scanning unchanged rows.
type Scratch struct {
	rowHashes []uint64
	valid     bool
}

// NewScratch creates empty scratch state.
func NewScratch() *Scratch { return &Scratch{} }

func (s *Scratch) ensure(rows int) {
	if len(s.rowHashes) != rows {
		s.rowHashes = make([]uint64, rows)
		s.valid = false
	}
}

// Invalidate discards the remembered hashes (after a resize).
func (s *Scratch) Invalidate() { s.valid = false }

// RenderOptions parameterizes one diff render.
type RenderOptions struct {
	Caps PlatformCaps
	// State is the terminal-state shadow: consumed as the initial state,
	// updated in place to the final state on success only.
	State *TermState
	// Cursor is the desired end-of-frame cursor; nil leaves cursor state
	// alone.
	Cursor *CursorState
	// Scratch enables row-hash acceleration across frames; optional.
	Scratch *Scratch
	// AllowScrollOpt enables the scroll-region optimization when the
	// terminal supports DECSTBM.
	AllowScrollOpt bool
}

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

func fnvBytes(h uint64, b []byte) uint64 {
	for _, c := range b {
		h = (h ^ uint64(c)) * fnvPrime64
	}
	return h
}

func fnvU32(h uint64, v uint32) uint64 {
	h = (h ^ uint64(v&0xFF)) * fnvPrime64
	h = (h ^ uint64(v>>8&0xFF)) * fnvPrime64
	h = (h ^ uint64(v>>16&0xFF)) * fnvPrime64
	h = (h ^ uint64(v>>24&0xFF)) * fnvPrime64
	return h
}

// rowHash hashes the visual content of one row, including resolved link
// content so ref renumbering across frames cannot alias.
func rowHash(fb *Framebuffer, y int) uint64 {
	h := uint64(fnvOffset64)
	row := fb.row(y)
	for x := range row {
		c := &row[x]
		h = fnvBytes(h, c.GlyphBytes())
		h = (h ^ uint64(c.Width)) * fnvPrime64
		h = fnvU32(h, c.Style.FG)
		h = fnvU32(h, c.Style.BG)
		h = fnvU32(h, uint32(c.Style.Attrs))
		h = (h ^ uint64(c.Style.Underline)) * fnvPrime64
		h = fnvU32(h, c.Style.UnderlineRGB)
		uri, id := fb.linkContent(c.Style.Link)
		h = fnvBytes(h, []byte(uri))
		h = (h ^ 0x1F) * fnvPrime64
		h = fnvBytes(h, []byte(id))
	}
	return h
}

// renderer is the per-call state of one diff render.
type renderer struct {
	e     *emitter
	prev  *Framebuffer
	next  *Framebuffer
	caps  PlatformCaps
	stats RenderStats

	pen       TermState
	posKnown  bool
	forceAbs  bool // next SGR must be absolute
	penURI    string
	penID     string
	sgrWasAbs bool // at least one SGR emitted this frame

	// prevBlank makes every comparison run against a blank default cell
	// (after an ED2 baseline the terminal shows nothing).
	prevBlank bool
	// prevShift redirects prev-row lookups after a scroll optimization:
	// effective prev row y is prev[y+prevShift].
	prevShift int

	blank Cell
}

// RenderDiff computes the minimal VT byte stream taking the terminal from
// prev to next under the capability model, writing into out. On success it
// returns the byte count, updates opts.State to the final terminal state,
// and refreshes opts.Scratch. All failures are non-partial: no bytes are
// claimed and the state is untouched.
func RenderDiff(out []byte, prev, next *Framebuffer, opts *RenderOptions) (int, RenderStats, error) {
	var stats RenderStats
	if prev == nil || next == nil || opts == nil || opts.State == nil {
		return 0, stats, ErrInvalidArgument
	}
	if prev.cols != next.cols || prev.rows != next.rows {
		return 0, stats, ErrInvalidArgument
	}
	if cap(out) == 0 {
		return 0, stats, ErrLimit
	}

	r := &renderer{
		e:     newEmitter(out),
		prev:  prev,
		next:  next,
		caps:  opts.Caps,
		pen:   *opts.State,
		blank: NewCell(),
	}
	r.posKnown = opts.State.Valid&TermStateCursorPos != 0
	r.forceAbs = opts.State.Valid&TermStateStyle == 0
	r.penURI = opts.State.LinkURI
	r.penID = opts.State.LinkID

	r.baseline(opts)
	rowDirty, dirtyCells := r.scanRows(opts)
	if dirtyCells > 0 && opts.AllowScrollOpt && r.caps.SupportsScrollRegion &&
		!r.prevBlank && next.rows >= 2 {
		r.stats.ScrollOptAttempted++
		if r.tryScrollOpt() {
			r.stats.ScrollOptHit++
			rowDirty, dirtyCells = r.scanRows(opts)
		}
	}

	total := uint32(next.cols * next.rows)
	r.stats.PathSweep = dirtyCells*10 > total*6
	for y := 0; y < next.rows; y++ {
		if rowDirty[y] {
			r.stats.DirtyRows++
			r.emitRow(y)
		}
	}

	// Never leave a hyperlink open across frames.
	emitLinkTransition(r.e, &r.penURI, &r.penID, "", "", r.caps)

	visKnown := opts.State.Valid&TermStateCursorVis != 0
	shapeKnown := opts.State.Valid&TermStateCursorShape != 0
	if opts.Cursor != nil {
		r.applyCursor(*opts.Cursor, visKnown, shapeKnown)
		visKnown = true
		shapeKnown = shapeKnown || (opts.Cursor.Visible && r.caps.SupportsCursorShape)
	}

	if r.e.overflow {
		return 0, r.stats, ErrLimit
	}

	// Success: publish the final terminal state.
	final := r.pen
	final.LinkURI = r.penURI
	final.LinkID = r.penID
	final.Valid = TermStateScreen
	if r.posKnown {
		final.Valid |= TermStateCursorPos
	}
	if opts.State.Valid&TermStateStyle != 0 || r.sgrWasAbs {
		final.Valid |= TermStateStyle
	}
	if visKnown {
		final.Valid |= TermStateCursorVis
	}
	if shapeKnown {
		final.Valid |= TermStateCursorShape
	}
	*opts.State = final

	if opts.Scratch != nil {
		opts.Scratch.ensure(next.rows)
		for y := 0; y < next.rows; y++ {
			opts.Scratch.rowHashes[y] = rowHash(next, y)
		}
		opts.Scratch.valid = true
	}

	n := r.e.len()
	r.stats.BytesEmitted = uint32(n)
	return n, r.stats, nil
}

// baseline re-establishes any terminal state marked invalid before cell
// content is emitted.
func (r *renderer) baseline(opts *RenderOptions) {
	if opts.State.Valid&TermStateScreen == 0 {
		r.e.str("\x1b[r")
		emitSGRTransition(r.e, &r.pen.Style, Style{}, r.caps, true)
		r.sgrWasAbs = true
		r.forceAbs = false
		r.e.str("\x1b[2J")
		r.prevBlank = true
		// DECSTBM and ED2 leave the real cursor position unreliable.
		r.posKnown = false
	}
}

// effPrevCell returns the cell the terminal currently shows at (x, y).
func (r *renderer) effPrevCell(x, y int) *Cell {
	if r.prevBlank {
		return &r.blank
	}
	py := y + r.prevShift
	if py < 0 || py >= r.prev.rows {
		return &r.blank
	}
	return &r.prev.cells[py*r.prev.cols+x]
}

func (r *renderer) prevLink(c *Cell) (string, string) {
	if r.prevBlank || c == &r.blank {
		return "", ""
	}
	return r.prev.linkContent(c.Style.Link)
}

// cellEquiv compares what the terminal shows at (x, y) with the next frame,
// content-addressing hyperlinks.
func (r *renderer) cellEquiv(x, y int) bool {
	pc := r.effPrevCell(x, y)
	nc := &r.next.cells[y*r.next.cols+x]
	if !pc.Equal(nc) {
		return false
	}
	pu, pi := r.prevLink(pc)
	nu, ni := r.next.linkContent(nc.Style.Link)
	return pu == nu && pi == ni
}

// scanRows determines which rows differ and how many cells are dirty.
// When valid scratch hashes exist and no scroll shift is active, rows with
// matching hashes are confirmed by a guarded cell compare; a hash collision
// caught there bumps CollisionGuardHits.
func (r *renderer) scanRows(opts *RenderOptions) ([]bool, uint32) {
	rows := r.next.rows
	dirty := make([]bool, rows)
	cells := uint32(0)
	useHashes := opts.Scratch != nil && opts.Scratch.valid &&
		len(opts.Scratch.rowHashes) == rows && !r.prevBlank && r.prevShift == 0
	for y := 0; y < rows; y++ {
		if useHashes {
			if opts.Scratch.rowHashes[y] == rowHash(r.next, y) {
				if r.rowEquiv(y) {
					continue
				}
				r.stats.CollisionGuardHits++
			}
		} else if r.rowEquiv(y) {
			continue
		}
		dirty[y] = true
		for x := 0; x < r.next.cols; x++ {
			if !r.cellEquiv(x, y) {
				cells++
			}
		}
	}
	return dirty, cells
}

func (r *renderer) rowEquiv(y int) bool {
	for x := 0; x < r.next.cols; x++ {
		if !r.cellEquiv(x, y) {
			return false
		}
	}
	return true
}

// rowsMatch compares next row ny against prev row py directly.
func (r *renderer) rowsMatch(ny, py int) bool {
	if py < 0 || py >= r.prev.rows {
		return false
	}
	for x := 0; x < r.next.cols; x++ {
		pc := &r.prev.cells[py*r.prev.cols+x]
		nc := &r.next.cells[ny*r.next.cols+x]
		if !pc.Equal(nc) {
			return false
		}
		pu, pi := r.prev.linkContent(pc.Style.Link)
		nu, ni := r.next.linkContent(nc.Style.Link)
		if pu != nu || pi != ni {
			return false
		}
	}
	return true
}

// tryScrollOpt detects a single-line vertical shift of the whole screen and
// replaces the redraw with DECSTBM + SU/SD. At most one mismatched edge row
// is tolerated; the tail renders normally afterward.
func (r *renderer) tryScrollOpt() bool {
	rows := r.next.rows
	// Content moved up by one: next[y] matches prev[y+1].
	if r.shiftMatches(1) {
		r.e.str("\x1b[1;")
		r.e.num(rows)
		r.e.str("r\x1b[1S\x1b[r")
		r.posKnown = false
		r.prevShift = 1
		return true
	}
	// Content moved down by one: next[y] matches prev[y-1].
	if r.shiftMatches(-1) {
		r.e.str("\x1b[1;")
		r.e.num(rows)
		r.e.str("r\x1b[1T\x1b[r")
		r.posKnown = false
		r.prevShift = -1
		return true
	}
	return false
}

func (r *renderer) shiftMatches(k int) bool {
	rows := r.next.rows
	mismatches := 0
	matched := 0
	lo, hi := 0, rows-1
	if k > 0 {
		hi = rows - 1 - k
	} else {
		lo = -k
	}
	for y := lo; y <= hi; y++ {
		if r.rowsMatch(y, y+k) {
			matched++
			continue
		}
		// Tolerate one mismatched edge row only.
		if mismatches > 0 || (y != lo && y != hi) {
			return false
		}
		mismatches++
	}
	return matched >= rows-2 && matched > 0
}

// moveTo positions the pen at (x, y). The first movement after an invalid
// cursor position is always an absolute CUP, even to home.
func (r *renderer) moveTo(x, y int) {
	if r.posKnown && r.pen.CursorX == x && r.pen.CursorY == y {
		return
	}
	r.e.cup(x, y)
	r.posKnown = true
	r.pen.CursorX = x
	r.pen.CursorY = y
}

// emitRow walks one dirty row, emitting contiguous runs of differing
// cells. Runs open one column early when they would start on a wide-glyph
// continuation, and SGR/OSC-8 transitions are emitted inside the run as the
// pen crosses style or link boundaries.
func (r *renderer) emitRow(y int) {
	cols := r.next.cols
	x := 0
	for x < cols {
		if r.cellEquiv(x, y) {
			x++
			continue
		}
		start := x
		if r.next.cells[y*cols+start].IsContinuation() && start > 0 {
			start--
		}
		end := x
		for end < cols && !r.cellEquiv(end, y) {
			end++
		}
		// A run never emits a trailing lead without its continuation.
		if end < cols && r.next.cells[y*cols+end].IsContinuation() {
			end++
		}
		r.emitRun(y, start, end)
		r.stats.SpansEmitted++
		x = end
	}
}

// emitRun emits cells [start, end) on row y.
func (r *renderer) emitRun(y, start, end int) {
	r.moveTo(start, y)
	cols := r.next.cols
	for x := start; x < end; x++ {
		c := &r.next.cells[y*cols+x]
		if c.IsContinuation() {
			continue
		}
		if !c.Style.SameVisual(r.pen.Style) {
			emitSGRTransition(r.e, &r.pen.Style, c.Style, r.caps, r.forceAbs)
			r.sgrWasAbs = r.sgrWasAbs || r.forceAbs
			r.forceAbs = false
		}
		uri, id := r.next.linkContent(c.Style.Link)
		emitLinkTransition(r.e, &r.penURI, &r.penID, uri, id, r.caps)
		if c.GlyphLen == 0 {
			r.e.byte(' ')
		} else {
			r.e.bytes(c.GlyphBytes())
		}
		r.pen.CursorX += int(c.Width)
		r.stats.CellsWritten++
	}
}

// applyCursor emits visibility, position, and shape for the desired
// end-of-frame cursor.
func (r *renderer) applyCursor(want CursorState, visKnown, shapeKnown bool) {
	if !visKnown || want.Visible != r.pen.CursorVisible {
		if want.Visible {
			r.e.str("\x1b[?25h")
		} else {
			r.e.str("\x1b[?25l")
		}
	}
	r.pen.CursorVisible = want.Visible
	if want.Visible {
		r.moveTo(want.X, want.Y)
		if r.caps.SupportsCursorShape &&
			(!shapeKnown || want.Shape != r.pen.CursorShape || want.Blink != r.pen.CursorBlink) {
			r.e.str("\x1b[")
			r.e.num(decscusrParam(want.Shape, want.Blink))
			r.e.str(" q")
		}
	}
	r.pen.CursorShape = want.Shape
	r.pen.CursorBlink = want.Blink
}
