package zireael

// DamageTracker accumulates the dirty region of the frame being composed.
// Spans merge vertically when column extents line up; overflowing the rect
// storage degrades to a single full-frame rect.
type DamageTracker struct {
	rects     []Rect
	cols      int
	rows      int
	fullFrame bool
	cells     uint32
}

// BeginFrame resets the tracker over caller-provided rect storage. The
// storage capacity is the rect cap.
func (d *DamageTracker) BeginFrame(storage []Rect, cols, rows int) {
	d.rects = storage[:0]
	d.cols = cols
	d.rows = rows
	d.fullFrame = false
	d.cells = 0
}

// AddSpan records the dirty span [x0, x1] on row y. A span whose column
// extent matches the previous rect and whose row extends it by one merges
// into that rect instead of appending.
func (d *DamageTracker) AddSpan(y, x0, x1 int) {
	if d.fullFrame || x1 < x0 {
		return
	}
	x0 = maxInt(x0, 0)
	x1 = minInt(x1, d.cols-1)
	if y < 0 || y >= d.rows || x1 < x0 {
		return
	}
	d.cells += uint32(x1 - x0 + 1)
	if n := len(d.rects); n > 0 {
		last := &d.rects[n-1]
		if last.X0 == x0 && last.X1 == x1 && last.Y1 == y-1 {
			last.Y1 = y
			return
		}
		if last.Contains(x0, y) && last.Contains(x1, y) {
			return
		}
	}
	if len(d.rects) == cap(d.rects) {
		d.setFullFrame()
		return
	}
	d.rects = append(d.rects, Rect{X0: x0, Y0: y, X1: x1, Y1: y})
}

// AddRect records a dirty rectangle row by row.
func (d *DamageTracker) AddRect(r Rect) {
	for y := r.Y0; y <= r.Y1; y++ {
		d.AddSpan(y, r.X0, r.X1)
	}
}

// SetFullFrame forces full-frame damage.
func (d *DamageTracker) SetFullFrame() {
	d.setFullFrame()
}

func (d *DamageTracker) setFullFrame() {
	d.fullFrame = true
	d.rects = d.rects[:0]
	if cap(d.rects) > 0 {
		d.rects = append(d.rects, Rect{X0: 0, Y0: 0, X1: d.cols - 1, Y1: d.rows - 1})
	}
	d.cells = uint32(d.cols * d.rows)
}

// FullFrame returns true once the tracker has degraded to whole-grid
// damage.
func (d *DamageTracker) FullFrame() bool { return d.fullFrame }

// Rects returns the accumulated damage rects.
func (d *DamageTracker) Rects() []Rect { return d.rects }

// Cells returns the damage coverage in cells.
func (d *DamageTracker) Cells() uint32 { return d.cells }
