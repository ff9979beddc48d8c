package zireael

// Rect is an inclusive cell rectangle: (X0,Y0) through (X1,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// RectXYWH builds a rect from an origin and a width/height in cells.
// Zero or negative dimensions produce an empty rect.
func RectXYWH(x, y, w, h int) Rect {
	return Rect{X0: x, Y0: y, X1: x + w - 1, Y1: y + h - 1}
}

// Empty returns true if the rect covers no cells.
func (r Rect) Empty() bool {
	return r.X1 < r.X0 || r.Y1 < r.Y0
}

// Width returns the covered width in cells (0 for empty rects).
func (r Rect) Width() int {
	if r.Empty() {
		return 0
	}
	return r.X1 - r.X0 + 1
}

// Height returns the covered height in cells (0 for empty rects).
func (r Rect) Height() int {
	if r.Empty() {
		return 0
	}
	return r.Y1 - r.Y0 + 1
}

// Cells returns the number of cells covered.
func (r Rect) Cells() int {
	return r.Width() * r.Height()
}

// Contains returns true if (x, y) lies inside the rect.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Intersect returns the overlap of two rects. The result is empty when they
// do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: maxInt(r.X0, o.X0),
		Y0: maxInt(r.Y0, o.Y0),
		X1: minInt(r.X1, o.X1),
		Y1: minInt(r.Y1, o.Y1),
	}
	return out
}

// Union returns the smallest rect covering both rects.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X0: minInt(r.X0, o.X0),
		Y0: minInt(r.Y0, o.Y0),
		X1: maxInt(r.X1, o.X1),
		Y1: maxInt(r.Y1, o.Y1),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
