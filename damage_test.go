package zireael

import "testing"

func TestDamageCoalescesVertically(t *testing.T) {
	var d DamageTracker
	d.BeginFrame(make([]Rect, 0, 8), 80, 24)

	d.AddSpan(3, 2, 10)
	d.AddSpan(4, 2, 10)
	rects := d.Rects()
	if len(rects) != 1 {
		t.Fatalf("got %d rects, want 1", len(rects))
	}
	if rects[0] != (Rect{X0: 2, Y0: 3, X1: 10, Y1: 4}) {
		t.Errorf("rect = %+v", rects[0])
	}
	if d.Cells() != 18 {
		t.Errorf("cells = %d, want 18", d.Cells())
	}
}

func TestDamageNoCoalesceOnDifferentSpans(t *testing.T) {
	var d DamageTracker
	d.BeginFrame(make([]Rect, 0, 8), 80, 24)

	d.AddSpan(3, 2, 10)
	d.AddSpan(4, 3, 10) // different x0: no merge
	if len(d.Rects()) != 2 {
		t.Errorf("got %d rects, want 2", len(d.Rects()))
	}
}

func TestDamageOverflowDegradesToFullFrame(t *testing.T) {
	var d DamageTracker
	d.BeginFrame(make([]Rect, 0, 2), 80, 24)

	d.AddSpan(0, 0, 0)
	d.AddSpan(2, 0, 0)
	d.AddSpan(4, 0, 0) // third rect exceeds the cap
	if !d.FullFrame() {
		t.Fatal("expected full-frame degradation")
	}
	rects := d.Rects()
	if len(rects) != 1 || rects[0] != (Rect{X0: 0, Y0: 0, X1: 79, Y1: 23}) {
		t.Errorf("full-frame rect = %+v", rects)
	}
	if d.Cells() != 80*24 {
		t.Errorf("cells = %d, want %d", d.Cells(), 80*24)
	}

	// Further spans are absorbed.
	d.AddSpan(9, 0, 79)
	if len(d.Rects()) != 1 {
		t.Error("full-frame tracker grew extra rects")
	}
}

func TestDamageClampsSpans(t *testing.T) {
	var d DamageTracker
	d.BeginFrame(make([]Rect, 0, 4), 10, 4)
	d.AddSpan(1, -5, 50)
	rects := d.Rects()
	if len(rects) != 1 || rects[0] != (Rect{X0: 0, Y0: 1, X1: 9, Y1: 1}) {
		t.Errorf("clamped rect = %+v", rects)
	}
}
