package zireael

import (
	"bytes"
	"testing"
)

func rgbCaps() PlatformCaps {
	return PlatformCaps{
		ColorMode:           ColorRGB,
		SupportsScrollRegion: true,
		SupportsCursorShape: true,
		SupportsHyperlinks:  true,
		SGRAttrsSupported:   AttrMaskAll,
	}
}

func allValidState() *TermState {
	return &TermState{Valid: TermStateAllValid, CursorVisible: true}
}

func render(t *testing.T, prev, next *Framebuffer, opts *RenderOptions) []byte {
	t.Helper()
	out := make([]byte, 0, 64*1024)
	n, _, err := RenderDiff(out, prev, next, opts)
	if err != nil {
		t.Fatalf("RenderDiff: %v", err)
	}
	return out[:n]
}

func TestDiffSingleCellAllValid(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	putText(t, next, 0, 0, "X", Style{})

	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: allValidState()})
	if string(got) != "X" {
		t.Errorf("bytes = %q, want %q", got, "X")
	}
}

func TestDiffUnknownCursorForcesAbsoluteCUP(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	putText(t, next, 0, 0, "X", Style{})

	st := allValidState()
	st.Valid &^= TermStateCursorPos
	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: st})
	want := "\x1b[1;1HX"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
}

func TestDiffCursorVisibilityToggle(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)

	st := allValidState()
	cur := CursorState{Visible: false}
	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: st, Cursor: &cur})
	want := "\x1b[?25l"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
}

func TestDiffScreenInvalidForcesBaseline(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)

	st := allValidState()
	st.Valid &^= TermStateScreen
	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: st})
	want := "\x1b[r\x1b[0;38;2;0;0;0;48;2;0;0;0m\x1b[2J"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
	if st.Valid&TermStateScreen == 0 {
		t.Error("screen flag not re-established")
	}
}

func TestDiffAttrClearFallsBackToAbsoluteSGR(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	styled := Style{FG: 0xAA0000, Attrs: AttrBold}
	plain := Style{FG: 0xAA0000}
	putText(t, prev, 0, 0, "X", styled)
	putText(t, next, 0, 0, "X", plain)

	st := allValidState()
	st.Style = styled
	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: st})
	want := "\x1b[0;38;2;170;0;0;48;2;0;0;0mX"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
}

func TestDiff256ColorQuantization(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	putText(t, next, 0, 0, "X", Style{FG: 0x7D0000})

	caps := rgbCaps()
	caps.ColorMode = Color256
	got := render(t, prev, next, &RenderOptions{Caps: caps, State: allValidState()})
	want := "\x1b[38;5;88;48;5;16mX"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
}

func TestDiffHyperlinkOpenClose(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	ref, err := next.LinkIntern("https://example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	putText(t, next, 0, 0, "A", Style{Link: ref})

	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: allValidState()})
	want := "\x1b]8;;https://example.com\x1b\\A\x1b]8;;\x1b\\"
	if string(got) != want {
		t.Errorf("bytes = %q, want %q", got, want)
	}
}

func TestDiffHyperlinkContentAddressed(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)

	// Same link content, different ref values across frames: both frames
	// intern the same two links, each referenced by a cell so compaction
	// keeps it, but in opposite order.
	pp, err := prev.LinkIntern("https://pad.example", "")
	if err != nil {
		t.Fatal(err)
	}
	putText(t, prev, 1, 0, "B", Style{Link: pp})
	pr, _ := prev.LinkIntern("https://example.com", "k")
	putText(t, prev, 0, 0, "A", Style{Link: pr})

	nr, _ := next.LinkIntern("https://example.com", "k")
	putText(t, next, 0, 0, "A", Style{Link: nr})
	np, _ := next.LinkIntern("https://pad.example", "")
	putText(t, next, 1, 0, "B", Style{Link: np})
	if pr == nr {
		t.Fatal("fixture should produce different refs")
	}

	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: allValidState()})
	if len(got) != 0 {
		t.Errorf("equal-content links emitted %q", got)
	}
}

func TestDiffHyperlinksGatedByCaps(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	ref, _ := next.LinkIntern("https://example.com", "")
	putText(t, next, 0, 0, "A", Style{Link: ref})

	caps := rgbCaps()
	caps.SupportsHyperlinks = false
	got := render(t, prev, next, &RenderOptions{Caps: caps, State: allValidState()})
	if bytes.Contains(got, []byte("\x1b]8")) {
		t.Errorf("OSC 8 emitted without capability: %q", got)
	}
	if string(got) != "A" {
		t.Errorf("bytes = %q, want %q", got, "A")
	}
}

func TestDiffNoPartialOnLimit(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	for y := 0; y < 24; y++ {
		putText(t, next, 0, y, "0123456789", Style{FG: uint32(y + 1)})
	}

	out := make([]byte, 0, 16)
	st := allValidState()
	before := *st
	n, _, err := RenderDiff(out, prev, next, &RenderOptions{Caps: rgbCaps(), State: st})
	if err != ErrLimit {
		t.Fatalf("err = %v, want ErrLimit", err)
	}
	if n != 0 {
		t.Errorf("n = %d on overflow, want 0", n)
	}
	if *st != before {
		t.Error("state mutated on failure")
	}
}

func TestDiffIdenticalFramesEmitNothing(t *testing.T) {
	prev := mustFB(t, 40, 12)
	next := mustFB(t, 40, 12)
	putText(t, prev, 3, 3, "same", Style{FG: 5})
	putText(t, next, 3, 3, "same", Style{FG: 5})

	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: allValidState()})
	if len(got) != 0 {
		t.Errorf("identical frames emitted %q", got)
	}
}

func TestDiffWideGlyphRunStartsAtLead(t *testing.T) {
	prev := mustFB(t, 20, 2)
	next := mustFB(t, 20, 2)
	putText(t, prev, 0, 0, "世", Style{})
	putText(t, next, 0, 0, "界", Style{})

	got := render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: allValidState()})
	if !bytes.Contains(got, []byte("界")) {
		t.Errorf("wide glyph missing from %q", got)
	}
	if bytes.Contains(got, []byte("世")) {
		t.Errorf("stale glyph emitted in %q", got)
	}
}

func TestDiffScrollOptimization(t *testing.T) {
	prev := mustFB(t, 20, 6)
	next := mustFB(t, 20, 6)
	lines := []string{"one", "two", "three", "four", "five", "six"}
	for y, s := range lines {
		putText(t, prev, 0, y, s, Style{})
	}
	// Everything shifts up one row; a new line enters at the bottom.
	for y := 0; y < 5; y++ {
		putText(t, next, 0, y, lines[y+1], Style{})
	}
	putText(t, next, 0, 5, "seven", Style{})

	st := allValidState()
	out := make([]byte, 0, 4096)
	n, stats, err := RenderDiff(out, prev, next, &RenderOptions{
		Caps: rgbCaps(), State: st, AllowScrollOpt: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.ScrollOptAttempted != 1 || stats.ScrollOptHit != 1 {
		t.Errorf("scroll stats = %+v", stats)
	}
	got := out[:n]
	if !bytes.Contains(got, []byte("\x1b[1S")) {
		t.Errorf("SU missing from %q", got)
	}
	if !bytes.Contains(got, []byte("seven")) {
		t.Errorf("tail row missing from %q", got)
	}
	if bytes.Contains(got, []byte("three")) {
		t.Errorf("scrolled row was redrawn: %q", got)
	}
}

func TestDiffScratchRowHashReuse(t *testing.T) {
	prev := mustFB(t, 20, 6)
	next := mustFB(t, 20, 6)
	putText(t, prev, 0, 0, "stable", Style{})
	putText(t, next, 0, 0, "stable", Style{})
	putText(t, next, 0, 5, "new", Style{})

	scratch := NewScratch()
	st := allValidState()
	// First render primes the hashes.
	out := make([]byte, 0, 4096)
	if _, _, err := RenderDiff(out, prev, prev, &RenderOptions{
		Caps: rgbCaps(), State: st, Scratch: scratch,
	}); err != nil {
		t.Fatal(err)
	}
	if !scratch.valid {
		t.Fatal("scratch not primed")
	}
	n, stats, err := RenderDiff(out, prev, next, &RenderOptions{
		Caps: rgbCaps(), State: st, Scratch: scratch,
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.DirtyRows != 1 {
		t.Errorf("dirty rows = %d, want 1", stats.DirtyRows)
	}
	if !bytes.Contains(out[:n], []byte("new")) {
		t.Error("changed row not emitted")
	}
}

func TestDiffFinalStateTracksPen(t *testing.T) {
	prev := mustFB(t, 80, 24)
	next := mustFB(t, 80, 24)
	putText(t, next, 2, 1, "ab", Style{FG: 0x112233})

	st := allValidState()
	render(t, prev, next, &RenderOptions{Caps: rgbCaps(), State: st})
	if st.CursorX != 4 || st.CursorY != 1 {
		t.Errorf("final cursor = (%d,%d), want (4,1)", st.CursorX, st.CursorY)
	}
	if st.Style.FG != 0x112233 {
		t.Errorf("final style fg = %06x", st.Style.FG)
	}
	if st.Valid&TermStateCursorPos == 0 || st.Valid&TermStateStyle == 0 {
		t.Error("final flags not established")
	}
}

func TestDiffDimensionMismatch(t *testing.T) {
	a := mustFB(t, 10, 2)
	b := mustFB(t, 12, 2)
	out := make([]byte, 0, 128)
	if _, _, err := RenderDiff(out, a, b, &RenderOptions{Caps: rgbCaps(), State: allValidState()}); err != ErrInvalidArgument {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
