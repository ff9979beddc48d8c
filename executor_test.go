package zireael

import "testing"

type execFixture struct {
	fb        *Framebuffer
	limits    Limits
	resources *ResourceTables
	cursor    CursorState
	profile   TerminalProfile
}

func newExecFixture(t *testing.T, cols, rows int) *execFixture {
	t.Helper()
	return &execFixture{
		fb:        mustFB(t, cols, rows),
		limits:    DefaultLimits(),
		resources: NewResourceTables(),
		profile:   DefaultProfile(),
	}
}

func (f *execFixture) env() *ExecEnv {
	return &ExecEnv{
		FB:        f.fb,
		Limits:    &f.limits,
		TabWidth:  4,
		Policy:    WidthEmojiWide,
		Profile:   &f.profile,
		Resources: f.resources,
		Cursor:    &f.cursor,
	}
}

func (f *execFixture) run(t *testing.T, dl []byte) error {
	t.Helper()
	v, err := ValidateDrawlist(dl, &f.limits)
	if err != nil {
		return err
	}
	return ExecuteDrawlist(v, f.env())
}

func TestExecuteDrawText(t *testing.T) {
	f := newExecFixture(t, 10, 3)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DrawTextStr(1, 1, "hi", Style{FG: 0xAA0000})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if cellText(f.fb, 1, 1) != "h" || cellText(f.fb, 2, 1) != "i" {
		t.Error("text not drawn")
	}
	if f.fb.CellAt(1, 1).Style.FG != 0xAA0000 {
		t.Error("style not applied")
	}
}

func TestExecuteClipping(t *testing.T) {
	f := newExecFixture(t, 10, 3)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.PushClip(0, 0, 2, 1)
	b.DrawTextStr(0, 0, "abcd", Style{})
	b.PopClip()
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if cellText(f.fb, 1, 0) != "b" {
		t.Error("in-clip cell missing")
	}
	if cellText(f.fb, 2, 0) != " " {
		t.Error("clip did not bound the write")
	}
}

func TestExecuteAtomicOnFailure(t *testing.T) {
	f := newExecFixture(t, 10, 3)

	// First, establish some content.
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DrawTextStr(0, 0, "keep", Style{})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}

	// A drawlist that draws and then hits an invalid command must leave
	// no trace of the draw.
	b = NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DrawTextStr(0, 1, "gone", Style{})
	b.FillRect(0, 0, 0, 0, Style{}) // zero dims: invalid argument
	err := f.run(t, b.Finish())
	if err != ErrInvalidArgument {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if cellText(f.fb, 0, 1) != " " {
		t.Error("failed drawlist mutated the framebuffer")
	}
	if cellText(f.fb, 0, 0) != "k" {
		t.Error("prior content lost")
	}
}

func TestExecuteSetCursor(t *testing.T) {
	f := newExecFixture(t, 10, 3)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.SetCursor(CursorState{X: 4, Y: 2, Visible: true, Shape: CursorShapeBar, Blink: true})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	want := CursorState{X: 4, Y: 2, Visible: true, Shape: CursorShapeBar, Blink: true}
	if f.cursor != want {
		t.Errorf("cursor = %+v, want %+v", f.cursor, want)
	}
}

func TestExecuteSetCursorOOB(t *testing.T) {
	f := newExecFixture(t, 10, 3)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.SetCursor(CursorState{X: 99, Y: 0})
	if err := f.run(t, b.Finish()); err != ErrInvalidArgument {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestExecuteResourceLifecycle(t *testing.T) {
	f := newExecFixture(t, 10, 3)

	// Define a persistent string in one drawlist...
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DefString(7, []byte("persist"))
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}

	// ...and draw it from the next.
	b = NewDrawlistBuilder(DrawlistVersionCurrent)
	p := b.cmd(OpDrawText, CmdFlagUseResource, 40)
	b.putTextPayload(p, 0, 0, 7, 0, 7, Style{})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if cellText(f.fb, 0, 0) != "p" {
		t.Error("resource-backed text not drawn")
	}

	// Free it; further references are a format error.
	b = NewDrawlistBuilder(DrawlistVersionCurrent)
	b.FreeString(7)
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	b = NewDrawlistBuilder(DrawlistVersionCurrent)
	p = b.cmd(OpDrawText, CmdFlagUseResource, 40)
	b.putTextPayload(p, 0, 0, 7, 0, 7, Style{})
	if err := f.run(t, b.Finish()); err != ErrFormat {
		t.Errorf("freed-id reference err = %v, want ErrFormat", err)
	}
}

func TestExecuteDoubleFreeIsFormatError(t *testing.T) {
	f := newExecFixture(t, 10, 3)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DefString(1, []byte("x"))
	b.FreeString(1)
	b.FreeString(1)
	if err := f.run(t, b.Finish()); err != ErrFormat {
		t.Errorf("double free err = %v, want ErrFormat", err)
	}
}

func TestExecuteTextRun(t *testing.T) {
	f := newExecFixture(t, 16, 2)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddString([]byte("redblue"))
	b.DrawTextRun(0, 0, ref, []TextSegment{
		{ByteOff: 0, ByteLen: 3, Style: Style{FG: 0xFF0000}},
		{ByteOff: 3, ByteLen: 4, Style: Style{FG: 0x0000FF}},
	})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if f.fb.CellAt(0, 0).Style.FG != 0xFF0000 || f.fb.CellAt(3, 0).Style.FG != 0x0000FF {
		t.Error("segment styles not applied")
	}
	if cellText(f.fb, 3, 0) != "b" {
		t.Errorf("cell 3 = %q, want b", cellText(f.fb, 3, 0))
	}
}

func TestExecuteLinkedText(t *testing.T) {
	f := newExecFixture(t, 10, 1)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddString([]byte("A"))
	b.DrawTextLinked(0, 0, ref, 0, 1, Style{}, LinkSpec{URI: "https://example.com"})
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	linkRef := f.fb.CellAt(0, 0).Style.Link
	uri, _, ok := f.fb.LinkLookup(linkRef)
	if !ok || uri != "https://example.com" {
		t.Errorf("link = %q (ok=%v)", uri, ok)
	}
}

func TestExecuteBlit(t *testing.T) {
	f := newExecFixture(t, 10, 2)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.DrawTextStr(0, 0, "ab", Style{})
	b.BlitRect(0, 0, 2, 1, 4, 1)
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if cellText(f.fb, 4, 1) != "a" || cellText(f.fb, 5, 1) != "b" {
		t.Error("blit command did not copy")
	}
}

func TestExecuteCanvasHalfblock(t *testing.T) {
	f := newExecFixture(t, 4, 2)
	// 1x2 pixels per halfblock cell: white over black.
	blob := make([]byte, 8+2*4)
	le.PutUint32(blob[0:], 1)
	le.PutUint32(blob[4:], 2)
	blob[8], blob[9], blob[10], blob[11] = 255, 255, 255, 255
	// bottom pixel stays black
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddBlob(blob)
	b.DrawCanvas(0, 0, 1, 1, ref, BlitterHalfblock)
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	if cellText(f.fb, 0, 0) != "▀" {
		t.Errorf("glyph = %q, want upper half block", cellText(f.fb, 0, 0))
	}
	cell := f.fb.CellAt(0, 0)
	if cell.Style.FG != 0xFFFFFF || cell.Style.BG != 0 {
		t.Errorf("colors fg=%06x bg=%06x", cell.Style.FG, cell.Style.BG)
	}
}

func TestExecutePixelWithoutProtocol(t *testing.T) {
	f := newExecFixture(t, 4, 2)
	blob := make([]byte, 8+4)
	le.PutUint32(blob[0:], 1)
	le.PutUint32(blob[4:], 1)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddBlob(blob)
	b.DrawCanvas(0, 0, 1, 1, ref, BlitterPixel)
	if err := f.run(t, b.Finish()); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestExecutePNGWithoutProtocol(t *testing.T) {
	f := newExecFixture(t, 4, 2)
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddBlob([]byte("\x89PNG fake"))
	b.DrawImage(0, 0, 2, 2, ref, ImageFormatPNG)
	if err := f.run(t, b.Finish()); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestExecuteImageFallbackAveraging(t *testing.T) {
	f := newExecFixture(t, 2, 1)
	// 2x1 pure red image over a 1x1 cell rect.
	blob := make([]byte, 8+2*4)
	le.PutUint32(blob[0:], 2)
	le.PutUint32(blob[4:], 1)
	for i := 0; i < 2; i++ {
		blob[8+i*4] = 200
		blob[8+i*4+3] = 255
	}
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddBlob(blob)
	b.DrawImage(0, 0, 1, 1, ref, ImageFormatRGBA)
	if err := f.run(t, b.Finish()); err != nil {
		t.Fatal(err)
	}
	bg := f.fb.CellAt(0, 0).Style.BG
	if bg>>16&0xFF < 150 {
		t.Errorf("averaged bg = %06x, want red-dominant", bg)
	}
}

func TestExecuteClipDepthLimit(t *testing.T) {
	f := newExecFixture(t, 4, 2)
	f.limits.DLMaxClipDepth = 2
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	for i := 0; i < 3; i++ {
		b.PushClip(0, 0, 4, 2)
	}
	for i := 0; i < 3; i++ {
		b.PopClip()
	}
	if err := f.run(t, b.Finish()); err != ErrLimit {
		t.Errorf("err = %v, want ErrLimit", err)
	}
}
