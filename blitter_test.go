package zireael

import "testing"

func TestResolveBlitterAuto(t *testing.T) {
	caps := DefaultCaps()
	profile := DefaultProfile()

	got, err := ResolveBlitter(BlitterAuto, caps, &profile)
	if err != nil || got != BlitterSextant {
		t.Errorf("auto = %v (%v), want sextant", got, err)
	}

	profile.SupportsSextants = false
	got, _ = ResolveBlitter(BlitterAuto, caps, &profile)
	if got != BlitterQuadrant {
		t.Errorf("auto without sextants = %v, want quadrant", got)
	}

	profile.SupportsQuadrants = false
	got, _ = ResolveBlitter(BlitterAuto, caps, &profile)
	if got != BlitterHalfblock {
		t.Errorf("auto without quadrants = %v, want halfblock", got)
	}

	// AUTO never picks braille.
	profile = DefaultProfile()
	profile.SupportsSextants = false
	profile.SupportsQuadrants = false
	profile.SupportsHalfblocks = false
	got, _ = ResolveBlitter(BlitterAuto, caps, &profile)
	if got != BlitterASCII {
		t.Errorf("auto floor = %v, want ascii", got)
	}
}

func TestResolveBlitterPipeModeForcesASCII(t *testing.T) {
	caps := DefaultCaps()
	profile := DefaultProfile()
	profile.PipeMode = true
	for _, req := range []BlitterMode{BlitterAuto, BlitterSextant, BlitterBraille} {
		got, err := ResolveBlitter(req, caps, &profile)
		if err != nil || got != BlitterASCII {
			t.Errorf("pipe mode %v = %v (%v), want ascii", req, got, err)
		}
	}
}

func TestResolveBlitterPixelNeedsProtocol(t *testing.T) {
	caps := DefaultCaps()
	profile := DefaultProfile()
	if _, err := ResolveBlitter(BlitterPixel, caps, &profile); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	profile.ImageProtocol = ImageProtocolKitty
	got, err := ResolveBlitter(BlitterPixel, caps, &profile)
	if err != nil || got != BlitterPixel {
		t.Errorf("with protocol = %v (%v)", got, err)
	}
}

func TestResolveBlitterUnknownMode(t *testing.T) {
	caps := DefaultCaps()
	profile := DefaultProfile()
	if _, err := ResolveBlitter(BlitterMode(99), caps, &profile); err != ErrInvalidArgument {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSextantRuneEdges(t *testing.T) {
	tests := []struct {
		bits int
		want rune
	}{
		{0, ' '},
		{21, '▌'},
		{42, '▐'},
		{63, '█'},
		{1, 0x1FB00},
		{2, 0x1FB01},
		{22, 0x1FB14},
		{62, 0x1FB3B},
	}
	for _, tt := range tests {
		if got := sextantRune(tt.bits); got != tt.want {
			t.Errorf("sextantRune(%d) = %U, want %U", tt.bits, got, tt.want)
		}
	}
}

func TestQuadrantRunes(t *testing.T) {
	if quadrantRunes[0] != ' ' || quadrantRunes[15] != '█' {
		t.Error("quadrant table endpoints wrong")
	}
	// top-left only
	if quadrantRunes[1] != '▘' {
		t.Errorf("bit0 = %q", quadrantRunes[1])
	}
}

func TestCanvasBlobValidation(t *testing.T) {
	if _, _, _, err := canvasBlob([]byte{1, 2}); err != ErrInvalidArgument {
		t.Errorf("short blob err = %v", err)
	}
	blob := make([]byte, 8+3)
	le.PutUint32(blob[0:], 2)
	le.PutUint32(blob[4:], 2)
	if _, _, _, err := canvasBlob(blob); err != ErrInvalidArgument {
		t.Errorf("undersized pixel data err = %v", err)
	}
}

func TestBlitCanvasBraille(t *testing.T) {
	fb := mustFB(t, 2, 1)
	p := NewPainter(fb, WidthEmojiWide, 4)
	// 2x4 pixels, all bright: a full braille cell.
	blob := make([]byte, 8+2*4*4)
	le.PutUint32(blob[0:], 2)
	le.PutUint32(blob[4:], 4)
	for i := 8; i < len(blob); i++ {
		blob[i] = 255
	}
	if err := blitCanvas(p, 0, 0, 1, 1, blob, BlitterBraille); err != nil {
		t.Fatal(err)
	}
	if got := cellText(fb, 0, 0); got != "⣿" {
		t.Errorf("glyph = %q, want full braille", got)
	}
}
