package zireael

import (
	"bytes"
	"testing"
)

func buildSimpleDrawlist() []byte {
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.Clear()
	b.DrawTextStr(0, 0, "hi", Style{FG: 0xAA0000})
	return b.Finish()
}

func defaultLimits() *Limits {
	l := DefaultLimits()
	return &l
}

func TestValidateRoundTrip(t *testing.T) {
	dl := buildSimpleDrawlist()
	v, err := ValidateDrawlist(dl, defaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v.Version() != DrawlistVersionCurrent {
		t.Errorf("version = %d", v.Version())
	}
	if v.CmdCount() != 2 {
		t.Errorf("cmd count = %d, want 2", v.CmdCount())
	}
	if got := string(v.String(0)); got != "hi" {
		t.Errorf("string 0 = %q", got)
	}

	cur := v.Commands()
	cmd, ok := cur.Next()
	if !ok || cmd.Opcode != OpClear {
		t.Errorf("first command = %+v", cmd)
	}
	cmd, ok = cur.Next()
	if !ok || cmd.Opcode != OpDrawText {
		t.Errorf("second command = %+v", cmd)
	}
	if _, ok = cur.Next(); ok {
		t.Error("expected end of commands")
	}
}

func TestValidationIsPure(t *testing.T) {
	dl := buildSimpleDrawlist()
	before := append([]byte(nil), dl...)
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dl, before) {
		t.Error("validation mutated the input bytes")
	}

	// Also pure on rejected input.
	bad := append([]byte(nil), dl...)
	bad[0] ^= 0xFF
	beforeBad := append([]byte(nil), bad...)
	_, _ = ValidateDrawlist(bad, defaultLimits())
	if !bytes.Equal(bad, beforeBad) {
		t.Error("failed validation mutated the input bytes")
	}
}

func TestValidateRejectsBadMagic(t *testing.T) {
	dl := buildSimpleDrawlist()
	dl[0] ^= 0xFF
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestValidateRejectsFutureVersion(t *testing.T) {
	dl := buildSimpleDrawlist()
	le.PutUint32(dl[4:], DrawlistVersionCurrent+1)
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestValidateRejectsOverlap(t *testing.T) {
	dl := buildSimpleDrawlist()
	// Point the strings span table into the command stream.
	le.PutUint32(dl[28:], le.Uint32(dl[16:]))
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestValidateRejectsMisalignedOffset(t *testing.T) {
	dl := buildSimpleDrawlist()
	le.PutUint32(dl[28:], le.Uint32(dl[28:])+2)
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestValidateEmptyTableRule(t *testing.T) {
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.Clear()
	dl := b.Finish()
	// No strings: forging a non-zero strings offset violates the rule.
	le.PutUint32(dl[36:], 64)
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestValidateRejectsUnknownOpcode(t *testing.T) {
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.Clear()
	dl := b.Finish()
	cmdOff := le.Uint32(dl[16:])
	le.PutUint16(dl[cmdOff:], 0x7777)
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestValidateRejectsSetCursorInV1(t *testing.T) {
	b := NewDrawlistBuilder(DrawlistVersion1)
	b.SetCursor(CursorState{X: 1, Y: 1, Visible: true})
	dl := b.Finish()
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestValidateRejectsUnbalancedClips(t *testing.T) {
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	b.PushClip(0, 0, 4, 4)
	dl := b.Finish()
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("unbalanced push err = %v, want ErrFormat", err)
	}

	b = NewDrawlistBuilder(DrawlistVersionCurrent)
	b.PopClip()
	dl = b.Finish()
	if _, err := ValidateDrawlist(dl, defaultLimits()); err != ErrFormat {
		t.Errorf("underflow pop err = %v, want ErrFormat", err)
	}
}

func TestValidateClipDepthLimit(t *testing.T) {
	limits := defaultLimits()
	limits.DLMaxClipDepth = 4
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	for i := 0; i < 5; i++ {
		b.PushClip(0, 0, 4, 4)
	}
	for i := 0; i < 5; i++ {
		b.PopClip()
	}
	if _, err := ValidateDrawlist(b.Finish(), limits); err != ErrLimit {
		t.Errorf("err = %v, want ErrLimit", err)
	}
}

func TestValidateCmdCountLimit(t *testing.T) {
	limits := defaultLimits()
	limits.DLMaxCmds = 1
	dl := buildSimpleDrawlist()
	if _, err := ValidateDrawlist(dl, limits); err != ErrLimit {
		t.Errorf("err = %v, want ErrLimit", err)
	}
}

func TestValidateStringRangeBounds(t *testing.T) {
	b := NewDrawlistBuilder(DrawlistVersionCurrent)
	ref := b.AddString([]byte("ab"))
	b.DrawText(0, 0, ref, 1, 5, Style{})
	if _, err := ValidateDrawlist(b.Finish(), defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestValidateTruncatedBuffer(t *testing.T) {
	dl := buildSimpleDrawlist()
	if _, err := ValidateDrawlist(dl[:len(dl)-4], defaultLimits()); err != ErrFormat {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}
