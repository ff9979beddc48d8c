package zireael

import "testing"

func newTestQueue(t *testing.T) *EventQueue {
	t.Helper()
	q, err := NewEventQueue(64, 4096)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func drain(q *EventQueue) []Event {
	var out []Event
	for {
		e, _, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func parseAll(t *testing.T, in string) []Event {
	t.Helper()
	q := newTestQueue(t)
	var p InputParser
	consumed := p.ParseBytesPrefix(q, []byte(in), 0)
	if consumed != len(in) {
		t.Fatalf("consumed %d of %d bytes", consumed, len(in))
	}
	return drain(q)
}

func TestParseText(t *testing.T) {
	evs := parseAll(t, "ab世")
	if len(evs) != 3 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[0].Type != EventText || evs[0].Codepoint != 'a' {
		t.Errorf("ev0 = %+v", evs[0])
	}
	if evs[2].Codepoint != '世' {
		t.Errorf("ev2 = %+v", evs[2])
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	q := newTestQueue(t)
	var p InputParser
	n := p.ParseBytesPrefix(q, []byte{0xC0, 0xAF}, 0)
	if n != 2 {
		t.Fatalf("consumed %d, want 2", n)
	}
	evs := drain(q)
	if len(evs) != 2 || evs[0].Codepoint != '�' {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseControls(t *testing.T) {
	evs := parseAll(t, "\r\t\x7f")
	want := []Key{KeyEnter, KeyTab, KeyBackspace}
	if len(evs) != len(want) {
		t.Fatalf("got %d events", len(evs))
	}
	for i, k := range want {
		if evs[i].Type != EventKey || evs[i].Key != k {
			t.Errorf("ev%d = %+v, want key %d", i, evs[i], k)
		}
	}
}

func TestParseCtrlLetter(t *testing.T) {
	evs := parseAll(t, "\x03")
	if len(evs) != 1 || evs[0].Key != Key('c') || evs[0].Mods != ModCtrl {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseArrowsAndModifiers(t *testing.T) {
	evs := parseAll(t, "\x1b[A\x1b[1;5A\x1b[D")
	if len(evs) != 3 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[0].Key != KeyUp || evs[0].Mods != 0 {
		t.Errorf("ev0 = %+v", evs[0])
	}
	if evs[1].Key != KeyUp || evs[1].Mods != ModCtrl {
		t.Errorf("ev1 = %+v (mods=%d)", evs[1], evs[1].Mods)
	}
	if evs[2].Key != KeyLeft {
		t.Errorf("ev2 = %+v", evs[2])
	}
}

func TestParseTildeKeys(t *testing.T) {
	evs := parseAll(t, "\x1b[3~\x1b[5~\x1b[15~\x1b[24~")
	want := []Key{KeyDelete, KeyPgUp, KeyF5, KeyF12}
	if len(evs) != len(want) {
		t.Fatalf("got %d events", len(evs))
	}
	for i, k := range want {
		if evs[i].Key != k {
			t.Errorf("ev%d key = %d, want %d", i, evs[i].Key, k)
		}
	}
}

func TestParseSS3(t *testing.T) {
	evs := parseAll(t, "\x1bOP\x1bOA")
	if len(evs) != 2 || evs[0].Key != KeyF1 || evs[1].Key != KeyUp {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseBareEscape(t *testing.T) {
	evs := parseAll(t, "\x1bx")
	if len(evs) != 2 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[0].Key != KeyEscape || evs[1].Codepoint != 'x' {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseSGRMouse(t *testing.T) {
	evs := parseAll(t, "\x1b[<0;10;5M\x1b[<0;10;5m\x1b[<64;3;4M\x1b[<65;3;4M\x1b[<35;7;8M")
	if len(evs) != 5 {
		t.Fatalf("got %d events", len(evs))
	}
	down := evs[0]
	if down.MouseKind != MouseDown || down.X != 9 || down.Y != 4 || down.Buttons != MouseButtonLeft {
		t.Errorf("down = %+v", down)
	}
	up := evs[1]
	if up.MouseKind != MouseUp {
		t.Errorf("up = %+v", up)
	}
	wheelUp := evs[2]
	if wheelUp.MouseKind != MouseWheel || wheelUp.WheelY != 1 {
		t.Errorf("wheelUp = %+v", wheelUp)
	}
	wheelDown := evs[3]
	if wheelDown.WheelY != -1 {
		t.Errorf("wheelDown = %+v", wheelDown)
	}
	move := evs[4]
	if move.MouseKind != MouseMove || move.X != 6 || move.Y != 7 {
		t.Errorf("move = %+v", move)
	}
}

func TestParseSGRMouseModifiers(t *testing.T) {
	evs := parseAll(t, "\x1b[<16;1;1M")
	if len(evs) != 1 || evs[0].Mods != ModCtrl {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseBracketedPaste(t *testing.T) {
	evs := func() []Event {
		q := newTestQueue(t)
		var p InputParser
		in := []byte("\x1b[200~hello\nworld\x1b[201~")
		if n := p.ParseBytesPrefix(q, in, 0); n != len(in) {
			t.Fatalf("consumed %d of %d", n, len(in))
		}
		e, payload, ok := q.Pop()
		if !ok || e.Type != EventPaste {
			t.Fatalf("event = %+v", e)
		}
		if string(payload) != "hello\nworld" {
			t.Errorf("payload = %q", payload)
		}
		return nil
	}()
	_ = evs
}

func TestParseIncompletePrefixes(t *testing.T) {
	tests := []string{
		"\x1b",        // lone escape
		"\x1b[",       // CSI with no final
		"\x1b[1;5",    // params but no final
		"\x1bO",       // SS3 with no final
		"\x1b[200~ab", // paste with no end marker
		"\xE4\xB8",    // truncated UTF-8 for 世
	}
	for _, in := range tests {
		q := newTestQueue(t)
		var p InputParser
		if n := p.ParseBytesPrefix(q, []byte(in), 0); n != 0 {
			t.Errorf("ParseBytesPrefix(%q) consumed %d, want 0", in, n)
		}
		if q.Len() != 0 {
			t.Errorf("ParseBytesPrefix(%q) queued events", in)
		}
	}
}

func TestParseSplitSequenceAcrossReads(t *testing.T) {
	q := newTestQueue(t)
	var p InputParser
	full := []byte("\x1b[1;5A")
	n1 := p.ParseBytesPrefix(q, full[:3], 0)
	if n1 != 0 {
		t.Fatalf("first read consumed %d, want 0", n1)
	}
	n2 := p.ParseBytesPrefix(q, full, 0)
	if n2 != len(full) {
		t.Fatalf("second read consumed %d, want %d", n2, len(full))
	}
	evs := drain(q)
	if len(evs) != 1 || evs[0].Key != KeyUp || evs[0].Mods != ModCtrl {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseBytesFlushesTail(t *testing.T) {
	q := newTestQueue(t)
	var p InputParser
	p.ParseBytes(q, []byte("\x1b"), 0)
	evs := drain(q)
	if len(evs) != 1 || evs[0].Key != KeyEscape {
		t.Errorf("events = %+v", evs)
	}
}

func TestParseFocusEvents(t *testing.T) {
	evs := parseAll(t, "\x1b[I\x1b[O")
	if len(evs) != 2 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[0].Type != EventFocus || !evs[0].FocusGained {
		t.Errorf("ev0 = %+v", evs[0])
	}
	if evs[1].Type != EventFocus || evs[1].FocusGained {
		t.Errorf("ev1 = %+v", evs[1])
	}
}
