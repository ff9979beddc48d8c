package zireael

import (
	"bytes"
	"unicode/utf8"
)

// Key identifies a non-text key. Values below 0x10000 are the key's
// codepoint (control-letter combos); named keys live above that range.
type Key uint32

const (
	KeyEnter Key = 0x10000 + iota
	KeyTab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPgUp
	KeyPgDn
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Modifier bits carried on key and mouse events.
const (
	ModShift uint32 = 1 << iota
	ModAlt
	ModCtrl
	ModMeta
)

// MouseKind classifies a mouse event.
type MouseKind uint32

const (
	MouseDown MouseKind = iota
	MouseUp
	MouseMove
	MouseWheel
)

// Mouse button bits.
const (
	MouseButtonLeft uint32 = 1 << iota
	MouseButtonMiddle
	MouseButtonRight
)

var (
	pasteBegin = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// InputParser turns raw terminal input bytes into events. It is
// byte-incremental: ParseBytesPrefix stops cleanly on an incomplete escape
// sequence or UTF-8 tail and reports how much it consumed, so the caller
// can carry the tail into the next read.
type InputParser struct{}

// parse status codes for one attempt.
type parseStatus int

const (
	parseOK parseStatus = iota
	parseIncomplete
	parseNoEvent // consumed bytes, nothing to deliver
)

// ParseBytesPrefix parses as many complete events from b as possible into
// q, returning the number of bytes consumed. An incomplete trailing
// sequence consumes zero of its bytes.
func (p *InputParser) ParseBytesPrefix(q *EventQueue, b []byte, timeMS uint32) int {
	i := 0
	for i < len(b) {
		n, st := p.parseOne(q, b[i:], timeMS)
		if st == parseIncomplete {
			break
		}
		i += n
	}
	return i
}

// ParseBytes parses b in full. Trailing incomplete sequences are resolved
// pessimistically: a lone ESC becomes an ESCAPE key, a truncated UTF-8
// sequence becomes U+FFFD text. Use this when no more input is coming.
func (p *InputParser) ParseBytes(q *EventQueue, b []byte, timeMS uint32) {
	i := p.ParseBytesPrefix(q, b, timeMS)
	for i < len(b) {
		if b[i] == 0x1B {
			q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: KeyEscape})
			i++
			continue
		}
		d := DecodeScalar(b[i:])
		q.Push(Event{Type: EventText, TimeMS: timeMS, Codepoint: d.Scalar})
		i += d.Size
	}
}

// parseOne consumes one sequence from the head of b.
func (p *InputParser) parseOne(q *EventQueue, b []byte, timeMS uint32) (int, parseStatus) {
	switch b[0] {
	case 0x1B:
		return p.parseEscape(q, b, timeMS)
	case '\r', '\n':
		q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: KeyEnter})
		return 1, parseOK
	case '\t':
		q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: KeyTab})
		return 1, parseOK
	case 0x7F:
		q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: KeyBackspace})
		return 1, parseOK
	}
	if b[0] < 0x20 {
		// Remaining C0 controls are ctrl-letter combinations.
		q.Push(Event{
			Type: EventKey, TimeMS: timeMS,
			Key: Key('a' + b[0] - 1), Mods: ModCtrl,
		})
		return 1, parseOK
	}
	if !utf8.FullRune(b) {
		return 0, parseIncomplete
	}
	d := DecodeScalar(b)
	q.Push(Event{Type: EventText, TimeMS: timeMS, Codepoint: d.Scalar})
	return d.Size, parseOK
}

func (p *InputParser) parseEscape(q *EventQueue, b []byte, timeMS uint32) (int, parseStatus) {
	if len(b) == 1 {
		return 0, parseIncomplete
	}
	switch b[1] {
	case '[':
		return p.parseCSI(q, b, timeMS)
	case 'O':
		return p.parseSS3(q, b, timeMS)
	}
	q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: KeyEscape})
	return 1, parseOK
}

// parseCSI handles ESC [ <params> <intermediates?> <final>.
func (p *InputParser) parseCSI(q *EventQueue, b []byte, timeMS uint32) (int, parseStatus) {
	i := 2
	sgrMouse := false
	if i < len(b) && b[i] == '<' {
		sgrMouse = true
		i++
	}
	paramStart := i
	for i < len(b) && b[i] >= 0x30 && b[i] <= 0x3F {
		i++
	}
	paramEnd := i
	for i < len(b) && b[i] >= 0x20 && b[i] <= 0x2F {
		i++
	}
	if i >= len(b) {
		return 0, parseIncomplete
	}
	final := b[i]
	if final < 0x40 || final > 0x7E {
		// Garbled sequence; swallow it.
		return i + 1, parseNoEvent
	}
	consumed := i + 1
	params := parseParams(b[paramStart:paramEnd])

	if sgrMouse {
		return consumed, p.dispatchSGRMouse(q, params, final, timeMS)
	}
	if final == '~' && len(params) > 0 && params[0] == 200 {
		// Bracketed paste: everything up to the end marker is payload.
		rest := b[consumed:]
		idx := bytes.Index(rest, pasteEnd)
		if idx < 0 {
			return 0, parseIncomplete
		}
		_ = q.PostPasteAt(rest[:idx], timeMS)
		return consumed + idx + len(pasteEnd), parseOK
	}
	return consumed, p.dispatchCSIKey(q, params, final, timeMS)
}

func parseParams(b []byte) []int {
	if len(b) == 0 {
		return nil
	}
	params := []int{0}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			params[len(params)-1] = params[len(params)-1]*10 + int(c-'0')
		case c == ';' || c == ':':
			params = append(params, 0)
		}
	}
	return params
}

// csiMods maps the CSI modifier parameter (e.g. the 5 in "1;5A") to the
// modifier bitmask: the value minus one is shift/alt/ctrl/meta bits.
func csiMods(params []int, idx int) uint32 {
	if idx >= len(params) || params[idx] < 2 {
		return 0
	}
	return uint32(params[idx] - 1)
}

func (p *InputParser) dispatchCSIKey(q *EventQueue, params []int, final byte, timeMS uint32) parseStatus {
	mods := csiMods(params, 1)
	var key Key
	switch final {
	case 'A':
		key = KeyUp
	case 'B':
		key = KeyDown
	case 'C':
		key = KeyRight
	case 'D':
		key = KeyLeft
	case 'H':
		key = KeyHome
	case 'F':
		key = KeyEnd
	case 'Z':
		key = KeyTab
		mods |= ModShift
	case 'I':
		q.Push(Event{Type: EventFocus, TimeMS: timeMS, FocusGained: true})
		return parseOK
	case 'O':
		q.Push(Event{Type: EventFocus, TimeMS: timeMS})
		return parseOK
	case '~':
		if len(params) == 0 {
			return parseNoEvent
		}
		key = tildeKey(params[0])
		if key == 0 {
			return parseNoEvent
		}
	default:
		return parseNoEvent
	}
	q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: key, Mods: mods})
	return parseOK
}

// tildeKey maps the CSI n~ keycode family.
func tildeKey(n int) Key {
	switch n {
	case 1, 7:
		return KeyHome
	case 2:
		return KeyInsert
	case 3:
		return KeyDelete
	case 4, 8:
		return KeyEnd
	case 5:
		return KeyPgUp
	case 6:
		return KeyPgDn
	case 11, 12, 13, 14, 15:
		return KeyF1 + Key(n-11)
	case 17, 18, 19, 20, 21:
		return KeyF6 + Key(n-17)
	case 23, 24:
		return KeyF11 + Key(n-23)
	}
	return 0
}

// dispatchSGRMouse handles ESC [ < b ; x ; y (M|m). SGR coordinates are
// 1-based on screen; events are 0-based.
func (p *InputParser) dispatchSGRMouse(q *EventQueue, params []int, final byte, timeMS uint32) parseStatus {
	if (final != 'M' && final != 'm') || len(params) < 3 {
		return parseNoEvent
	}
	btn := params[0]
	x := int32(params[1] - 1)
	y := int32(params[2] - 1)

	var mods uint32
	if btn&4 != 0 {
		mods |= ModShift
	}
	if btn&8 != 0 {
		mods |= ModAlt
	}
	if btn&16 != 0 {
		mods |= ModCtrl
	}

	ev := Event{Type: EventMouse, TimeMS: timeMS, X: x, Y: y, Mods: mods}
	switch {
	case btn&64 != 0:
		ev.MouseKind = MouseWheel
		if btn&3 == 0 {
			ev.WheelY = 1
		} else {
			ev.WheelY = -1
		}
	case btn&32 != 0:
		ev.MouseKind = MouseMove
		ev.Buttons = baseButtonBit(btn & 3)
	case final == 'm':
		ev.MouseKind = MouseUp
		ev.Buttons = baseButtonBit(btn & 3)
	default:
		if btn&3 == 3 {
			ev.MouseKind = MouseMove
		} else {
			ev.MouseKind = MouseDown
			ev.Buttons = baseButtonBit(btn & 3)
		}
	}
	q.Push(ev)
	return parseOK
}

func baseButtonBit(base int) uint32 {
	switch base {
	case 0:
		return MouseButtonLeft
	case 1:
		return MouseButtonMiddle
	case 2:
		return MouseButtonRight
	}
	return 0
}

// parseSS3 handles ESC O <final> (application-mode arrows and F1-F4).
func (p *InputParser) parseSS3(q *EventQueue, b []byte, timeMS uint32) (int, parseStatus) {
	if len(b) < 3 {
		return 0, parseIncomplete
	}
	var key Key
	switch b[2] {
	case 'A':
		key = KeyUp
	case 'B':
		key = KeyDown
	case 'C':
		key = KeyRight
	case 'D':
		key = KeyLeft
	case 'H':
		key = KeyHome
	case 'F':
		key = KeyEnd
	case 'P':
		key = KeyF1
	case 'Q':
		key = KeyF2
	case 'R':
		key = KeyF3
	case 'S':
		key = KeyF4
	default:
		return 3, parseNoEvent
	}
	q.Push(Event{Type: EventKey, TimeMS: timeMS, Key: key})
	return 3, parseOK
}
