package zireael

import "strconv"

// emitter builds the frame's VT byte stream against a hard cap. Overflow is
// sticky; the renderer discards everything and reports ErrLimit, so partial
// frames never reach the terminal.
type emitter struct {
	out      []byte
	overflow bool
}

func newEmitter(buf []byte) *emitter {
	return &emitter{out: buf[:0]}
}

func (e *emitter) bytes(b []byte) {
	if e.overflow {
		return
	}
	if len(e.out)+len(b) > cap(e.out) {
		e.overflow = true
		return
	}
	e.out = append(e.out, b...)
}

func (e *emitter) str(s string) {
	if e.overflow {
		return
	}
	if len(e.out)+len(s) > cap(e.out) {
		e.overflow = true
		return
	}
	e.out = append(e.out, s...)
}

func (e *emitter) byte(b byte) {
	if e.overflow {
		return
	}
	if len(e.out)+1 > cap(e.out) {
		e.overflow = true
		return
	}
	e.out = append(e.out, b)
}

func (e *emitter) num(n int) {
	e.str(strconv.Itoa(n))
}

func (e *emitter) len() int { return len(e.out) }

// cup emits an absolute cursor move to 0-based (x, y).
func (e *emitter) cup(x, y int) {
	e.str("\x1b[")
	e.num(y + 1)
	e.byte(';')
	e.num(x + 1)
	e.byte('H')
}

// sgrParams is a parameter list under construction for one SGR sequence.
// Subparameters (underline styles) are pre-joined with ':' by the caller.
type sgrParams struct {
	parts []string
}

func (s *sgrParams) add(p string)  { s.parts = append(s.parts, p) }
func (s *sgrParams) addInt(n int)  { s.parts = append(s.parts, strconv.Itoa(n)) }
func (s *sgrParams) empty() bool   { return len(s.parts) == 0 }

func (s *sgrParams) emit(e *emitter) {
	if s.empty() {
		return
	}
	e.str("\x1b[")
	for i, p := range s.parts {
		if i > 0 {
			e.byte(';')
		}
		e.str(p)
	}
	e.byte('m')
}

// attrCode returns the SGR set code for one attribute bit.
func attrCode(bit Attr) int {
	switch bit {
	case AttrBold:
		return 1
	case AttrItalic:
		return 3
	case AttrUnderline:
		return 4
	case AttrReverse:
		return 7
	case AttrDim:
		return 2
	case AttrStrike:
		return 9
	case AttrOverline:
		return 53
	case AttrBlink:
		return 5
	}
	return 0
}

func (s *sgrParams) addAttrs(attrs Attr, underline UnderlineStyle, caps PlatformCaps) {
	for bit := Attr(1); bit < 1<<8; bit <<= 1 {
		if attrs&bit == 0 {
			continue
		}
		if bit == AttrUnderline {
			s.add(underlineParam(underline, caps))
			continue
		}
		s.addInt(attrCode(bit))
	}
}

// underlineParam encodes the underline attribute: "4:v" on terminals with
// styled-underline support when a non-plain variant is requested, plain "4"
// otherwise.
func underlineParam(v UnderlineStyle, caps PlatformCaps) string {
	if caps.SupportsUnderlineStyles && v >= UnderlineDouble && v <= UnderlineDashed {
		return "4:" + strconv.Itoa(int(v))
	}
	return "4"
}

func (s *sgrParams) addFG(rgb uint32, caps PlatformCaps) {
	switch caps.ColorMode {
	case ColorRGB:
		r, g, b := rgbParts(rgb)
		s.add("38;2;" + strconv.Itoa(int(r)) + ";" + strconv.Itoa(int(g)) + ";" + strconv.Itoa(int(b)))
	case Color256:
		s.add("38;5;" + strconv.Itoa(int(RGBTo256(rgb))))
	case Color16:
		s.addInt(ansi16FG(RGBTo16(rgb)))
	}
}

func (s *sgrParams) addBG(rgb uint32, caps PlatformCaps) {
	switch caps.ColorMode {
	case ColorRGB:
		r, g, b := rgbParts(rgb)
		s.add("48;2;" + strconv.Itoa(int(r)) + ";" + strconv.Itoa(int(g)) + ";" + strconv.Itoa(int(b)))
	case Color256:
		s.add("48;5;" + strconv.Itoa(int(RGBTo256(rgb))))
	case Color16:
		s.addInt(ansi16BG(RGBTo16(rgb)))
	}
}

func (s *sgrParams) addUnderlineColor(rgb uint32) {
	r, g, b := rgbParts(rgb)
	s.add("58;2;" + strconv.Itoa(int(r)) + ";" + strconv.Itoa(int(g)) + ";" + strconv.Itoa(int(b)))
}

// emitSGRTransition appends the SGR bytes moving the pen style to target.
// When absolute is set, or when any supported attribute must be cleared
// (ANSI cannot clear attributes deltaically), the sequence starts from a
// full reset: "0", every target attribute, then explicit fg and bg.
func emitSGRTransition(e *emitter, pen *Style, target Style, caps PlatformCaps, absolute bool) {
	mask := caps.SGRAttrsSupported
	penAttrs := pen.Attrs & mask
	tgtAttrs := target.Attrs & mask
	remove := penAttrs &^ tgtAttrs
	add := tgtAttrs &^ penAttrs

	var p sgrParams
	if absolute || remove != 0 {
		p.add("0")
		p.addAttrs(tgtAttrs, target.Underline, caps)
		p.addFG(target.FG, caps)
		p.addBG(target.BG, caps)
		if caps.SupportsColoredUnderlines && target.UnderlineRGB != 0 {
			p.addUnderlineColor(target.UnderlineRGB)
		}
	} else {
		p.addAttrs(add, target.Underline, caps)
		if tgtAttrs.Has(AttrUnderline) && penAttrs.Has(AttrUnderline) &&
			target.Underline != pen.Underline && caps.SupportsUnderlineStyles {
			p.add(underlineParam(target.Underline, caps))
		}
		if target.FG != pen.FG || target.BG != pen.BG {
			p.addFG(target.FG, caps)
			p.addBG(target.BG, caps)
		}
		if caps.SupportsColoredUnderlines && target.UnderlineRGB != pen.UnderlineRGB {
			if target.UnderlineRGB == 0 {
				p.add("59")
			} else {
				p.addUnderlineColor(target.UnderlineRGB)
			}
		}
	}
	p.emit(e)
	*pen = target
	pen.Link = 0 // links are tracked by content, not through the pen style
}

// emitLinkTransition appends OSC 8 bytes moving the open hyperlink from
// (penURI, penID) to (uri, id). Content equality suppresses emission
// entirely; capability gating drops the bytes but the caller still splits
// runs on link boundaries.
func emitLinkTransition(e *emitter, penURI, penID *string, uri, id string, caps PlatformCaps) {
	if *penURI == uri && *penID == id {
		return
	}
	if caps.SupportsHyperlinks {
		if *penURI != "" || *penID != "" {
			e.str("\x1b]8;;\x1b\\")
		}
		if uri != "" || id != "" {
			e.str("\x1b]8;")
			if id != "" {
				e.str("id=")
				e.str(id)
			}
			e.byte(';')
			e.str(uri)
			e.str("\x1b\\")
		}
	}
	*penURI = uri
	*penID = id
}
