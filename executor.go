package zireael

// ExecEnv is everything a drawlist executes against.
type ExecEnv struct {
	FB        *Framebuffer
	Limits    *Limits
	TabWidth  int
	Policy    WidthPolicy
	Caps      PlatformCaps
	Profile   *TerminalProfile
	Staging   *Arena
	Resources *ResourceTables
	Cursor    *CursorState
	Damage    *DamageTracker
}

// shadowResources overlays pending DEF_*/FREE_* effects during the check
// pass so later commands in the same drawlist see them without touching
// the real tables.
type shadowResources struct {
	base    *resourceMap
	defined map[uint32][]byte
	freed   map[uint32]bool
}

func newShadow(base *resourceMap) shadowResources {
	return shadowResources{base: base, defined: map[uint32][]byte{}, freed: map[uint32]bool{}}
}

func (s *shadowResources) get(id uint32) ([]byte, bool) {
	if s.freed[id] {
		return nil, false
	}
	if d, ok := s.defined[id]; ok {
		return d, true
	}
	return s.base.get(id)
}

func (s *shadowResources) define(id uint32, data []byte) {
	s.defined[id] = data
	delete(s.freed, id)
}

func (s *shadowResources) free(id uint32) bool {
	if _, ok := s.get(id); !ok {
		return false
	}
	delete(s.defined, id)
	s.freed[id] = true
	return true
}

func (s *shadowResources) liveCount() int {
	n := s.base.count()
	for id := range s.defined {
		if _, ok := s.base.get(id); !ok {
			n++
		}
	}
	for id := range s.freed {
		if _, ok := s.base.get(id); ok {
			n--
		}
	}
	return n
}

// ExecuteDrawlist interprets a validated view against the environment. The
// execution is atomic: commands are checked in full first, and only a
// drawlist whose every command is valid mutates the framebuffer, the
// cursor, or the resource tables.
func ExecuteDrawlist(v *View, env *ExecEnv) error {
	if v == nil || env == nil || env.FB == nil || env.Limits == nil ||
		env.Resources == nil || env.Cursor == nil {
		return ErrInvalidArgument
	}
	if err := checkPass(v, env); err != nil {
		return err
	}
	commitPass(v, env)
	return nil
}

func checkPass(v *View, env *ExecEnv) error {
	strings := newShadow(&env.Resources.strings)
	blobs := newShadow(&env.Resources.blobs)
	depth := 0
	bounds := env.FB.Bounds()

	cur := v.Commands()
	for {
		cmd, ok := cur.Next()
		if !ok {
			break
		}
		switch cmd.Opcode {
		case OpClear:
			// always valid

		case OpPushClip:
			x, y, w, h := rectArgs(cmd.Payload)
			if w <= 0 || h <= 0 {
				return ErrInvalidArgument
			}
			_ = x
			_ = y
			depth++
			if uint32(depth) > env.Limits.DLMaxClipDepth {
				return ErrLimit
			}

		case OpPopClip:
			if depth == 0 {
				return ErrFormat
			}
			depth--

		case OpFillRect:
			x, y, w, h := rectArgs(cmd.Payload)
			if w <= 0 || h <= 0 {
				return ErrInvalidArgument
			}
			if RectXYWH(x, y, w, h).Intersect(bounds).Empty() {
				return ErrInvalidArgument
			}

		case OpDrawText:
			if _, _, err := resolveText(v, cmd, &strings); err != nil {
				return err
			}
			if cmd.Flags&CmdFlagStyleExt != 0 {
				if _, err := resolveLink(v, cmd.Payload, cmd.Flags, &strings); err != nil {
					return err
				}
			}

		case OpDrawTextRun:
			strRef := le.Uint32(cmd.Payload[8:])
			data, err := resolveString(v, strRef, cmd.Flags, &strings)
			if err != nil {
				return err
			}
			segCount := le.Uint32(cmd.Payload[12:])
			for i := uint32(0); i < segCount; i++ {
				seg := cmd.Payload[16+i*sizeTextRunSeg:]
				off, ln := le.Uint32(seg[0:]), le.Uint32(seg[4:])
				if uint64(off)+uint64(ln) > uint64(len(data)) {
					return ErrFormat
				}
			}

		case OpDefString:
			id := le.Uint32(cmd.Payload[0:])
			ln := le.Uint32(cmd.Payload[4:])
			strings.define(id, cmd.Payload[8:8+ln])
			if uint32(strings.liveCount()) > env.Limits.DLMaxStrings {
				return ErrLimit
			}

		case OpFreeString:
			if !strings.free(le.Uint32(cmd.Payload[0:])) {
				return ErrFormat
			}

		case OpDefBlob:
			id := le.Uint32(cmd.Payload[0:])
			ln := le.Uint32(cmd.Payload[4:])
			blobs.define(id, cmd.Payload[8:8+ln])
			if uint32(blobs.liveCount()) > env.Limits.DLMaxBlobs {
				return ErrLimit
			}

		case OpFreeBlob:
			if !blobs.free(le.Uint32(cmd.Payload[0:])) {
				return ErrFormat
			}

		case OpBlitRect:
			sx, sy, w, h := rectArgs(cmd.Payload)
			dx := int(int32(le.Uint32(cmd.Payload[16:])))
			dy := int(int32(le.Uint32(cmd.Payload[20:])))
			if w <= 0 || h <= 0 {
				return ErrInvalidArgument
			}
			src := Rect{X0: sx, Y0: sy, X1: sx + w - 1, Y1: sy + h - 1}
			if src.Intersect(bounds).Empty() || RectXYWH(dx, dy, w, h).Intersect(bounds).Empty() {
				return ErrInvalidArgument
			}

		case OpDrawCanvas:
			x, y, w, h := rectArgs(cmd.Payload)
			if w <= 0 || h <= 0 || RectXYWH(x, y, w, h).Intersect(bounds).Empty() {
				return ErrInvalidArgument
			}
			mode := BlitterMode(le.Uint32(cmd.Payload[20:]))
			if mode > BlitterPixel {
				return ErrInvalidArgument
			}
			resolved, err := ResolveBlitter(mode, env.Caps, env.Profile)
			if err != nil {
				return err
			}
			blob, err := resolveBlob(v, le.Uint32(cmd.Payload[16:]), cmd.Flags, &blobs)
			if err != nil {
				return err
			}
			if resolved != BlitterPixel {
				if _, _, _, err := canvasBlob(blob); err != nil {
					return err
				}
			}

		case OpDrawImage:
			x, y, w, h := rectArgs(cmd.Payload)
			if w <= 0 || h <= 0 || RectXYWH(x, y, w, h).Intersect(bounds).Empty() {
				return ErrInvalidArgument
			}
			blob, err := resolveBlob(v, le.Uint32(cmd.Payload[16:]), cmd.Flags, &blobs)
			if err != nil {
				return err
			}
			format := le.Uint32(cmd.Payload[20:])
			protocol := ImageProtocolNone
			if env.Profile != nil {
				protocol = env.Profile.ImageProtocol
			}
			switch format {
			case ImageFormatRGBA:
				if _, _, _, err := canvasBlob(blob); err != nil {
					return err
				}
			case ImageFormatPNG:
				if protocol == ImageProtocolNone {
					return ErrUnsupported
				}
			default:
				return ErrInvalidArgument
			}
			if protocol != ImageProtocolNone && env.Staging == nil {
				return ErrInvalidArgument
			}

		case OpSetCursor:
			x := int(int32(le.Uint32(cmd.Payload[0:])))
			y := int(int32(le.Uint32(cmd.Payload[4:])))
			if !bounds.Contains(x, y) {
				return ErrInvalidArgument
			}
			shape := CursorShape(le.Uint32(cmd.Payload[8:]) >> 8 & 0xFF)
			if shape > CursorShapeBar {
				return ErrInvalidArgument
			}

		default:
			return ErrUnsupported
		}
	}
	if depth != 0 {
		return ErrFormat
	}
	return nil
}

// commitPass applies a fully-checked drawlist. It cannot fail.
func commitPass(v *View, env *ExecEnv) {
	p := NewPainter(env.FB, env.Policy, env.TabWidth)
	if env.Damage != nil {
		p.SetDamage(env.Damage)
	}
	strings := &env.Resources.strings
	blobs := &env.Resources.blobs

	cur := v.Commands()
	for {
		cmd, ok := cur.Next()
		if !ok {
			break
		}
		switch cmd.Opcode {
		case OpClear:
			env.FB.Clear(Style{})
			p.MarkRect(env.FB.Bounds())

		case OpPushClip:
			x, y, w, h := rectArgs(cmd.Payload)
			_ = p.PushClip(RectXYWH(x, y, w, h))

		case OpPopClip:
			_ = p.PopClip()

		case OpFillRect:
			x, y, w, h := rectArgs(cmd.Payload)
			style := getStyleWire(cmd.Payload[16:])
			p.FillRect(RectXYWH(x, y, w, h), nil, style)

		case OpDrawText:
			text, style, _ := resolveTextCommitted(v, cmd, strings)
			if cmd.Flags&CmdFlagStyleExt != 0 {
				style.UnderlineRGB = le.Uint32(cmd.Payload[40:])
				if uri, id, ok := committedLink(v, cmd.Payload, cmd.Flags, strings); ok {
					if ref, err := env.FB.LinkIntern(uri, id); err == nil {
						style.Link = ref
					}
				}
			}
			x := int(int32(le.Uint32(cmd.Payload[0:])))
			y := int(int32(le.Uint32(cmd.Payload[4:])))
			p.DrawText(x, y, text, style)

		case OpDrawTextRun:
			x := int(int32(le.Uint32(cmd.Payload[0:])))
			y := int(int32(le.Uint32(cmd.Payload[4:])))
			strRef := le.Uint32(cmd.Payload[8:])
			data, _ := committedString(v, strRef, cmd.Flags, strings)
			segCount := le.Uint32(cmd.Payload[12:])
			advance := 0
			for i := uint32(0); i < segCount; i++ {
				seg := cmd.Payload[16+i*sizeTextRunSeg:]
				off, ln := le.Uint32(seg[0:]), le.Uint32(seg[4:])
				style := getStyleWire(seg[8:])
				advance += p.DrawText(x+advance, y, data[off:off+ln], style)
			}

		case OpDefString:
			id := le.Uint32(cmd.Payload[0:])
			ln := le.Uint32(cmd.Payload[4:])
			strings.define(id, cmd.Payload[8:8+ln])

		case OpFreeString:
			strings.free(le.Uint32(cmd.Payload[0:]))

		case OpDefBlob:
			id := le.Uint32(cmd.Payload[0:])
			ln := le.Uint32(cmd.Payload[4:])
			blobs.define(id, cmd.Payload[8:8+ln])

		case OpFreeBlob:
			blobs.free(le.Uint32(cmd.Payload[0:]))

		case OpBlitRect:
			sx, sy, w, h := rectArgs(cmd.Payload)
			dx := int(int32(le.Uint32(cmd.Payload[16:])))
			dy := int(int32(le.Uint32(cmd.Payload[20:])))
			src := Rect{X0: sx, Y0: sy, X1: sx + w - 1, Y1: sy + h - 1}
			_ = BlitRect(env.FB, dx, dy, env.FB, src)
			p.MarkRect(RectXYWH(dx, dy, w, h))

		case OpDrawCanvas:
			x, y, w, h := rectArgs(cmd.Payload)
			mode := BlitterMode(le.Uint32(cmd.Payload[20:]))
			resolved, _ := ResolveBlitter(mode, env.Caps, env.Profile)
			blob, _ := committedBlob(v, le.Uint32(cmd.Payload[16:]), cmd.Flags, blobs)
			if resolved == BlitterPixel {
				stageBytes(env.Staging, blob)
			} else {
				_ = blitCanvas(p, x, y, w, h, blob, resolved)
			}

		case OpDrawImage:
			x, y, w, h := rectArgs(cmd.Payload)
			blob, _ := committedBlob(v, le.Uint32(cmd.Payload[16:]), cmd.Flags, blobs)
			format := le.Uint32(cmd.Payload[20:])
			protocol := ImageProtocolNone
			if env.Profile != nil {
				protocol = env.Profile.ImageProtocol
			}
			if protocol != ImageProtocolNone {
				// The native-protocol pipeline consumes the staged bytes
				// outside the core; cells stay untouched.
				stageBytes(env.Staging, blob)
			} else if format == ImageFormatRGBA {
				pxW, pxH, rgba, err := canvasBlob(blob)
				if err == nil {
					blitImageFallback(p, x, y, w, h, pxW, pxH, rgba)
				}
			}

		case OpSetCursor:
			env.Cursor.X = int(int32(le.Uint32(cmd.Payload[0:])))
			env.Cursor.Y = int(int32(le.Uint32(cmd.Payload[4:])))
			packed := le.Uint32(cmd.Payload[8:])
			env.Cursor.Visible = packed&1 != 0
			env.Cursor.Shape = CursorShape(packed >> 8 & 0xFF)
			env.Cursor.Blink = packed&(1<<16) != 0
		}
	}
}

func stageBytes(staging *Arena, blob []byte) {
	if staging == nil {
		return
	}
	if dst, err := staging.Alloc(len(blob), 4); err == nil {
		copy(dst, blob)
	}
}

func rectArgs(p []byte) (x, y, w, h int) {
	x = int(int32(le.Uint32(p[0:])))
	y = int(int32(le.Uint32(p[4:])))
	w = int(int32(le.Uint32(p[8:])))
	h = int(int32(le.Uint32(p[12:])))
	return
}

func resolveString(v *View, ref uint32, flags uint16, shadow *shadowResources) ([]byte, error) {
	if flags&CmdFlagUseResource != 0 {
		data, ok := shadow.get(ref)
		if !ok {
			return nil, ErrFormat
		}
		return data, nil
	}
	if int(ref) >= v.StringCount() {
		return nil, ErrFormat
	}
	return v.String(ref), nil
}

func resolveBlob(v *View, ref uint32, flags uint16, shadow *shadowResources) ([]byte, error) {
	if flags&CmdFlagUseResource != 0 {
		data, ok := shadow.get(ref)
		if !ok {
			return nil, ErrFormat
		}
		return data, nil
	}
	if int(ref) >= len(v.blobSpans) {
		return nil, ErrFormat
	}
	return v.Blob(ref), nil
}

func resolveText(v *View, cmd Command, shadow *shadowResources) ([]byte, Style, error) {
	strRef := le.Uint32(cmd.Payload[8:])
	byteOff := le.Uint32(cmd.Payload[12:])
	byteLen := le.Uint32(cmd.Payload[16:])
	data, err := resolveString(v, strRef, cmd.Flags, shadow)
	if err != nil {
		return nil, Style{}, err
	}
	if uint64(byteOff)+uint64(byteLen) > uint64(len(data)) {
		return nil, Style{}, ErrFormat
	}
	return data[byteOff : byteOff+byteLen], getStyleWire(cmd.Payload[24:]), nil
}

// resolveLink validates the extended-style link refs and their interning
// limits without touching the framebuffer.
func resolveLink(v *View, payload []byte, flags uint16, shadow *shadowResources) (LinkSpec, error) {
	var out LinkSpec
	uriRef := le.Uint32(payload[44:])
	idRef := le.Uint32(payload[48:])
	if uriRef != linkRefNone {
		data, err := resolveString(v, uriRef, flags, shadow)
		if err != nil {
			return out, err
		}
		if len(data) > LinkURIMaxBytes {
			return out, ErrLimit
		}
		out.URI = string(data)
	}
	if idRef != linkRefNone {
		data, err := resolveString(v, idRef, flags, shadow)
		if err != nil {
			return out, err
		}
		if len(data) > LinkIDMaxBytes {
			return out, ErrLimit
		}
		out.ID = string(data)
	}
	return out, nil
}

// Committed-pass resolvers read against the real tables; the check pass
// already proved every lookup succeeds.

func committedString(v *View, ref uint32, flags uint16, m *resourceMap) ([]byte, bool) {
	if flags&CmdFlagUseResource != 0 {
		return m.get(ref)
	}
	return v.String(ref), true
}

func committedBlob(v *View, ref uint32, flags uint16, m *resourceMap) ([]byte, bool) {
	if flags&CmdFlagUseResource != 0 {
		return m.get(ref)
	}
	return v.Blob(ref), true
}

func resolveTextCommitted(v *View, cmd Command, m *resourceMap) ([]byte, Style, bool) {
	strRef := le.Uint32(cmd.Payload[8:])
	byteOff := le.Uint32(cmd.Payload[12:])
	byteLen := le.Uint32(cmd.Payload[16:])
	data, ok := committedString(v, strRef, cmd.Flags, m)
	if !ok {
		return nil, Style{}, false
	}
	return data[byteOff : byteOff+byteLen], getStyleWire(cmd.Payload[24:]), true
}

func committedLink(v *View, payload []byte, flags uint16, m *resourceMap) (uri, id string, ok bool) {
	uriRef := le.Uint32(payload[44:])
	idRef := le.Uint32(payload[48:])
	if uriRef == linkRefNone && idRef == linkRefNone {
		return "", "", false
	}
	if uriRef != linkRefNone {
		if data, found := committedString(v, uriRef, flags, m); found {
			uri = string(data)
		}
	}
	if idRef != linkRefNone {
		if data, found := committedString(v, idRef, flags, m); found {
			id = string(data)
		}
	}
	return uri, id, uri != "" || id != ""
}
