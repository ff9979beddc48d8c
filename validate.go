package zireael

// span locates a string or blob inside its bytes region.
type span struct {
	off uint32
	len uint32
}

// Command is one validated drawlist command. Payload excludes the 8-byte
// command header and aliases the drawlist buffer (zero-copy, read-only).
type Command struct {
	Opcode  uint16
	Flags   uint16
	Payload []byte
}

// View is the read-only result of validating a drawlist. It gives zero-copy
// cursors over the command stream and the string/blob tables; validation
// never mutates the underlying buffer.
type View struct {
	version     uint32
	cmds        []byte
	cmdCount    uint32
	stringSpans []span
	stringBytes []byte
	blobSpans   []span
	blobBytes   []byte
}

// Version returns the drawlist format version.
func (v *View) Version() uint32 { return v.version }

// CmdCount returns the number of commands.
func (v *View) CmdCount() int { return int(v.cmdCount) }

// StringCount returns the number of drawlist-local strings.
func (v *View) StringCount() int { return len(v.stringSpans) }

// String returns drawlist-local string i. Bounds were validated.
func (v *View) String(i uint32) []byte {
	s := v.stringSpans[i]
	return v.stringBytes[s.off : s.off+s.len]
}

// Blob returns drawlist-local blob i. Bounds were validated.
func (v *View) Blob(i uint32) []byte {
	s := v.blobSpans[i]
	return v.blobBytes[s.off : s.off+s.len]
}

// CmdCursor walks the validated command stream.
type CmdCursor struct {
	rest []byte
}

// Commands returns a cursor over the command stream.
func (v *View) Commands() CmdCursor { return CmdCursor{rest: v.cmds} }

// Next returns the next command, or false at the end of the stream.
func (c *CmdCursor) Next() (Command, bool) {
	if len(c.rest) < cmdHeaderSize {
		return Command{}, false
	}
	size := le.Uint32(c.rest[4:])
	cmd := Command{
		Opcode:  le.Uint16(c.rest[0:]),
		Flags:   le.Uint16(c.rest[2:]),
		Payload: c.rest[cmdHeaderSize:size:size],
	}
	c.rest = c.rest[size:]
	return cmd, true
}

type section struct {
	off uint32
	len uint32
}

// ValidateDrawlist parses and validates buf against the format rules and
// the configured limits, returning a read-only view. The input bytes are
// never modified. Violations of structural rules return ErrFormat, unknown
// versions or opcodes return ErrUnsupported, and limit overruns return
// ErrLimit.
func ValidateDrawlist(buf []byte, limits *Limits) (*View, error) {
	if limits == nil {
		return nil, ErrInvalidArgument
	}
	if len(buf) < drawlistHeaderSize {
		return nil, ErrFormat
	}
	if le.Uint32(buf[0:]) != DrawlistMagic {
		return nil, ErrFormat
	}
	version := le.Uint32(buf[4:])
	if version == 0 || version > DrawlistVersionCurrent {
		return nil, ErrUnsupported
	}
	headerSize := le.Uint32(buf[8:])
	totalSize := le.Uint32(buf[12:])
	if headerSize < drawlistHeaderSize || headerSize%4 != 0 {
		return nil, ErrFormat
	}
	if totalSize < headerSize || uint64(totalSize) > uint64(len(buf)) {
		return nil, ErrFormat
	}
	if totalSize > limits.DLMaxTotalBytes {
		return nil, ErrLimit
	}

	cmdOffset := le.Uint32(buf[16:])
	cmdBytes := le.Uint32(buf[20:])
	cmdCount := le.Uint32(buf[24:])
	stringsSpanOffset := le.Uint32(buf[28:])
	stringsCount := le.Uint32(buf[32:])
	stringsBytesOffset := le.Uint32(buf[36:])
	stringsBytesLen := le.Uint32(buf[40:])
	blobsSpanOffset := le.Uint32(buf[44:])
	blobsCount := le.Uint32(buf[48:])
	blobsBytesOffset := le.Uint32(buf[52:])
	blobsBytesLen := le.Uint32(buf[56:])

	if cmdCount > limits.DLMaxCmds {
		return nil, ErrLimit
	}
	if stringsCount > limits.DLMaxStrings || blobsCount > limits.DLMaxBlobs {
		return nil, ErrLimit
	}

	// Empty-table rule: a zero count forces zero offsets and lengths.
	if cmdCount == 0 && (cmdOffset != 0 || cmdBytes != 0) {
		return nil, ErrFormat
	}
	if cmdCount != 0 && cmdBytes == 0 {
		return nil, ErrFormat
	}
	if stringsCount == 0 && (stringsSpanOffset != 0 || stringsBytesOffset != 0 || stringsBytesLen != 0) {
		return nil, ErrFormat
	}
	if blobsCount == 0 && (blobsSpanOffset != 0 || blobsBytesOffset != 0 || blobsBytesLen != 0) {
		return nil, ErrFormat
	}

	sections := []section{{0, headerSize}}
	addSection := func(off, length uint32) error {
		if length == 0 {
			return nil
		}
		if off%4 != 0 {
			return ErrFormat
		}
		end := uint64(off) + uint64(length)
		if off < headerSize || end > uint64(totalSize) {
			return ErrFormat
		}
		sections = append(sections, section{off, length})
		return nil
	}
	if err := addSection(cmdOffset, cmdBytes); err != nil {
		return nil, err
	}
	if err := addSection(stringsSpanOffset, stringsCount*spanSize); err != nil {
		return nil, err
	}
	if err := addSection(stringsBytesOffset, stringsBytesLen); err != nil {
		return nil, err
	}
	if err := addSection(blobsSpanOffset, blobsCount*spanSize); err != nil {
		return nil, err
	}
	if err := addSection(blobsBytesOffset, blobsBytesLen); err != nil {
		return nil, err
	}
	// Non-overlap rule: sections are pairwise disjoint.
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			a, b := sections[i], sections[j]
			if a.off < b.off+b.len && b.off < a.off+a.len {
				return nil, ErrFormat
			}
		}
	}

	v := &View{version: version, cmdCount: cmdCount}
	if cmdBytes > 0 {
		v.cmds = buf[cmdOffset : cmdOffset+cmdBytes : cmdOffset+cmdBytes]
	}
	if stringsCount > 0 {
		v.stringBytes = buf[stringsBytesOffset : stringsBytesOffset+stringsBytesLen : stringsBytesOffset+stringsBytesLen]
		v.stringSpans = make([]span, stringsCount)
		for i := uint32(0); i < stringsCount; i++ {
			o := stringsSpanOffset + i*spanSize
			sp := span{off: le.Uint32(buf[o:]), len: le.Uint32(buf[o+4:])}
			if uint64(sp.off)+uint64(sp.len) > uint64(stringsBytesLen) {
				return nil, ErrFormat
			}
			v.stringSpans[i] = sp
		}
	}
	if blobsCount > 0 {
		v.blobBytes = buf[blobsBytesOffset : blobsBytesOffset+blobsBytesLen : blobsBytesOffset+blobsBytesLen]
		v.blobSpans = make([]span, blobsCount)
		for i := uint32(0); i < blobsCount; i++ {
			o := blobsSpanOffset + i*spanSize
			sp := span{off: le.Uint32(buf[o:]), len: le.Uint32(buf[o+4:])}
			if uint64(sp.off)+uint64(sp.len) > uint64(blobsBytesLen) {
				return nil, ErrFormat
			}
			v.blobSpans[i] = sp
		}
	}

	if err := v.validateCommands(limits); err != nil {
		return nil, err
	}
	return v, nil
}

// validateCommands walks the command stream once, checking per-command
// sizes, payload bounds, reference validity, and clip balance.
func (v *View) validateCommands(limits *Limits) error {
	rest := v.cmds
	seen := uint32(0)
	clipDepth := uint32(0)
	for len(rest) > 0 {
		if len(rest) < cmdHeaderSize {
			return ErrFormat
		}
		opcode := le.Uint16(rest[0:])
		flags := le.Uint16(rest[2:])
		size := le.Uint32(rest[4:])
		if size < cmdHeaderSize || size%4 != 0 || uint64(size) > uint64(len(rest)) {
			return ErrFormat
		}
		payload := rest[cmdHeaderSize:size]
		if err := v.validateCommand(opcode, flags, payload, size, limits, &clipDepth); err != nil {
			return err
		}
		rest = rest[size:]
		seen++
	}
	if seen != v.cmdCount {
		return ErrFormat
	}
	if clipDepth != 0 {
		return ErrFormat
	}
	return nil
}

func (v *View) validateCommand(opcode, flags uint16, payload []byte, size uint32, limits *Limits, clipDepth *uint32) error {
	fixed := func(want uint32) error {
		if size != want {
			return ErrFormat
		}
		return nil
	}
	switch opcode {
	case OpClear:
		return fixed(sizeClear)
	case OpPushClip:
		if err := fixed(sizePushClip); err != nil {
			return err
		}
		*clipDepth++
		if *clipDepth > limits.DLMaxClipDepth {
			return ErrLimit
		}
	case OpPopClip:
		if err := fixed(sizePopClip); err != nil {
			return err
		}
		if *clipDepth == 0 {
			return ErrFormat
		}
		*clipDepth--
	case OpFillRect:
		return fixed(sizeFillRect)
	case OpDrawText:
		want := uint32(sizeDrawText)
		if flags&CmdFlagStyleExt != 0 {
			want = sizeDrawTextEx
		}
		if err := fixed(want); err != nil {
			return err
		}
		if flags&CmdFlagUseResource == 0 {
			strRef := le.Uint32(payload[8:])
			byteOff := le.Uint32(payload[12:])
			byteLen := le.Uint32(payload[16:])
			if err := v.checkStringRange(strRef, byteOff, byteLen); err != nil {
				return err
			}
		}
		if flags&CmdFlagStyleExt != 0 {
			for _, ref := range []uint32{le.Uint32(payload[44:]), le.Uint32(payload[48:])} {
				if ref != linkRefNone && flags&CmdFlagUseResource == 0 {
					if int(ref) >= len(v.stringSpans) {
						return ErrFormat
					}
				}
			}
		}
	case OpDrawTextRun:
		if size < sizeTextRunHdr {
			return ErrFormat
		}
		segCount := le.Uint32(payload[12:])
		if segCount > limits.DLMaxTextRunSegments {
			return ErrLimit
		}
		if size != sizeTextRunHdr+segCount*sizeTextRunSeg {
			return ErrFormat
		}
		strRef := le.Uint32(payload[8:])
		for i := uint32(0); i < segCount; i++ {
			seg := payload[16+i*sizeTextRunSeg:]
			if flags&CmdFlagUseResource == 0 {
				if err := v.checkStringRange(strRef, le.Uint32(seg[0:]), le.Uint32(seg[4:])); err != nil {
					return err
				}
			}
		}
	case OpDefString, OpDefBlob:
		if size < sizeFreeRes {
			return ErrFormat
		}
		byteLen := le.Uint32(payload[4:])
		if size != uint32(cmdHeaderSize+8+pad4(int(byteLen))) {
			return ErrFormat
		}
	case OpFreeString, OpFreeBlob:
		return fixed(sizeFreeRes)
	case OpBlitRect:
		return fixed(sizeBlitRect)
	case OpDrawCanvas:
		if err := fixed(sizeDrawCanvas); err != nil {
			return err
		}
		if flags&CmdFlagUseResource == 0 {
			if int(le.Uint32(payload[16:])) >= len(v.blobSpans) {
				return ErrFormat
			}
		}
	case OpDrawImage:
		if err := fixed(sizeDrawImage); err != nil {
			return err
		}
		if flags&CmdFlagUseResource == 0 {
			if int(le.Uint32(payload[16:])) >= len(v.blobSpans) {
				return ErrFormat
			}
		}
	case OpSetCursor:
		if v.version < DrawlistVersion2 {
			return ErrUnsupported
		}
		return fixed(sizeSetCursor)
	default:
		return ErrUnsupported
	}
	return nil
}

func (v *View) checkStringRange(strRef, byteOff, byteLen uint32) error {
	if int(strRef) >= len(v.stringSpans) {
		return ErrFormat
	}
	sp := v.stringSpans[strRef]
	if uint64(byteOff)+uint64(byteLen) > uint64(sp.len) {
		return ErrFormat
	}
	return nil
}
