package zireael

import "encoding/binary"

// Drawlist wire format: little-endian, 4-byte aligned throughout.
const (
	// DrawlistMagic is 'ZRDL'; little-endian serialization pins the wire
	// bytes to 4C 44 52 5A.
	DrawlistMagic uint32 = 0x5A52444C

	DrawlistVersion1       uint32 = 1
	DrawlistVersion2       uint32 = 2
	DrawlistVersionCurrent        = DrawlistVersion2

	drawlistHeaderSize = 64
	cmdHeaderSize      = 8
	spanSize           = 8
	styleWireSize      = 16
	styleExtWireSize   = 12
)

// Opcodes. Numeric IDs are stable across versions.
const (
	OpClear       uint16 = 1
	OpPushClip    uint16 = 2
	OpPopClip     uint16 = 3
	OpFillRect    uint16 = 4
	OpDrawText    uint16 = 5
	OpDrawTextRun uint16 = 6
	OpDefString   uint16 = 7
	OpFreeString  uint16 = 8
	OpDefBlob     uint16 = 9
	OpFreeBlob    uint16 = 10
	OpBlitRect    uint16 = 11
	OpDrawCanvas  uint16 = 12
	OpDrawImage   uint16 = 13
	OpSetCursor   uint16 = 14 // v2+
)

// Command flag bits.
const (
	// CmdFlagStyleExt extends DRAW_TEXT's style with underline color and a
	// hyperlink (uri, id) string pair.
	CmdFlagStyleExt uint16 = 1 << 0
	// CmdFlagUseResource makes string/blob references resolve against the
	// persistent DEF_STRING/DEF_BLOB tables instead of the drawlist-local
	// tables.
	CmdFlagUseResource uint16 = 1 << 1
)

// Total command sizes (header included) for the fixed-size opcodes.
const (
	sizeClear      = 8
	sizePushClip   = 24
	sizePopClip    = 8
	sizeFillRect   = 40
	sizeDrawText   = 48
	sizeDrawTextEx = 60
	sizeFreeRes    = 16
	sizeBlitRect   = 32
	sizeDrawCanvas = 32
	sizeDrawImage  = 40
	sizeSetCursor  = 20
	sizeTextRunHdr = 24 // command header + x, y, strRef, segCount
	sizeTextRunSeg = 24 // byteOff, byteLen, style
)

// linkRefNone marks an absent hyperlink string ref in the extended style.
const linkRefNone = 0xFFFFFFFF

// DrawImage blob formats.
const (
	ImageFormatRGBA uint32 = 0
	ImageFormatPNG  uint32 = 1
)

func pad4(n int) int { return (n + 3) &^ 3 }

var le = binary.LittleEndian

func putStyleWire(b []byte, s Style) {
	le.PutUint32(b[0:], s.FG)
	le.PutUint32(b[4:], s.BG)
	le.PutUint32(b[8:], uint32(s.Attrs))
	le.PutUint32(b[12:], uint32(s.Underline))
}

func getStyleWire(b []byte) Style {
	return Style{
		FG:        le.Uint32(b[0:]),
		BG:        le.Uint32(b[4:]),
		Attrs:     Attr(le.Uint32(b[8:])),
		Underline: UnderlineStyle(le.Uint32(b[12:]) & 0xFF),
	}
}

// TextSegment is one styled slice of a DRAW_TEXT_RUN string.
type TextSegment struct {
	ByteOff uint32
	ByteLen uint32
	Style   Style
}

// LinkSpec names a hyperlink by content for the extended text style.
type LinkSpec struct {
	URI string
	ID  string
}

// DrawlistBuilder serializes a command stream into the versioned binary
// drawlist format. Callers add strings and blobs, emit commands referencing
// them by index, and call Finish for the final byte stream.
type DrawlistBuilder struct {
	version uint32
	cmds    []byte
	count   uint32
	strings [][]byte
	blobs   [][]byte
}

// NewDrawlistBuilder creates a builder targeting the given format version.
func NewDrawlistBuilder(version uint32) *DrawlistBuilder {
	if version == 0 || version > DrawlistVersionCurrent {
		version = DrawlistVersionCurrent
	}
	return &DrawlistBuilder{version: version}
}

// AddString registers bytes in the drawlist-local string table and returns
// the index commands reference it by.
func (b *DrawlistBuilder) AddString(s []byte) uint32 {
	b.strings = append(b.strings, append([]byte(nil), s...))
	return uint32(len(b.strings) - 1)
}

// AddBlob registers bytes in the drawlist-local blob table.
func (b *DrawlistBuilder) AddBlob(blob []byte) uint32 {
	b.blobs = append(b.blobs, append([]byte(nil), blob...))
	return uint32(len(b.blobs) - 1)
}

func (b *DrawlistBuilder) cmd(opcode uint16, flags uint16, payloadLen int) []byte {
	size := cmdHeaderSize + pad4(payloadLen)
	off := len(b.cmds)
	b.cmds = append(b.cmds, make([]byte, size)...)
	le.PutUint16(b.cmds[off:], opcode)
	le.PutUint16(b.cmds[off+2:], flags)
	le.PutUint32(b.cmds[off+4:], uint32(size))
	b.count++
	return b.cmds[off+cmdHeaderSize : off+size]
}

// Clear emits a CLEAR of the whole grid to the default style.
func (b *DrawlistBuilder) Clear() {
	b.cmd(OpClear, 0, 0)
}

// PushClip emits a PUSH_CLIP of the given cell rect.
func (b *DrawlistBuilder) PushClip(x, y, w, h int) {
	p := b.cmd(OpPushClip, 0, 16)
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], uint32(int32(w)))
	le.PutUint32(p[12:], uint32(int32(h)))
}

// PopClip emits a POP_CLIP.
func (b *DrawlistBuilder) PopClip() {
	b.cmd(OpPopClip, 0, 0)
}

// FillRect emits a FILL_RECT of spaces in the given style.
func (b *DrawlistBuilder) FillRect(x, y, w, h int, style Style) {
	p := b.cmd(OpFillRect, 0, 32)
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], uint32(int32(w)))
	le.PutUint32(p[12:], uint32(int32(h)))
	putStyleWire(p[16:], style)
}

// DrawText emits a DRAW_TEXT over a byte range of string strRef.
func (b *DrawlistBuilder) DrawText(x, y int, strRef, byteOff, byteLen uint32, style Style) {
	p := b.cmd(OpDrawText, 0, 40)
	b.putTextPayload(p, x, y, strRef, byteOff, byteLen, style)
}

// DrawTextLinked is DrawText with the extended style: underline color and a
// hyperlink. Empty link content means no link.
func (b *DrawlistBuilder) DrawTextLinked(x, y int, strRef, byteOff, byteLen uint32, style Style, link LinkSpec) {
	p := b.cmd(OpDrawText, CmdFlagStyleExt, 52)
	b.putTextPayload(p, x, y, strRef, byteOff, byteLen, style)
	le.PutUint32(p[40:], style.UnderlineRGB)
	uriRef := uint32(linkRefNone)
	idRef := uint32(linkRefNone)
	if link.URI != "" {
		uriRef = b.AddString([]byte(link.URI))
	}
	if link.ID != "" {
		idRef = b.AddString([]byte(link.ID))
	}
	le.PutUint32(p[44:], uriRef)
	le.PutUint32(p[48:], idRef)
}

func (b *DrawlistBuilder) putTextPayload(p []byte, x, y int, strRef, byteOff, byteLen uint32, style Style) {
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], strRef)
	le.PutUint32(p[12:], byteOff)
	le.PutUint32(p[16:], byteLen)
	le.PutUint32(p[20:], 0)
	putStyleWire(p[24:], style)
}

// DrawTextStr adds text to the string table and emits a DRAW_TEXT over all
// of it.
func (b *DrawlistBuilder) DrawTextStr(x, y int, text string, style Style) {
	ref := b.AddString([]byte(text))
	b.DrawText(x, y, ref, 0, uint32(len(text)), style)
}

// DrawTextRun emits a DRAW_TEXT_RUN partitioning string strRef across
// per-segment styles.
func (b *DrawlistBuilder) DrawTextRun(x, y int, strRef uint32, segs []TextSegment) {
	p := b.cmd(OpDrawTextRun, 0, 16+sizeTextRunSeg*len(segs))
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], strRef)
	le.PutUint32(p[12:], uint32(len(segs)))
	off := 16
	for _, s := range segs {
		le.PutUint32(p[off:], s.ByteOff)
		le.PutUint32(p[off+4:], s.ByteLen)
		putStyleWire(p[off+8:], s.Style)
		off += sizeTextRunSeg
	}
}

// BlitRect emits a same-framebuffer BLIT_RECT.
func (b *DrawlistBuilder) BlitRect(srcX, srcY, w, h, dstX, dstY int) {
	p := b.cmd(OpBlitRect, 0, 24)
	le.PutUint32(p[0:], uint32(int32(srcX)))
	le.PutUint32(p[4:], uint32(int32(srcY)))
	le.PutUint32(p[8:], uint32(int32(w)))
	le.PutUint32(p[12:], uint32(int32(h)))
	le.PutUint32(p[16:], uint32(int32(dstX)))
	le.PutUint32(p[20:], uint32(int32(dstY)))
}

// DrawCanvas emits a DRAW_CANVAS lowering a pixel blob into a cell rect
// through the given blitter mode.
func (b *DrawlistBuilder) DrawCanvas(x, y, wCells, hCells int, blobRef uint32, mode BlitterMode) {
	p := b.cmd(OpDrawCanvas, 0, 24)
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], uint32(int32(wCells)))
	le.PutUint32(p[12:], uint32(int32(hCells)))
	le.PutUint32(p[16:], blobRef)
	le.PutUint32(p[20:], uint32(mode))
}

// DrawImage emits a DRAW_IMAGE placing an image blob over a cell rect.
func (b *DrawlistBuilder) DrawImage(x, y, wCells, hCells int, blobRef, format uint32) {
	p := b.cmd(OpDrawImage, 0, 32)
	le.PutUint32(p[0:], uint32(int32(x)))
	le.PutUint32(p[4:], uint32(int32(y)))
	le.PutUint32(p[8:], uint32(int32(wCells)))
	le.PutUint32(p[12:], uint32(int32(hCells)))
	le.PutUint32(p[16:], blobRef)
	le.PutUint32(p[20:], format)
	le.PutUint32(p[24:], 0)
	le.PutUint32(p[28:], 0)
}

// SetCursor emits a SET_CURSOR (v2+ only).
func (b *DrawlistBuilder) SetCursor(c CursorState) {
	p := b.cmd(OpSetCursor, 0, 12)
	le.PutUint32(p[0:], uint32(int32(c.X)))
	le.PutUint32(p[4:], uint32(int32(c.Y)))
	packed := uint32(0)
	if c.Visible {
		packed |= 1
	}
	packed |= uint32(c.Shape) << 8
	if c.Blink {
		packed |= 1 << 16
	}
	le.PutUint32(p[8:], packed)
}

// DefString emits a DEF_STRING defining persistent resource id.
func (b *DrawlistBuilder) DefString(id uint32, bytes []byte) {
	p := b.cmd(OpDefString, 0, 8+len(bytes))
	le.PutUint32(p[0:], id)
	le.PutUint32(p[4:], uint32(len(bytes)))
	copy(p[8:], bytes)
}

// FreeString emits a FREE_STRING releasing persistent resource id.
func (b *DrawlistBuilder) FreeString(id uint32) {
	p := b.cmd(OpFreeString, 0, 8)
	le.PutUint32(p[0:], id)
}

// DefBlob emits a DEF_BLOB defining persistent blob resource id.
func (b *DrawlistBuilder) DefBlob(id uint32, bytes []byte) {
	p := b.cmd(OpDefBlob, 0, 8+len(bytes))
	le.PutUint32(p[0:], id)
	le.PutUint32(p[4:], uint32(len(bytes)))
	copy(p[8:], bytes)
}

// FreeBlob emits a FREE_BLOB releasing persistent blob resource id.
func (b *DrawlistBuilder) FreeBlob(id uint32) {
	p := b.cmd(OpFreeBlob, 0, 8)
	le.PutUint32(p[0:], id)
}

// Finish lays out and returns the complete drawlist byte stream.
func (b *DrawlistBuilder) Finish() []byte {
	cmdBytes := len(b.cmds)
	stringsBytesLen := 0
	for _, s := range b.strings {
		stringsBytesLen += len(s)
	}
	blobsBytesLen := 0
	for _, bl := range b.blobs {
		blobsBytesLen += len(bl)
	}

	off := drawlistHeaderSize
	cmdOffset := 0
	if cmdBytes > 0 {
		cmdOffset = off
		off += pad4(cmdBytes)
	}
	stringsSpanOffset, stringsBytesOffset := 0, 0
	if len(b.strings) > 0 {
		stringsSpanOffset = off
		off += spanSize * len(b.strings)
		stringsBytesOffset = off
		off += pad4(stringsBytesLen)
	}
	blobsSpanOffset, blobsBytesOffset := 0, 0
	if len(b.blobs) > 0 {
		blobsSpanOffset = off
		off += spanSize * len(b.blobs)
		blobsBytesOffset = off
		off += pad4(blobsBytesLen)
	}
	total := off

	out := make([]byte, total)
	le.PutUint32(out[0:], DrawlistMagic)
	le.PutUint32(out[4:], b.version)
	le.PutUint32(out[8:], drawlistHeaderSize)
	le.PutUint32(out[12:], uint32(total))
	le.PutUint32(out[16:], uint32(cmdOffset))
	le.PutUint32(out[20:], uint32(cmdBytes))
	le.PutUint32(out[24:], b.count)
	le.PutUint32(out[28:], uint32(stringsSpanOffset))
	le.PutUint32(out[32:], uint32(len(b.strings)))
	le.PutUint32(out[36:], uint32(stringsBytesOffset))
	le.PutUint32(out[40:], uint32(stringsBytesLen))
	le.PutUint32(out[44:], uint32(blobsSpanOffset))
	le.PutUint32(out[48:], uint32(len(b.blobs)))
	le.PutUint32(out[52:], uint32(blobsBytesOffset))
	le.PutUint32(out[56:], uint32(blobsBytesLen))
	le.PutUint32(out[60:], 0)

	copy(out[cmdOffset:], b.cmds)
	pos := 0
	for i, s := range b.strings {
		le.PutUint32(out[stringsSpanOffset+i*spanSize:], uint32(pos))
		le.PutUint32(out[stringsSpanOffset+i*spanSize+4:], uint32(len(s)))
		copy(out[stringsBytesOffset+pos:], s)
		pos += len(s)
	}
	pos = 0
	for i, bl := range b.blobs {
		le.PutUint32(out[blobsSpanOffset+i*spanSize:], uint32(pos))
		le.PutUint32(out[blobsSpanOffset+i*spanSize+4:], uint32(len(bl)))
		copy(out[blobsBytesOffset+pos:], bl)
		pos += len(bl)
	}
	return out
}
