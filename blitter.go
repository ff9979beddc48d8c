package zireael

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// BlitterMode selects how DRAW_CANVAS lowers a pixel blob into cells.
type BlitterMode uint32

const (
	BlitterAuto BlitterMode = iota
	BlitterASCII
	BlitterHalfblock
	BlitterQuadrant
	BlitterSextant
	BlitterBraille
	BlitterPixel
)

// Pixels-per-cell geometry for each concrete mode.
func blitterGeometry(mode BlitterMode) (subW, subH int) {
	switch mode {
	case BlitterHalfblock:
		return 1, 2
	case BlitterQuadrant:
		return 2, 2
	case BlitterSextant:
		return 2, 3
	case BlitterBraille:
		return 2, 4
	default:
		return 1, 1
	}
}

// ResolveBlitter maps a requested mode to a concrete one under the
// capability model. It is a pure function of (caps, profile, request).
// AUTO picks ASCII on dumb terminals or pipes, otherwise the densest of
// sextant, quadrant, halfblock the profile supports; braille is only used
// when explicitly requested. PIXEL requires a negotiated terminal-native
// image protocol.
func ResolveBlitter(request BlitterMode, caps PlatformCaps, profile *TerminalProfile) (BlitterMode, error) {
	p := profile
	if p == nil {
		def := DefaultProfile()
		p = &def
	}
	switch request {
	case BlitterAuto:
		if p.DumbTerminal || p.PipeMode {
			return BlitterASCII, nil
		}
		switch {
		case p.SupportsSextants:
			return BlitterSextant, nil
		case p.SupportsQuadrants:
			return BlitterQuadrant, nil
		case p.SupportsHalfblocks:
			return BlitterHalfblock, nil
		}
		return BlitterASCII, nil
	case BlitterASCII:
		return BlitterASCII, nil
	case BlitterHalfblock, BlitterQuadrant, BlitterSextant, BlitterBraille:
		if p.DumbTerminal || p.PipeMode {
			return BlitterASCII, nil
		}
		return request, nil
	case BlitterPixel:
		if p.ImageProtocol == ImageProtocolNone {
			return 0, ErrUnsupported
		}
		return BlitterPixel, nil
	}
	return 0, ErrInvalidArgument
}

// canvasBlob reads the self-describing pixel blob header: width, height,
// then RGBA bytes.
func canvasBlob(blob []byte) (pxW, pxH int, rgba []byte, err error) {
	if len(blob) < 8 {
		return 0, 0, nil, ErrInvalidArgument
	}
	pxW = int(le.Uint32(blob[0:]))
	pxH = int(le.Uint32(blob[4:]))
	if pxW <= 0 || pxH <= 0 {
		return 0, 0, nil, ErrInvalidArgument
	}
	rgba = blob[8:]
	if len(rgba) < pxW*pxH*4 {
		return 0, 0, nil, ErrInvalidArgument
	}
	return pxW, pxH, rgba, nil
}

func pixelAt(rgba []byte, pxW, x, y int) (r, g, b uint32) {
	o := (y*pxW + x) * 4
	return uint32(rgba[o]), uint32(rgba[o+1]), uint32(rgba[o+2])
}

func luma(r, g, b uint32) uint32 {
	return (r*2126 + g*7152 + b*722) / 10000
}

// sextantRune maps a 6-bit sextant pattern (bit0 top-left, bit1
// top-right, ... bit5 bottom-right) to its glyph. Patterns 0, 21, 42, 63
// are the legacy blocks missing from the U+1FB00 range.
func sextantRune(bits int) rune {
	switch bits {
	case 0:
		return ' '
	case 21:
		return '▌'
	case 42:
		return '▐'
	case 63:
		return '█'
	}
	r := rune(0x1FB00 + bits - 1)
	if bits > 21 {
		r--
	}
	if bits > 42 {
		r--
	}
	return r
}

// quadrantRunes maps a 4-bit quadrant pattern (bit0 top-left, bit1
// top-right, bit2 bottom-left, bit3 bottom-right).
var quadrantRunes = [16]rune{
	' ', '▘', '▝', '▀', '▖', '▌', '▞', '▛',
	'▗', '▚', '▐', '▜', '▄', '▙', '▟', '█',
}

// brailleBit maps a (dx, dy) dot position to its braille pattern bit.
var brailleBit = [2][4]int{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

var asciiRamp = []byte(" .:-=+*#%@")

// blitCanvas lowers a pixel blob onto the painter's framebuffer covering
// wCells x hCells cells at (x, y) through a concrete (non-AUTO, non-PIXEL)
// blitter mode. Pixels are sampled nearest-neighbor when the blob geometry
// does not match the cell grid exactly.
func blitCanvas(p *Painter, x, y, wCells, hCells int, blob []byte, mode BlitterMode) error {
	pxW, pxH, rgba, err := canvasBlob(blob)
	if err != nil {
		return err
	}
	subW, subH := blitterGeometry(mode)
	gridW := wCells * subW
	gridH := hCells * subH

	for cy := 0; cy < hCells; cy++ {
		for cx := 0; cx < wCells; cx++ {
			var onR, onG, onB, onN uint32
			var offR, offG, offB, offN uint32
			bits := 0
			// First pass: average luminance over the cell block.
			var lumSum, n uint32
			for sy := 0; sy < subH; sy++ {
				for sx := 0; sx < subW; sx++ {
					px := (cx*subW + sx) * pxW / gridW
					py := (cy*subH + sy) * pxH / gridH
					r, g, b := pixelAt(rgba, pxW, px, py)
					lumSum += luma(r, g, b)
					n++
				}
			}
			threshold := lumSum / n
			for sy := 0; sy < subH; sy++ {
				for sx := 0; sx < subW; sx++ {
					px := (cx*subW + sx) * pxW / gridW
					py := (cy*subH + sy) * pxH / gridH
					r, g, b := pixelAt(rgba, pxW, px, py)
					if luma(r, g, b) >= threshold {
						bits |= subBit(mode, sx, sy)
						onR += r
						onG += g
						onB += b
						onN++
					} else {
						offR += r
						offG += g
						offB += b
						offN++
					}
				}
			}
			style := Style{}
			if onN > 0 {
				style.FG = packRGB(onR/onN, onG/onN, onB/onN)
			}
			if offN > 0 {
				style.BG = packRGB(offR/offN, offG/offN, offB/offN)
			}
			glyph := blockGlyph(mode, bits, threshold)
			p.PutGrapheme(x+cx, y+cy, glyph, 1, style)
		}
	}
	return nil
}

func subBit(mode BlitterMode, sx, sy int) int {
	switch mode {
	case BlitterHalfblock:
		return 1 << sy
	case BlitterQuadrant:
		return 1 << (sy*2 + sx)
	case BlitterSextant:
		return 1 << (sy*2 + sx)
	case BlitterBraille:
		return brailleBit[sx][sy]
	}
	return 1
}

func blockGlyph(mode BlitterMode, bits int, meanLuma uint32) []byte {
	switch mode {
	case BlitterHalfblock:
		switch bits {
		case 0:
			return []byte(" ")
		case 1:
			return []byte("▀")
		case 2:
			return []byte("▄")
		default:
			return []byte("█")
		}
	case BlitterQuadrant:
		return []byte(string(quadrantRunes[bits&15]))
	case BlitterSextant:
		return []byte(string(sextantRune(bits & 63)))
	case BlitterBraille:
		return []byte(string(rune(0x2800 + bits)))
	default: // ASCII: ramp on the cell's mean luminance
		idx := int(meanLuma) * (len(asciiRamp) - 1) / 255
		if idx >= len(asciiRamp) {
			idx = len(asciiRamp) - 1
		}
		return asciiRamp[idx : idx+1]
	}
}

func packRGB(r, g, b uint32) uint32 {
	return r<<16 | g<<8 | b
}

// blitImageFallback lowers an RGBA image to bg-colored spaces by averaging
// the source over each destination cell. The source is scaled to the cell
// grid with x/image's approximate bilinear kernel first.
func blitImageFallback(p *Painter, x, y, wCells, hCells int, pxW, pxH int, rgba []byte) {
	src := &image.RGBA{
		Pix:    rgba[:pxW*pxH*4],
		Stride: pxW * 4,
		Rect:   image.Rect(0, 0, pxW, pxH),
	}
	dst := image.NewRGBA(image.Rect(0, 0, wCells, hCells))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	for cy := 0; cy < hCells; cy++ {
		for cx := 0; cx < wCells; cx++ {
			o := dst.PixOffset(cx, cy)
			style := Style{BG: packRGB(uint32(dst.Pix[o]), uint32(dst.Pix[o+1]), uint32(dst.Pix[o+2]))}
			p.PutGrapheme(x+cx, y+cy, []byte(" "), 1, style)
		}
	}
}
