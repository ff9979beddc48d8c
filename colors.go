package zireael

import "github.com/lucasb-eyer/go-colorful"

// cubeLevels are the xterm-256 color-cube component values. Quantization
// picks the nearest level per channel; index = 16 + 36r + 6g + b.
var cubeLevels = [6]uint32{0, 95, 135, 175, 215, 255}

// ansi16 is the reference palette for the 16-color lowering: the eight
// standard colors followed by their bright variants.
var ansi16 = [16][3]uint32{
	{0, 0, 0}, {205, 49, 49}, {13, 188, 121}, {229, 229, 16},
	{36, 114, 200}, {188, 63, 188}, {17, 168, 205}, {229, 229, 229},
	{102, 102, 102}, {241, 76, 76}, {35, 209, 139}, {245, 245, 67},
	{59, 142, 234}, {214, 112, 214}, {41, 184, 219}, {255, 255, 255},
}

func nearestCubeIndex(c uint32) int {
	best := 0
	bestDist := uint32(1 << 30)
	for i, level := range cubeLevels {
		d := level - c
		if c > level {
			d = c - level
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func toColorful(r, g, b uint32) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// RGBTo256 quantizes a packed 0xRRGGBB color to the xterm-256 palette.
// The 6x6x6 cube mapping is authoritative; the grayscale ramp is preferred
// only when the three cube indices agree and the channels are nearly equal,
// and then only when the ramp entry is strictly nearer than the cube entry.
func RGBTo256(rgb uint32) uint8 {
	r := rgb >> 16 & 0xFF
	g := rgb >> 8 & 0xFF
	b := rgb & 0xFF
	ri := nearestCubeIndex(r)
	gi := nearestCubeIndex(g)
	bi := nearestCubeIndex(b)
	cubeIdx := 16 + 36*ri + 6*gi + bi

	if ri == gi && gi == bi && absDiff(r, g) <= 10 && absDiff(g, b) <= 10 {
		gray := (r + g + b) / 3
		step := int(gray)
		ramp := (step - 8) / 10
		if ramp < 0 {
			ramp = 0
		}
		if ramp > 23 {
			ramp = 23
		}
		rampVal := uint32(8 + ramp*10)
		cubeVal := cubeLevels[ri]
		want := toColorful(r, g, b)
		if want.DistanceRgb(toColorful(rampVal, rampVal, rampVal)) <
			want.DistanceRgb(toColorful(cubeVal, cubeVal, cubeVal)) {
			return uint8(232 + ramp)
		}
	}
	return uint8(cubeIdx)
}

// RGBTo16 quantizes a packed 0xRRGGBB color to the nearest of the 16 ANSI
// colors, returned as an index 0..15.
func RGBTo16(rgb uint32) uint8 {
	want := toColorful(rgb>>16&0xFF, rgb>>8&0xFF, rgb&0xFF)
	best := 0
	bestDist := 1e9
	for i, c := range ansi16 {
		d := want.DistanceRgb(toColorful(c[0], c[1], c[2]))
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}

// ansi16FG returns the SGR foreground code for a 16-color index
// (30-37 normal, 90-97 bright).
func ansi16FG(idx uint8) int {
	if idx < 8 {
		return 30 + int(idx)
	}
	return 90 + int(idx-8)
}

// ansi16BG returns the SGR background code for a 16-color index
// (40-47 normal, 100-107 bright).
func ansi16BG(idx uint8) int {
	if idx < 8 {
		return 40 + int(idx)
	}
	return 100 + int(idx-8)
}
