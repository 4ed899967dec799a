// Package quantizer reduces 16-bit RGB buffers to 8 bits per channel with an
// optional tone curve and Floyd-Steinberg error diffusion.
package quantizer

import (
	"math"

	"archconv/contracts"
)

type RGB8 = contracts.RGB8
type RGB16 = contracts.RGB16

// Curve maps a normalized channel value to a normalized output value.
func Curve(tone contracts.ToneMap, x float64) float64 {
	x = clamp01(x)
	switch tone {
	case contracts.ToneGamma:
		x = math.Pow(x, 1/2.2)
	case contracts.TonePerceptual:
		x = math.Sqrt(x)
	}
	return clamp01(x)
}

// Level is the undithered 8-bit value of a 16-bit sample.
func Level(tone contracts.ToneMap, v uint16) uint8 {
	q := math.Round(Curve(tone, float64(v)/65535) * 255)
	return uint8(max(0, min(255, q)))
}

// Quantize converts pix to 8 bits. The result has the same length and order.
// With dither set the conversion is a raster-order error diffusion and is
// fully deterministic.
func Quantize(pix []RGB16, width, height int, tone contracts.ToneMap, dither bool) ([]RGB8, error) {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return nil, err
	}
	out := make([]RGB8, len(pix))
	if !dither {
		lut := newLUT(tone)
		for i, p := range pix {
			out[i] = RGB8{R: lut.level(p.R), G: lut.level(p.G), B: lut.level(p.B)}
		}
		return out, nil
	}

	cur := make([]int32, width*3)
	next := make([]int32, width*3)
	for y := 0; y < height; y++ {
		clear(next)
		row := y * width
		ditherRow(pix[row:row+width], out[row:row+width], tone, cur, next, y+1 < height)
		cur, next = next, cur
		clear(cur)
	}
	return out, nil
}

// ditherRow diffuses one row. cur holds the error flowing into this row and
// next collects the error for the row below. Both are in 1/16 of an output
// level. The inbound error is truncated to whole levels before it is added, so
// only clamped values produce new error.
func ditherRow(src []RGB16, dst []RGB8, tone contracts.ToneMap, cur, next []int32, hasBelow bool) {
	w := len(src)
	for x, p := range src {
		var q [3]uint8
		for c, v := range [3]uint16{p.R, p.G, p.B} {
			base := int32(math.Round(Curve(tone, float64(v)/65535) * 255))
			val := base + cur[x*3+c]/16
			level := max(0, min(255, val))
			q[c] = uint8(level)

			e := (val - level) * 16
			if x+1 < w {
				cur[(x+1)*3+c] += e * 7 / 16
			}
			if hasBelow {
				if x > 0 {
					next[(x-1)*3+c] += e * 3 / 16
				}
				next[x*3+c] += e * 5 / 16
				if x+1 < w {
					next[(x+1)*3+c] += e * 1 / 16
				}
			}
		}
		dst[x] = RGB8{R: q[0], G: q[1], B: q[2]}
	}
}

// lut caches Level for every 16-bit input.
type lut struct {
	table [65536]uint8
}

func newLUT(tone contracts.ToneMap) *lut {
	l := new(lut)
	for v := range l.table {
		l.table[v] = Level(tone, uint16(v))
	}
	return l
}

func (l *lut) level(v uint16) uint8 { return l.table[v] }

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
