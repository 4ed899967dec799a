package quantizer

import (
	"errors"
	"math"
	"testing"

	"archconv/contracts"
)

var tones = []contracts.ToneMap{contracts.ToneNone, contracts.ToneGamma, contracts.TonePerceptual}

func TestCurve(t *testing.T) {
	tests := []struct {
		tone contracts.ToneMap
		in   float64
		want float64
	}{
		{contracts.ToneNone, 0.25, 0.25},
		{contracts.ToneNone, -1, 0},
		{contracts.ToneNone, 2, 1},
		{contracts.TonePerceptual, 0.25, 0.5},
		{contracts.ToneGamma, 1, 1},
		{contracts.ToneGamma, 0.5, math.Pow(0.5, 1/2.2)},
	}
	for _, tt := range tests {
		if got := Curve(tt.tone, tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Curve(%v, %v) = %v, want %v", tt.tone, tt.in, got, tt.want)
		}
	}
}

func TestQuantizeUnditheredIsPointwise(t *testing.T) {
	samples := []uint16{0, 1, 127, 128, 255, 256, 257, 1000, 32767, 32768, 40000, 65280, 65534, 65535}
	pix := make([]RGB16, len(samples))
	for i, v := range samples {
		pix[i] = RGB16{R: v, G: 65535 - v, B: v / 2}
	}

	for _, tone := range tones {
		out, err := Quantize(pix, len(pix), 1, tone, false)
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range pix {
			want := func(v uint16) uint8 {
				q := math.Round(Curve(tone, float64(v)/65535) * 255)
				return uint8(math.Max(0, math.Min(255, q)))
			}
			if out[i] != (RGB8{R: want(p.R), G: want(p.G), B: want(p.B)}) {
				t.Errorf("tone %v pixel %+v -> %+v", tone, p, out[i])
			}
		}

		// Neighbors do not matter: a single pixel gives the same result.
		single, _ := Quantize(pix[5:6], 1, 1, tone, false)
		if single[0] != out[5] {
			t.Errorf("tone %v: isolated pixel %+v != %+v", tone, single[0], out[5])
		}
	}
}

func TestQuantizeEndpoints(t *testing.T) {
	for _, tone := range tones {
		out, _ := Quantize([]RGB16{{R: 0, G: 0, B: 0}, {R: 65535, G: 65535, B: 65535}}, 2, 1, tone, false)
		if out[0] != (RGB8{}) || out[1] != (RGB8{R: 255, G: 255, B: 255}) {
			t.Errorf("tone %v endpoints = %+v", tone, out)
		}
	}
}

func TestDitherExactLevelsUnchanged(t *testing.T) {
	// k*257 maps exactly to level k, so there is no error to diffuse.
	w, h := 16, 16
	pix := make([]RGB16, w*h)
	for i := range pix {
		k := uint16(i % 256)
		pix[i] = RGB16{R: k * 257, G: (255 - k) * 257, B: 128 * 257}
	}
	plain, _ := Quantize(pix, w, h, contracts.ToneNone, false)
	dithered, _ := Quantize(pix, w, h, contracts.ToneNone, true)
	for i := range plain {
		if plain[i] != dithered[i] {
			t.Fatalf("pixel %d: %+v vs %+v", i, plain[i], dithered[i])
		}
	}
}

func TestDitherFlatColor(t *testing.T) {
	// 33096 is about 128.78 levels, 1000 about 3.89, 65000 about 252.92.
	w, h := 16, 16
	pix := make([]RGB16, w*h)
	for i := range pix {
		pix[i] = RGB16{R: 33096, G: 1000, B: 65000}
	}

	out, err := Quantize(pix, w, h, contracts.ToneNone, true)
	if err != nil {
		t.Fatal(err)
	}
	want := RGB8{R: 129, G: 4, B: 253}
	for i, p := range out {
		if p != want {
			t.Fatalf("pixel %d = %+v, want %+v", i, p, want)
		}
	}
}

func TestDitherMatchesPointwiseInRange(t *testing.T) {
	w, h := 23, 9
	pix := make([]RGB16, w*h)
	for i := range pix {
		pix[i] = RGB16{R: uint16(i * 311), G: uint16(65535 - i*97), B: uint16(i * i)}
	}
	for _, tone := range tones {
		plain, _ := Quantize(pix, w, h, tone, false)
		dithered, _ := Quantize(pix, w, h, tone, true)
		for i := range plain {
			if plain[i] != dithered[i] {
				t.Fatalf("tone %v pixel %d: %+v vs %+v", tone, i, plain[i], dithered[i])
			}
		}
	}
}

func TestDitherRowClampsAndDiffuses(t *testing.T) {
	src := []RGB16{
		{R: 2 * 257, G: 253 * 257, B: 0},
		{R: 2 * 257, G: 253 * 257, B: 0},
		{R: 2 * 257, G: 253 * 257, B: 0},
	}
	dst := make([]RGB8, len(src))
	cur := make([]int32, len(src)*3)
	next := make([]int32, len(src)*3)
	// five levels of inbound error pushes R below 0 and G above 255
	cur[0], cur[1] = -80, 80

	ditherRow(src, dst, contracts.ToneNone, cur, next, true)

	// R: 2-5 = -3 clamps to 0, error -48. The right neighbor gets -21, which
	// truncates to -1 level. G mirrors it above 255.
	want := []RGB8{{R: 0, G: 255, B: 0}, {R: 1, G: 254, B: 0}, {R: 2, G: 253, B: 0}}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %+v, want %+v", i, dst[i], want[i])
		}
	}
	wantNext := []int32{-15, 15, 0, -3, 3, 0, 0, 0, 0}
	for i := range wantNext {
		if next[i] != wantNext[i] {
			t.Errorf("next = %v, want %v", next, wantNext)
			break
		}
	}

	// last row: nothing flows down
	clear(next)
	cur = []int32{-80, 80, 0, 0, 0, 0, 0, 0, 0}
	ditherRow(src, dst, contracts.ToneNone, cur, next, false)
	for _, e := range next {
		if e != 0 {
			t.Fatalf("error diffused below the last row: %v", next)
		}
	}
	if dst[0] != want[0] || dst[1] != want[1] {
		t.Errorf("last row = %+v", dst)
	}
}

func TestDitherDeterministic(t *testing.T) {
	w, h := 31, 17
	pix := make([]RGB16, w*h)
	for i := range pix {
		pix[i] = RGB16{R: uint16(i * 97), G: uint16(i * 1031), B: uint16(65535 - i*13)}
	}
	a, _ := Quantize(pix, w, h, contracts.ToneGamma, true)
	b, _ := Quantize(pix, w, h, contracts.ToneGamma, true)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d differs between runs", i)
		}
	}
}

func TestQuantizeShape(t *testing.T) {
	_, err := Quantize(make([]RGB16, 5), 2, 3, contracts.ToneNone, true)
	if !errors.Is(err, contracts.ErrPixelShape) {
		t.Errorf("expected pixel shape error, got %v", err)
	}
	out, err := Quantize(nil, 0, 0, contracts.ToneNone, true)
	if err != nil || len(out) != 0 {
		t.Errorf("empty image: %v %v", out, err)
	}
}
