package tiff_writer

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"archconv/contracts"
	"archconv/tiff_reader"
)

func gradient8(w, h int) []RGB8 {
	pix := make([]RGB8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = RGB8{R: uint8(x), G: uint8(y), B: uint8(x ^ y)}
		}
	}
	return pix
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestWriteRGB8RoundTrip(t *testing.T) {
	// more rows than one strip, with a short final strip
	w, h := 37, RowsPerStrip8*2+5
	pix := gradient8(w, h)
	icc := bytes.Repeat([]byte{1, 2, 3}, 401)
	xres := contracts.Rational{Num: 400, Den: 1}
	meta := &contracts.TiffMeta{XRes: &xres}

	path := filepath.Join(t.TempDir(), "out.tif")
	if err := WriteRGB8(path, w, h, pix, icc, meta, Options{}); err != nil {
		t.Fatalf("WriteRGB8: %v", err)
	}

	img := decode(t, path)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("bounds = %v", b)
	}
	for _, pt := range []image.Point{{0, 0}, {36, 0}, {5, 130}, {36, h - 1}} {
		r, g, b, _ := img.At(pt.X, pt.Y).RGBA()
		want := pix[pt.Y*w+pt.X]
		if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
			t.Errorf("pixel %v = %d,%d,%d want %+v", pt, r>>8, g>>8, b>>8, want)
		}
	}

	got, err := tiff_reader.ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if !bytes.Equal(got.ICC, icc) {
		t.Errorf("ICC not preserved: %d bytes", len(got.ICC))
	}
	if got.XRes == nil || *got.XRes != xres || got.YRes == nil || *got.YRes != xres {
		t.Errorf("resolution = %v x %v", got.XRes, got.YRes)
	}
	if got.Unit == nil || *got.Unit != contracts.UnitInch {
		t.Errorf("unit = %v", got.Unit)
	}

	if err := Verify(path, w, h, icc); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := Verify(path, w, h, nil); err == nil {
		t.Error("Verify without profile should reject an embedded profile")
	}
}

func TestWriteRGB16RoundTrip(t *testing.T) {
	w, h := 9, RowsPerStrip16+1
	pix := make([]RGB16, w*h)
	for i := range pix {
		pix[i] = RGB16{R: uint16(i * 101), G: 0xFFFF, B: uint16(0x1234 + i)}
	}

	path := filepath.Join(t.TempDir(), "deep.tif")
	if err := WriteRGB16(path, w, h, pix, nil, nil, Options{DefaultDPI: 300}); err != nil {
		t.Fatalf("WriteRGB16: %v", err)
	}

	img := decode(t, path)
	for _, i := range []int{0, 1, w * RowsPerStrip16, len(pix) - 1} {
		x, y := i%w, i/w
		r, g, b, _ := img.At(x, y).RGBA()
		if uint16(r) != pix[i].R || uint16(g) != pix[i].G || uint16(b) != pix[i].B {
			t.Errorf("pixel %d = %04x,%04x,%04x want %+v", i, r, g, b, pix[i])
		}
	}

	got, err := tiff_reader.ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if got.ICC != nil {
		t.Errorf("unexpected ICC of %d bytes", len(got.ICC))
	}
	want := contracts.Rational{Num: 300, Den: 1}
	if got.XRes == nil || *got.XRes != want || got.YRes == nil || *got.YRes != want {
		t.Errorf("resolution = %v x %v", got.XRes, got.YRes)
	}
	if err := Verify(path, w, h, nil); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestWriteRejectsBadShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tif")

	err := WriteRGB8(path, 4, 4, make([]RGB8, 15), nil, nil, Options{})
	if !errors.Is(err, contracts.ErrPixelShape) {
		t.Errorf("expected pixel shape error, got %v", err)
	}
	err = WriteRGB8(path, 0, 0, nil, nil, nil, Options{})
	if !errors.Is(err, contracts.ErrFormat) {
		t.Errorf("expected format error for empty image, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed writes left %d files behind", len(entries))
	}
}

func TestLayoutTooLarge(t *testing.T) {
	s := rasterInfo{width: 40000, height: 40000, bitsPerSample: 16, rowsPerStrip: RowsPerStrip16}
	if _, err := s.layout(); !errors.Is(err, contracts.ErrFormat) {
		t.Errorf("expected format error for oversized image, got %v", err)
	}
}

func TestLayoutOffsets(t *testing.T) {
	s := rasterInfo{width: 3, height: 300, bitsPerSample: 8, rowsPerStrip: RowsPerStrip8, icc: make([]byte, 7)}
	p, err := s.layout()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.stripBytes) != 3 {
		t.Fatalf("strips = %d", len(p.stripBytes))
	}
	if p.stripBytes[2] != 44*9 {
		t.Errorf("last strip = %d bytes", p.stripBytes[2])
	}
	if p.stripStart%2 != 0 {
		t.Errorf("strip data at odd offset %d", p.stripStart)
	}
	for _, e := range p.entries {
		if !e.inline() && e.offset%2 != 0 {
			t.Errorf("tag %d value at odd offset %d", e.tag, e.offset)
		}
	}
}
