// Package codec decodes any supported input into 16-bit RGB and encodes the
// non-TIFF output formats.
package codec

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"

	"archconv/contracts"
	"archconv/files_manager"
)

type RGB8 = contracts.RGB8
type RGB16 = contracts.RGB16

const JPEGQuality = 95

// Decode reads the image at path as 16-bit RGB. 8-bit samples are expanded
// by 257 so 255 maps to 65535. Alpha is dropped without premultiplying.
func Decode(path string) (int, int, []RGB16, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, &contracts.IoError{Path: path, Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return 0, 0, nil, contracts.FormatErrorf(path, "decode image: %v", err)
	}
	w, h, pix := ToRGB16(img)
	if len(pix) == 0 {
		return 0, 0, nil, contracts.FormatErrorf(path, "empty %s image", format)
	}
	return w, h, pix, nil
}

// ToRGB16 flattens img into a row-major buffer.
func ToRGB16(img image.Image) (int, int, []RGB16) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]RGB16, 0, w*h)

	switch src := img.(type) {
	case *image.NRGBA64:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := src.NRGBA64At(x, y)
				pix = append(pix, RGB16{R: c.R, G: c.G, B: c.B})
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := src.NRGBAAt(x, y)
				pix = append(pix, RGB16{R: uint16(c.R) * 257, G: uint16(c.G) * 257, B: uint16(c.B) * 257})
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
				pix = append(pix, RGB16{R: c.R, G: c.G, B: c.B})
			}
		}
	}
	return w, h, pix
}

func ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// EncodeRGB8 writes pix as PNG or JPEG, chosen by the extension of path.
func EncodeRGB8(path string, width, height int, pix []RGB8) error {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, p := range pix {
		o := i * 4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = p.R, p.G, p.B, 0xff
	}
	return encode(path, img)
}

// EncodeRGB16 writes pix as a 16-bit PNG. JPEG has no 16-bit mode.
func EncodeRGB16(path string, width, height int, pix []RGB16) error {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return err
	}
	if e := ext(path); e == "jpg" || e == "jpeg" {
		return contracts.FormatErrorf(path, "JPEG output cannot hold 16-bit samples")
	}
	img := image.NewRGBA64(image.Rect(0, 0, width, height))
	for i, p := range pix {
		img.SetRGBA64(i%width, i/width, color.RGBA64{R: p.R, G: p.G, B: p.B, A: 0xffff})
	}
	return encode(path, img)
}

func encode(path string, img image.Image) error {
	var enc func(io.Writer) error
	switch ext(path) {
	case "png":
		enc = func(w io.Writer) error { return png.Encode(w, img) }
	case "jpg", "jpeg":
		enc = func(w io.Writer) error { return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality}) }
	default:
		return fmt.Errorf("no encoder for %q", filepath.Base(path))
	}
	return files_manager.WriteAtomic(path, func(w io.Writer) error {
		if err := enc(w); err != nil {
			return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
		}
		return nil
	})
}
