//go:build cgo

// Package magick implements cms.Engine on top of ImageMagick's MagickWand API.
// Callers must run imagick.Initialize before the first transform and
// imagick.Terminate when done.
package magick

import (
	"fmt"

	"gopkg.in/gographics/imagick.v2/imagick"

	"archconv/cms"
	"archconv/contracts"
)

// Engine is stateless; every Transform uses its own wand, so one Engine can
// serve all workers.
type Engine struct{}

func New() *Engine { return &Engine{} }

func intentOf(i contracts.RenderIntent) imagick.RenderingIntent {
	switch i {
	case contracts.IntentRelative:
		return imagick.RENDERING_INTENT_RELATIVE
	case contracts.IntentAbsolute:
		return imagick.RENDERING_INTENT_ABSOLUTE
	case contracts.IntentSaturation:
		return imagick.RENDERING_INTENT_SATURATION
	default:
		return imagick.RENDERING_INTENT_PERCEPTUAL
	}
}

// Transform converts pix from src to dst in place.
func (Engine) Transform(src, dst *cms.Profile, intent contracts.RenderIntent, bpc bool, pix []contracts.RGB16, width, height int) error {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return err
	}
	if len(pix) == 0 {
		return nil
	}

	samples := make([]int16, 0, len(pix)*3)
	for _, p := range pix {
		samples = append(samples, int16(p.R), int16(p.G), int16(p.B))
	}

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.ConstituteImage(uint(width), uint(height), "RGB", imagick.PIXEL_SHORT, samples); err != nil {
		return fmt.Errorf("constitute image: %w", err)
	}
	if err := mw.SetImageDepth(16); err != nil {
		return fmt.Errorf("set depth: %w", err)
	}
	// Attaching a profile to an image without one only tags it.
	if err := mw.ProfileImage("icc", src.Bytes()); err != nil {
		return contracts.ProfileError(src.Source(), "assign input profile", err)
	}
	if err := mw.SetImageRenderingIntent(intentOf(intent)); err != nil {
		return fmt.Errorf("set rendering intent: %w", err)
	}
	if bpc {
		if err := mw.SetOption("black-point-compensation", "true"); err != nil {
			return fmt.Errorf("enable black point compensation: %w", err)
		}
	}
	if err := mw.ProfileImage("icc", dst.Bytes()); err != nil {
		return contracts.ProfileError(dst.Source(), "apply output profile", err)
	}

	out, err := mw.ExportImagePixels(0, 0, uint(width), uint(height), "RGB", imagick.PIXEL_SHORT)
	if err != nil {
		return fmt.Errorf("export pixels: %w", err)
	}
	shorts, ok := out.([]int16)
	if !ok || len(shorts) != len(samples) {
		return fmt.Errorf("export pixels: unexpected buffer %T of %d samples", out, len(shorts))
	}
	for i := range pix {
		pix[i] = contracts.RGB16{
			R: uint16(shorts[3*i]),
			G: uint16(shorts[3*i+1]),
			B: uint16(shorts[3*i+2]),
		}
	}
	return nil
}
