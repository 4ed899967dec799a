package contracts

import (
	"fmt"
	"strings"
)

// Preset selects an archival conversion policy.
type Preset string

const (
	// PresetMasterCopy preserves the source color space.
	PresetMasterCopy Preset = "ndk-mc"
	// PresetAccessI is the access copy for books and periodicals.
	PresetAccessI Preset = "ndk-uc-i"
	// PresetAccessII is the access copy for maps, manuscripts and old prints.
	PresetAccessII Preset = "ndk-uc-ii"
)

type BitDepth int

const (
	Depth8  BitDepth = 8
	Depth16 BitDepth = 16
)

type RenderIntent string

const (
	IntentPerceptual RenderIntent = "perceptual"
	IntentRelative   RenderIntent = "relative"
	IntentAbsolute   RenderIntent = "absolute"
	IntentSaturation RenderIntent = "saturation"
)

type ToneMap string

const (
	ToneNone       ToneMap = "none"
	ToneGamma      ToneMap = "gamma"
	TonePerceptual ToneMap = "perceptual"
)

// DetectInputICC chooses how the input profile is picked.
type DetectInputICC string

const (
	DetectAuto DetectInputICC = "auto"
	DetectSRGB DetectInputICC = "srgb"
	DetectFile DetectInputICC = "file"
)

func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetMasterCopy, PresetAccessI, PresetAccessII:
		return p, nil
	}
	return "", fmt.Errorf("unknown preset %q (want ndk-mc, ndk-uc-i or ndk-uc-ii)", s)
}

func ParseBitDepth(s string) (BitDepth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "8", "b8":
		return Depth8, nil
	case "16", "b16":
		return Depth16, nil
	}
	return 0, fmt.Errorf("unknown bit depth %q (want 8 or 16)", s)
}

func ParseIntent(s string) (RenderIntent, error) {
	switch i := RenderIntent(strings.ToLower(strings.TrimSpace(s))); i {
	case IntentPerceptual, IntentRelative, IntentAbsolute, IntentSaturation:
		return i, nil
	}
	return "", fmt.Errorf("unknown rendering intent: %q", s)
}

func ParseToneMap(s string) (ToneMap, error) {
	switch t := ToneMap(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneNone, ToneGamma, TonePerceptual:
		return t, nil
	}
	return "", fmt.Errorf("unknown tone map %q (want none, gamma or perceptual)", s)
}

func ParseDetectInputICC(s string) (DetectInputICC, error) {
	switch d := DetectInputICC(strings.ToLower(strings.TrimSpace(s))); d {
	case DetectAuto, DetectSRGB, DetectFile:
		return d, nil
	}
	return "", fmt.Errorf("unknown input ICC detection mode %q (want auto, srgb or file)", s)
}

// EffectiveSettings is the immutable result of merging explicit options over
// preset defaults.
type EffectiveSettings struct {
	Preset   Preset
	OutDepth BitDepth
	Intent   RenderIntent
	ToneMap  ToneMap
	Dither   bool
	BPC      bool
}

// ComputeEffective fills every option the user left unset from the preset.
// The default preset is the tier II access copy.
func ComputeEffective(f InputFlags) EffectiveSettings {
	eff := EffectiveSettings{
		Preset:   PresetAccessII,
		OutDepth: Depth8,
		Intent:   IntentPerceptual,
		ToneMap:  ToneNone,
		BPC:      f.BPC,
	}
	if f.Preset != nil {
		eff.Preset = *f.Preset
	}
	if eff.Preset == PresetMasterCopy {
		eff.OutDepth = Depth16
	}

	if f.OutDepth != nil {
		eff.OutDepth = *f.OutDepth
	}
	if f.Intent != nil {
		eff.Intent = *f.Intent
	}
	if f.ToneMap != nil {
		eff.ToneMap = *f.ToneMap
	}
	if f.Dither != nil {
		eff.Dither = *f.Dither
	}
	return eff
}
