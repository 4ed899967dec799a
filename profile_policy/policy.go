// Package profile_policy decides which ICC profiles a conversion uses.
// Decide is pure; Resolve and the sidecar helpers do the I/O.
package profile_policy

import (
	"archconv/cms"
	"archconv/contracts"
)

type InputSource int

const (
	InputSRGB InputSource = iota
	InputFile
	InputEmbeddedTIFF
	InputEmbeddedJPEG
)

func (s InputSource) String() string {
	switch s {
	case InputFile:
		return "file"
	case InputEmbeddedTIFF:
		return "embedded-tiff"
	case InputEmbeddedJPEG:
		return "embedded-jpeg"
	default:
		return "srgb"
	}
}

type OutputSource int

const (
	OutputNone OutputSource = iota
	OutputSRGB
	OutputFile
	// OutputEmbedded keeps the source TIFF's profile bytes.
	OutputEmbedded
	// OutputSameAsInput reuses whatever the input profile resolved to.
	OutputSameAsInput
)

func (s OutputSource) String() string {
	switch s {
	case OutputSRGB:
		return "srgb"
	case OutputFile:
		return "file"
	case OutputEmbedded:
		return "embedded"
	case OutputSameAsInput:
		return "same-as-input"
	default:
		return "none"
	}
}

// Overrides are the explicit profile options of a run.
type Overrides struct {
	Mode         contracts.DetectInputICC
	InputICCFile string
	OutICC       string
	ForceOutICC  bool
	// NoICC disables output color management for every preset.
	NoICC bool
}

// Detected is what the source file carries. TIFFICC is only consulted for
// TIFF inputs.
type Detected struct {
	IsTIFF  bool
	TIFFICC []byte
	JPEGICC []byte
}

type Decision struct {
	Input      InputSource
	InputFile  string
	InputBytes []byte

	Output      OutputSource
	OutputFile  string
	OutputBytes []byte
}

// ManagesOutput reports whether pixels go through a color transform.
func (d Decision) ManagesOutput() bool { return d.Output != OutputNone }

// Decide maps preset, overrides and detected profiles to profile sources.
// Access copies normalize color; the master copy preserves it.
func Decide(preset contracts.Preset, o Overrides, det Detected) (Decision, error) {
	var d Decision

	switch o.Mode {
	case contracts.DetectSRGB:
		d.Input = InputSRGB
	case contracts.DetectFile:
		if o.InputICCFile == "" {
			return Decision{}, contracts.PolicyErrorf("input ICC detection mode %q requires an input ICC file", o.Mode)
		}
		d.Input, d.InputFile = InputFile, o.InputICCFile
	case contracts.DetectAuto, "":
		switch {
		case det.IsTIFF && len(det.TIFFICC) > 0:
			d.Input, d.InputBytes = InputEmbeddedTIFF, det.TIFFICC
		case len(det.JPEGICC) > 0:
			d.Input, d.InputBytes = InputEmbeddedJPEG, det.JPEGICC
		default:
			d.Input = InputSRGB
		}
	default:
		return Decision{}, contracts.PolicyErrorf("unknown input ICC detection mode %q", o.Mode)
	}

	fileOrSRGB := func() {
		if o.OutICC != "" {
			d.Output, d.OutputFile = OutputFile, o.OutICC
		} else {
			d.Output = OutputSRGB
		}
	}

	switch {
	case o.NoICC:
		d.Output = OutputNone
	case preset == contracts.PresetAccessI:
		if o.ForceOutICC {
			fileOrSRGB()
		} else {
			d.Output = OutputNone
		}
	case preset == contracts.PresetAccessII:
		fileOrSRGB()
	case preset == contracts.PresetMasterCopy:
		switch {
		case o.OutICC != "":
			d.Output, d.OutputFile = OutputFile, o.OutICC
		case det.IsTIFF && len(det.TIFFICC) > 0:
			d.Output, d.OutputBytes = OutputEmbedded, det.TIFFICC
		default:
			d.Output = OutputSameAsInput
		}
	default:
		return Decision{}, contracts.PolicyErrorf("unknown preset %q", preset)
	}
	return d, nil
}

// Profiles are the resolved handles of a Decision. Output is nil when the
// output is not color managed.
type Profiles struct {
	Input  *cms.Profile
	Output *cms.Profile
}

// Resolve builds the profile handles a Decision names.
func (d Decision) Resolve() (Profiles, error) {
	var (
		p   Profiles
		err error
	)
	switch d.Input {
	case InputFile:
		p.Input, err = cms.LoadProfile(d.InputFile)
	case InputEmbeddedTIFF, InputEmbeddedJPEG:
		p.Input, err = cms.NewProfile(d.InputBytes, d.Input.String())
	default:
		p.Input = cms.SRGB()
	}
	if err != nil {
		return Profiles{}, err
	}

	switch d.Output {
	case OutputSRGB:
		p.Output = cms.SRGB()
	case OutputFile:
		p.Output, err = cms.LoadProfile(d.OutputFile)
	case OutputEmbedded:
		p.Output, err = cms.NewProfile(d.OutputBytes, "embedded-tiff")
	case OutputSameAsInput:
		p.Output = p.Input
	}
	if err != nil {
		return Profiles{}, err
	}
	return p, nil
}
