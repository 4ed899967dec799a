package converter

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"archconv/cms"
	"archconv/codec"
	"archconv/contracts"
	"archconv/files_manager"
	"archconv/logging"
	"archconv/profile_policy"
	"archconv/quantizer"
	"archconv/tiff_reader"
	"archconv/tiff_writer"
	"archconv/utils"
)

// Options configure every file of a run.
type Options struct {
	Settings   contracts.EffectiveSettings
	Overrides  profile_policy.Overrides
	WriteICC   bool
	DebugICC   bool
	Verify     bool
	Checksum   bool
	DefaultDPI uint32
}

// OptionsFromFlags derives pipeline options from the run flags.
func OptionsFromFlags(f contracts.InputFlags) Options {
	return Options{
		Settings: contracts.ComputeEffective(f),
		Overrides: profile_policy.Overrides{
			Mode:         f.DetectInputICC,
			InputICCFile: f.InputICCFile,
			OutICC:       f.OutICC,
			ForceOutICC:  f.ForceOutICC,
			NoICC:        f.NoICC,
		},
		WriteICC:   f.WriteICC,
		DebugICC:   f.DebugICC,
		Verify:     f.Verify,
		Checksum:   f.Report != "",
		DefaultDPI: f.DefaultDPI,
	}
}

// Pipeline converts a single file: metadata, profile policy, decode,
// transform, quantize and write. It holds no per-file state and can be shared
// by all batch workers.
type Pipeline struct {
	opts   Options
	engine cms.Engine
	log    logging.Logger
}

func NewPipeline(opts Options, engine cms.Engine, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop{}
	}
	return &Pipeline{opts: opts, engine: engine, log: log}
}

func isJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg"
}

// detect gathers what the source carries. Failures only cost the metadata.
func (p *Pipeline) detect(input string) (*contracts.TiffMeta, profile_policy.Detected) {
	log := p.log.With(logging.String("input", input))
	det := profile_policy.Detected{IsTIFF: files_manager.IsTIFF(input)}

	var meta *contracts.TiffMeta
	if det.IsTIFF {
		m, err := tiff_reader.ReadMeta(input)
		if err != nil {
			log.Warn("could not read TIFF metadata, using defaults", logging.Err(err))
		} else {
			meta = &m
			det.TIFFICC = m.ICC
		}
	} else {
		m, err := utils.SourceResolution(input)
		if err != nil {
			log.Warn("could not read source resolution", logging.Err(err))
		}
		meta = m
	}

	mode := p.opts.Overrides.Mode
	if isJPEG(input) && (mode == contracts.DetectAuto || mode == "") {
		icc, err := profile_policy.ReadJPEGICC(input)
		if err != nil {
			log.Warn("could not read embedded JPEG profile", logging.Err(err))
		}
		det.JPEGICC = icc
	}
	return meta, det
}

func (p *Pipeline) Convert(input, output string) (contracts.ConvertResult, error) {
	var res contracts.ConvertResult
	eff := p.opts.Settings
	res.OutDepth = eff.OutDepth

	meta, det := p.detect(input)

	decision, err := profile_policy.Decide(eff.Preset, p.opts.Overrides, det)
	if err != nil {
		return res, err
	}
	profiles, err := decision.Resolve()
	if err != nil {
		return res, fmt.Errorf("resolve profiles for %s: %w", input, err)
	}

	if p.opts.DebugICC {
		p.debugProfiles(input, output, decision, profiles)
	}

	w, h, pix, err := codec.Decode(input)
	if err != nil {
		return res, err
	}
	res.Width, res.Height = w, h

	var embed []byte
	if profiles.Output != nil {
		if p.engine == nil {
			return res, fmt.Errorf("color transform required for %s but no engine is available", input)
		}
		if err := p.engine.Transform(profiles.Input, profiles.Output, eff.Intent, eff.BPC, pix, w, h); err != nil {
			return res, fmt.Errorf("transform %s: %w", input, err)
		}
		res.Transformed = true
		embed = profiles.Output.Bytes()
	}

	outTIFF := files_manager.IsTIFF(output)
	if !outTIFF {
		embed = nil
	}
	wopts := tiff_writer.Options{DefaultDPI: p.opts.DefaultDPI}

	switch eff.OutDepth {
	case contracts.Depth16:
		if outTIFF {
			err = tiff_writer.WriteRGB16(output, w, h, pix, embed, meta, wopts)
		} else {
			err = codec.EncodeRGB16(output, w, h, pix)
		}
	default:
		pix8, qerr := quantizer.Quantize(pix, w, h, eff.ToneMap, eff.Dither)
		if qerr != nil {
			return res, qerr
		}
		pix = nil // only the 8-bit buffer is needed from here on
		if outTIFF {
			err = tiff_writer.WriteRGB8(output, w, h, pix8, embed, meta, wopts)
		} else {
			err = codec.EncodeRGB8(output, w, h, pix8)
		}
	}
	if err != nil {
		return res, fmt.Errorf("write %s: %w", output, err)
	}
	res.EmbeddedICC = len(embed) > 0

	if p.opts.Verify && outTIFF {
		if err := tiff_writer.Verify(output, w, h, embed); err != nil {
			return res, fmt.Errorf("verify %s: %w", output, err)
		}
	}

	if p.opts.WriteICC && profiles.Output != nil {
		path, err := profile_policy.WriteSidecar(output, profiles.Output)
		if err != nil {
			return res, err
		}
		p.log.Debug("wrote ICC sidecar", logging.String("path", path))
	}

	if p.opts.Checksum {
		sum, err := FileChecksum(output)
		if err != nil {
			return res, err
		}
		res.Checksum = sum
	}
	return res, nil
}

func (p *Pipeline) debugProfiles(input, output string, d profile_policy.Decision, pr profile_policy.Profiles) {
	p.log.Info("input profile",
		logging.String("file", input),
		logging.String("source", d.Input.String()),
		logging.Int("bytes", pr.Input.Len()),
		logging.String("version", pr.Input.Version()),
	)
	if pr.Output == nil {
		p.log.Info("output profile: none per policy", logging.String("file", output))
		return
	}
	p.log.Info("output profile",
		logging.String("file", output),
		logging.String("source", d.Output.String()),
		logging.Int("bytes", pr.Output.Len()),
		logging.String("version", pr.Output.Version()),
	)
}

// FileChecksum is the hex BLAKE2b-256 digest of the file at path.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
