package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"archconv/config"
	"archconv/contracts"
	"archconv/converter"
	"archconv/files_manager"
	"archconv/logging"
	"archconv/report"
)

func registerConvertFlags(cmd *cobra.Command) {
	d := contracts.DefaultInputFlags()
	fs := cmd.Flags()

	fs.String("config", "", "YAML file with default options; flags given on the command line win")
	fs.BoolP("verbose", "v", false, "Log every converted file")

	fs.StringP("input", "i", "", "Input image, or a directory to scan")
	fs.StringP("output", "o", "", "Output file (extension selects the format), or output directory for directory input")
	fs.BoolP("recursive", "r", false, "Scan subdirectories of a directory input")
	fs.String("out-ext", d.OutExt, "Output extension for directory input: tif, tiff, png, jpg or jpeg")
	fs.String("suffix", "", `Suffix appended to each output file stem, e.g. "_uc-ii"`)
	fs.Bool("overwrite", false, "Overwrite existing output files")
	fs.Int("jobs", 0, "Parallel conversions for directory input (0 = all CPUs)")

	fs.String("preset", "", "Preset: ndk-mc, ndk-uc-i or ndk-uc-ii (default ndk-uc-ii)")
	fs.String("detect-input-icc", string(d.DetectInputICC), "How to pick the input profile: auto, srgb or file")
	fs.String("input-icc-file", "", "Input ICC profile used with --detect-input-icc=file")
	fs.String("out-icc", "", "Output ICC profile (ignored for ndk-uc-i unless --force-out-icc)")
	fs.String("intent", "", "Rendering intent: perceptual, relative, absolute or saturation")
	fs.Bool("bpc", d.BPC, "Black point compensation")
	fs.String("out-depth", "", "Output bit depth, 8 or 16 (default from preset)")
	fs.String("tone-map", "", "Tone curve for 16 to 8 bit conversion: none, gamma or perceptual")
	fs.Bool("dither", false, "Error diffusion dithering when reducing to 8 bits")
	fs.Bool("write-icc", false, "Write the output profile as a .icc sidecar next to each output")
	fs.Bool("force-out-icc", false, "Allow an output profile for ndk-uc-i")
	fs.Bool("debug-icc", false, "Log profile sources, sizes and versions for every file")
	fs.Bool("no-icc", false, "Skip the color transform, only convert bit depth")
	fs.Uint32("default-dpi", d.DefaultDPI, "Resolution written when the source declares none")
	fs.Bool("verify", false, "Re-read every written TIFF and check its tags")
	fs.String("report", "", "Write a PDF protocol with per-file status and BLAKE2b-256 checksums")
}

// inputFlags merges, in increasing priority: defaults, --config, flags set on
// the command line.
func inputFlags(cmd *cobra.Command) (contracts.InputFlags, error) {
	fs := cmd.Flags()
	f := contracts.DefaultInputFlags()
	if path, _ := fs.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return f, err
		}
		f = loaded
	}

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	flag := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}

	str("input", &f.Input)
	str("output", &f.Output)
	flag("recursive", &f.Recursive)
	str("out-ext", &f.OutExt)
	str("suffix", &f.Suffix)
	flag("overwrite", &f.Overwrite)
	if fs.Changed("jobs") {
		f.Jobs, _ = fs.GetInt("jobs")
	}

	if fs.Changed("preset") {
		v, _ := fs.GetString("preset")
		p := contracts.Preset(v)
		f.Preset = &p
	}
	if fs.Changed("detect-input-icc") {
		v, _ := fs.GetString("detect-input-icc")
		f.DetectInputICC = contracts.DetectInputICC(v)
	}
	str("input-icc-file", &f.InputICCFile)
	str("out-icc", &f.OutICC)
	if fs.Changed("intent") {
		v, _ := fs.GetString("intent")
		i := contracts.RenderIntent(v)
		f.Intent = &i
	}
	flag("bpc", &f.BPC)
	if fs.Changed("out-depth") {
		v, _ := fs.GetString("out-depth")
		depth, err := contracts.ParseBitDepth(v)
		if err != nil {
			return f, err
		}
		f.OutDepth = &depth
	}
	if fs.Changed("tone-map") {
		v, _ := fs.GetString("tone-map")
		t := contracts.ToneMap(v)
		f.ToneMap = &t
	}
	if fs.Changed("dither") {
		v, _ := fs.GetBool("dither")
		f.Dither = &v
	}
	flag("write-icc", &f.WriteICC)
	flag("force-out-icc", &f.ForceOutICC)
	flag("debug-icc", &f.DebugICC)
	flag("no-icc", &f.NoICC)
	if fs.Changed("default-dpi") {
		f.DefaultDPI, _ = fs.GetUint32("default-dpi")
	}
	flag("verify", &f.Verify)
	str("report", &f.Report)

	if err := config.Normalize(&f); err != nil {
		return f, err
	}
	if f.Input == "" || f.Output == "" {
		return f, errors.New("both --input and --output are required")
	}
	return f, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	f, err := inputFlags(cmd)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logging.LevelDebug
	}
	log := logging.NewStd(os.Stderr, level)

	engine, closeEngine := newEngine(log)
	defer closeEngine()

	pipeline := converter.NewPipeline(converter.OptionsFromFlags(f), engine, log)
	eff := contracts.ComputeEffective(f)
	log.Info("effective settings",
		logging.String("preset", string(eff.Preset)),
		logging.Int("depth", int(eff.OutDepth)),
		logging.String("intent", string(eff.Intent)),
		logging.String("tone_map", string(eff.ToneMap)),
		logging.Bool("dither", eff.Dither),
		logging.Bool("bpc", eff.BPC),
	)

	info, err := os.Stat(f.Input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if info.IsDir() {
		return runDirectory(f, eff, pipeline, log)
	}
	return runSingle(f, eff, pipeline, log)
}

func runSingle(f contracts.InputFlags, eff contracts.EffectiveSettings, conv contracts.Converter, log logging.Logger) error {
	if info, err := os.Stat(f.Output); err == nil {
		if info.IsDir() {
			return fmt.Errorf("output must be a file when input is a file: %s", f.Output)
		}
		if !f.Overwrite {
			return fmt.Errorf("output file already exists: %s, use --overwrite to replace it", f.Output)
		}
	}
	if err := files_manager.EnsureParentDir(f.Output); err != nil {
		return err
	}

	start := time.Now()
	res, err := conv.Convert(f.Input, f.Output)
	outcome := contracts.Outcome{
		Job:      contracts.BatchJob{Input: f.Input, Output: f.Output},
		Status:   contracts.StatusConverted,
		Checksum: res.Checksum,
		Elapsed:  time.Since(start),
	}
	if err != nil {
		outcome.Status, outcome.Err = contracts.StatusFailed, err
	}

	if f.Report != "" {
		summary := converter.Summary{RunID: uuid.New(), Total: 1, Outcomes: []contracts.Outcome{outcome}, Elapsed: outcome.Elapsed}
		if err != nil {
			summary.Failed = 1
		} else {
			summary.Converted = 1
		}
		if rerr := writeReport(f, eff, summary, log); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fmt.Errorf("convert %s to %s: %w", f.Input, f.Output, err)
	}
	log.Info("converted",
		logging.String("input", f.Input),
		logging.String("output", f.Output),
		logging.Int("width", res.Width),
		logging.Int("height", res.Height),
		logging.Bool("icc", res.EmbeddedICC),
	)
	return nil
}

func runDirectory(f contracts.InputFlags, eff contracts.EffectiveSettings, conv contracts.Converter, log logging.Logger) error {
	if info, err := os.Stat(f.Output); err == nil && !info.IsDir() {
		return fmt.Errorf("output must be a directory when input is a directory: %s", f.Output)
	}
	if err := os.MkdirAll(f.Output, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", f.Output, err)
	}

	summary, err := converter.RunBatch(conv, converter.BatchOptions{
		Input:     f.Input,
		Output:    f.Output,
		Recursive: f.Recursive,
		OutExt:    f.OutExt,
		Suffix:    f.Suffix,
		Overwrite: f.Overwrite,
		Jobs:      f.Jobs,
	}, log)
	if err != nil {
		return err
	}
	if summary.Total == 0 {
		return fmt.Errorf("no supported images found in %s", f.Input)
	}
	if f.Report != "" {
		if err := writeReport(f, eff, summary, log); err != nil {
			return err
		}
	}
	return summary.Err()
}

func writeReport(f contracts.InputFlags, eff contracts.EffectiveSettings, summary converter.Summary, log logging.Logger) error {
	err := report.WritePDF(f.Report, report.Protocol{
		Generated: time.Now(),
		Preset:    eff.Preset,
		Input:     f.Input,
		Output:    f.Output,
		Summary:   summary,
	})
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info("wrote protocol", logging.String("path", f.Report))
	return nil
}
