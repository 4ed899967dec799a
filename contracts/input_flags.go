package contracts

// InputFlags carries every user-facing option of a run. Pointer fields are
// "unset" when nil so preset defaults can fill them in.
type InputFlags struct {
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	Recursive bool   `yaml:"recursive"`
	OutExt    string `yaml:"out_ext"`
	Suffix    string `yaml:"suffix"`
	Overwrite bool   `yaml:"overwrite"`
	Jobs      int    `yaml:"jobs"`

	Preset         *Preset        `yaml:"preset"`
	DetectInputICC DetectInputICC `yaml:"detect_input_icc"`
	InputICCFile   string         `yaml:"input_icc_file"`
	OutICC         string         `yaml:"out_icc"`
	Intent         *RenderIntent  `yaml:"intent"`
	BPC            bool           `yaml:"bpc"`
	OutDepth       *BitDepth      `yaml:"out_depth"`
	ToneMap        *ToneMap       `yaml:"tone_map"`
	Dither         *bool          `yaml:"dither"`
	WriteICC       bool           `yaml:"write_icc"`
	ForceOutICC    bool           `yaml:"force_out_icc"`
	DebugICC       bool           `yaml:"debug_icc"`
	NoICC          bool           `yaml:"no_icc"`
	DefaultDPI     uint32         `yaml:"default_dpi"`
	Verify         bool           `yaml:"verify"`
	Report         string         `yaml:"report"`
}

// DefaultInputFlags returns the values used when neither a config file nor a
// flag sets an option.
func DefaultInputFlags() InputFlags {
	return InputFlags{
		OutExt:         "tif",
		DetectInputICC: DetectAuto,
		BPC:            true,
		DefaultDPI:     600,
	}
}
