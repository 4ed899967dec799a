// Package config loads run options from a YAML file. Keys match the long
// command line flags with dashes replaced by underscores.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"archconv/contracts"
)

// Load reads path over the defaults. Unknown keys are an error so a typo does
// not silently fall back to a preset default.
func Load(path string) (contracts.InputFlags, error) {
	f := contracts.DefaultInputFlags()
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Normalize(&f); err != nil {
		return f, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// Normalize validates the enumerated options and rewrites them in canonical
// form, so "NDK-MC" and "ndk-mc" are the same preset.
func Normalize(f *contracts.InputFlags) error {
	if f.Preset != nil {
		p, err := contracts.ParsePreset(string(*f.Preset))
		if err != nil {
			return err
		}
		f.Preset = &p
	}
	if f.Intent != nil {
		i, err := contracts.ParseIntent(string(*f.Intent))
		if err != nil {
			return err
		}
		f.Intent = &i
	}
	if f.ToneMap != nil {
		t, err := contracts.ParseToneMap(string(*f.ToneMap))
		if err != nil {
			return err
		}
		f.ToneMap = &t
	}
	if f.OutDepth != nil {
		if *f.OutDepth != contracts.Depth8 && *f.OutDepth != contracts.Depth16 {
			return fmt.Errorf("unknown bit depth %d (want 8 or 16)", *f.OutDepth)
		}
	}
	if f.DetectInputICC == "" {
		f.DetectInputICC = contracts.DetectAuto
	}
	d, err := contracts.ParseDetectInputICC(string(f.DetectInputICC))
	if err != nil {
		return err
	}
	f.DetectInputICC = d
	if f.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", f.Jobs)
	}
	return nil
}
