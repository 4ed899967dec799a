package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/tiff"

	"archconv/cms"
	"archconv/contracts"
	"archconv/files_manager"
	"archconv/profile_policy"
	"archconv/tiff_reader"
	"archconv/utils"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [file]",
	Short: "Show the resolution and embedded ICC profile of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	var (
		meta *contracts.TiffMeta
		icc  []byte
	)
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case files_manager.IsTIFF(path):
		m, err := tiff_reader.ReadMeta(path)
		if err != nil {
			return err
		}
		meta, icc = &m, m.ICC
	case ext == ".jpg" || ext == ".jpeg":
		if icc, err = profile_policy.ReadJPEGICC(path); err != nil {
			return err
		}
		fallthrough
	default:
		if meta, err = utils.SourceResolution(path); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", path)
	fmt.Fprintf(out, "Format:     %s\n", format)
	fmt.Fprintf(out, "Dimensions: %d x %d\n", cfg.Width, cfg.Height)
	if meta.HasResolution() {
		fmt.Fprintf(out, "Resolution: %s\n", describeResolution(meta))
	} else {
		fmt.Fprintf(out, "Resolution: not declared\n")
	}

	if icc == nil {
		fmt.Fprintf(out, "ICC:        none\n")
		return nil
	}
	p, err := cms.NewProfile(icc, "embedded")
	if err != nil {
		fmt.Fprintf(out, "ICC:        %d bytes, invalid: %v\n", len(icc), err)
		return nil
	}
	fmt.Fprintf(out, "ICC:        %d bytes, version %s, class %s\n", p.Len(), p.Version(), p.Class())
	return nil
}

func describeResolution(m *contracts.TiffMeta) string {
	axis := func(r *contracts.Rational) string {
		if r == nil {
			return "?"
		}
		return fmt.Sprintf("%.2f", r.Float())
	}
	unit := "(no unit)"
	if m.Unit != nil {
		unit = "per " + m.Unit.String()
	}
	return fmt.Sprintf("%s x %s %s", axis(m.XRes), axis(m.YRes), unit)
}
