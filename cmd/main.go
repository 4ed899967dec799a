package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "archconv",
	Short: "Archival ICC color and 16/8 bit depth conversion for TIFF, PNG and JPEG",
	Long: `archconv converts a single image or a directory of images following the
NDK archival presets: ndk-mc (master copy), ndk-uc-i and ndk-uc-ii (access copies).
Explicit options always take precedence over preset defaults.`,
	SilenceUsage: true,
	RunE:         runConvert,
}

func init() {
	registerConvertFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
