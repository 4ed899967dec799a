package profile_policy

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"archconv/cms"
	"archconv/files_manager"
)

const SidecarExt = ".icc"

// SidecarPath replaces the extension of outputPath with SidecarExt.
func SidecarPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + SidecarExt
}

// WriteSidecar atomically stores the profile bytes next to outputPath and
// returns the path written.
func WriteSidecar(outputPath string, p *cms.Profile) (string, error) {
	path := SidecarPath(outputPath)
	err := files_manager.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(p.Bytes())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write ICC sidecar: %w", err)
	}
	return path, nil
}
