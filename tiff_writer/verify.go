package tiff_writer

import (
	"bytes"
	"fmt"
	"os"

	gtiff "github.com/google/tiff"

	"archconv/contracts"
)

// Verify re-parses a written file with an independent TIFF parser and checks
// the dimensions and the embedded ICC profile. wantICC nil means the file
// must not carry a profile.
func Verify(path string, width, height int, wantICC []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open for verify: %w", err)
	}
	defer f.Close()

	t, err := gtiff.Parse(f, nil, nil)
	if err != nil {
		return contracts.FormatErrorf(path, "re-parse failed: %v", err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return contracts.FormatErrorf(path, "no IFD in written file")
	}
	ifd := ifds[0]

	for _, dim := range []struct {
		tag  uint16
		want int
	}{{tagImageWidth, width}, {tagImageLength, height}} {
		if !ifd.HasField(dim.tag) {
			return contracts.FormatErrorf(path, "tag %d missing", dim.tag)
		}
		fv := ifd.GetField(dim.tag).Value()
		b := fv.Bytes()
		if len(b) < 4 {
			return contracts.FormatErrorf(path, "tag %d truncated", dim.tag)
		}
		if got := int(fv.Order().Uint32(b)); got != dim.want {
			return contracts.FormatErrorf(path, "tag %d is %d, want %d", dim.tag, got, dim.want)
		}
	}

	if !ifd.HasField(tagICCProfile) {
		if len(wantICC) > 0 {
			return contracts.FormatErrorf(path, "ICC profile missing")
		}
		return nil
	}
	if len(wantICC) == 0 {
		return contracts.FormatErrorf(path, "unexpected ICC profile")
	}
	field := ifd.GetField(tagICCProfile)
	if id := field.Type().ID(); id != typeUndefined {
		return contracts.FormatErrorf(path, "ICC profile stored as type %d", id)
	}
	if !bytes.Equal(field.Value().Bytes(), wantICC) {
		return contracts.FormatErrorf(path, "ICC profile bytes differ from source")
	}
	return nil
}
