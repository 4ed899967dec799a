package utils

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"archconv/contracts"
)

type TiffMeta = contracts.TiffMeta

// SourceResolution reads the resolution a non-TIFF source declares: EXIF for
// JPEG, pHYs for PNG. A nil result means the file declares none.
func SourceResolution(path string) (*TiffMeta, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ExifResolution(data)
	case ".png":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return PNGResolution(f)
	}
	return nil, nil
}

// ExifResolution extracts XResolution, YResolution and ResolutionUnit from
// IFD0 of the EXIF block in data.
func ExifResolution(data []byte) (*TiffMeta, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return nil, nil
		}
		return nil, fmt.Errorf("EXIF not found: %v", err)
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return nil, err
	}

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return nil, err
	}
	if index.RootIfd == nil {
		return nil, nil
	}

	var meta TiffMeta
	rational := func(name string) *contracts.Rational {
		tags, err := index.RootIfd.FindTagWithName(name)
		if err != nil || len(tags) == 0 {
			return nil
		}
		val, err := tags[0].Value()
		if err != nil {
			return nil
		}
		if rats, ok := val.([]exifcommon.Rational); ok && len(rats) > 0 && rats[0].Denominator != 0 {
			return &contracts.Rational{Num: rats[0].Numerator, Den: rats[0].Denominator}
		}
		return nil
	}
	meta.XRes = rational("XResolution")
	meta.YRes = rational("YResolution")

	if tags, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil && len(tags) > 0 {
		if val, err := tags[0].Value(); err == nil {
			var u uint16
			switch v := val.(type) {
			case []uint16:
				if len(v) > 0 {
					u = v[0]
				}
			case uint16:
				u = v
			}
			if u != 0 {
				unit := contracts.UnitNone
				switch u {
				case 2:
					unit = contracts.UnitInch
				case 3:
					unit = contracts.UnitCentimeter
				}
				meta.Unit = &unit
			}
		}
	}

	if !meta.HasResolution() {
		return nil, nil
	}
	return &meta, nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PNGResolution reads the pHYs chunk. PNG stores pixels per metre, which is
// written as a per-centimetre rational so no precision is lost. A pHYs chunk
// with unit 0 only gives the aspect ratio and is ignored.
func PNGResolution(r io.Reader) (*TiffMeta, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return nil, contracts.FormatErrorf("", "not a PNG stream")
	}

	const physChunk = "pHYs"
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, nil
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])

		switch chunkType {
		case physChunk:
			if length != 9 {
				return nil, contracts.FormatErrorf("", "pHYs chunk of %d bytes", length)
			}
			body := make([]byte, 9)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, err
			}
			if body[8] != 1 {
				return nil, nil // unit 0 (unknown)
			}
			x := contracts.Rational{Num: binary.BigEndian.Uint32(body[0:4]), Den: 100}
			y := contracts.Rational{Num: binary.BigEndian.Uint32(body[4:8]), Den: 100}
			unit := contracts.UnitCentimeter
			return &TiffMeta{XRes: &x, YRes: &y, Unit: &unit}, nil
		case "IDAT", "IEND":
			// pHYs must precede the image data
			return nil, nil
		}

		// skip chunk data + CRC
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			return nil, nil
		}
	}
}
