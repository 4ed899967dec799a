package profile_policy

import (
	"bytes"
	"encoding/binary"
	"os"
	"sort"

	"archconv/contracts"
)

const (
	markerAPP2 = 0xE2
	markerSOS  = 0xDA
	markerEOI  = 0xD9
)

var iccSignature = []byte("ICC_PROFILE\x00")

type iccChunk struct {
	seq     byte
	payload []byte
}

// ReadJPEGICC reads the file at path and reassembles its embedded profile.
func ReadJPEGICC(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &contracts.IoError{Path: path, Err: err}
	}
	icc, err := ExtractJPEGICC(data)
	if err != nil {
		if e, ok := err.(*contracts.Error); ok {
			e.Path = path
		}
		return nil, err
	}
	return icc, nil
}

// ExtractJPEGICC collects the APP2 ICC_PROFILE chunks in front of the scan
// data and joins them in sequence number order. Data that is not a JPEG, or
// a JPEG without a profile, gives nil. A segment whose length runs past the
// end of data is a FormatError.
func ExtractJPEGICC(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, nil
	}

	var chunks []iccChunk
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xFF {
			// fill byte
			i++
			continue
		}
		i += 2
		if marker == markerSOS || marker == markerEOI {
			break
		}
		// standalone markers carry no length
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			continue
		}

		segLen := int(binary.BigEndian.Uint16(data[i:]))
		if segLen < 2 || i+segLen > len(data) {
			return nil, contracts.FormatErrorf("", "JPEG segment 0x%02X at offset %d has bad length %d", marker, i-2, segLen)
		}
		seg := data[i+2 : i+segLen]
		i += segLen

		if marker == markerAPP2 && len(seg) > len(iccSignature)+2 && bytes.HasPrefix(seg, iccSignature) {
			chunks = append(chunks, iccChunk{
				seq:     seg[len(iccSignature)],
				payload: seg[len(iccSignature)+2:],
			})
		}
	}

	if len(chunks) == 0 {
		return nil, nil
	}
	sort.SliceStable(chunks, func(a, b int) bool { return chunks[a].seq < chunks[b].seq })
	var out []byte
	for _, c := range chunks {
		out = append(out, c.payload...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
