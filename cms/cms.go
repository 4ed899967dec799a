// Package cms holds ICC profile handles and the color transform interface.
// The transform itself is done by an Engine implementation such as
// cms/magick.
package cms

import (
	"fmt"
	"os"

	"seehuhn.de/go/icc"

	"archconv/contracts"
)

// colorSpaceRGB is the 'RGB ' data color space signature.
const colorSpaceRGB = 0x52474220

// Engine applies a color transform to a 16-bit RGB buffer in place.
type Engine interface {
	Transform(src, dst *Profile, intent contracts.RenderIntent, bpc bool, pix []contracts.RGB16, width, height int) error
}

// Profile is an immutable, validated RGB ICC profile.
type Profile struct {
	data    []byte
	version string
	class   string
	source  string
}

// NewProfile validates data and wraps it. data is copied.
func NewProfile(data []byte, source string) (*Profile, error) {
	if len(data) == 0 {
		return nil, contracts.ProfileError(source, "empty profile", nil)
	}
	// icc.Decode takes ownership of its input and may clear the profile ID.
	parsed, err := icc.Decode(append([]byte(nil), data...))
	if err != nil {
		return nil, contracts.ProfileError(source, "invalid ICC profile", err)
	}
	if parsed.ColorSpace != colorSpaceRGB {
		return nil, contracts.ProfileError(source, fmt.Sprintf("profile color space %s is not RGB", signature(uint32(parsed.ColorSpace))), nil)
	}
	return &Profile{
		data:    append([]byte(nil), data...),
		version: headerVersion(data),
		class:   signature(uint32(parsed.Class)),
		source:  source,
	}, nil
}

// LoadProfile reads and validates the profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contracts.ProfileError(path, "cannot read profile", err)
	}
	return NewProfile(data, path)
}

// Bytes returns a copy of the raw profile.
func (p *Profile) Bytes() []byte {
	return append([]byte(nil), p.data...)
}

func (p *Profile) Len() int { return len(p.data) }

// Version is the header version as major.minor.bugfix.
func (p *Profile) Version() string { return p.version }

// Class is the four-character device class, e.g. "mntr".
func (p *Profile) Class() string { return p.class }

// Source names where the profile came from: a path, "srgb" or "embedded".
func (p *Profile) Source() string { return p.source }

func headerVersion(data []byte) string {
	if len(data) < 12 {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d.%d", data[8], data[9]>>4, data[9]&0x0f)
}

func signature(v uint32) string {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("%08X", v)
		}
	}
	return string(b)
}
