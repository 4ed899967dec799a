package cms

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/icc"

	"archconv/contracts"
)

func TestSRGBIsValid(t *testing.T) {
	p := SRGB()
	if p != SRGB() {
		t.Error("SRGB should return one shared handle")
	}
	if p.Version() != "2.1.0" {
		t.Errorf("version = %q", p.Version())
	}
	if p.Class() != "mntr" || p.Source() != "srgb" {
		t.Errorf("class %q source %q", p.Class(), p.Source())
	}

	data := p.Bytes()
	if len(data)%4 != 0 {
		t.Errorf("profile length %d not a multiple of 4", len(data))
	}
	parsed, err := icc.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.ColorSpace != colorSpaceRGB {
		t.Errorf("color space %08X", parsed.ColorSpace)
	}
	for _, sig := range []string{"desc", "wtpt", "rXYZ", "gXYZ", "bXYZ", "rTRC", "gTRC", "bTRC", "cprt"} {
		found := false
		for tag := range parsed.TagData {
			if signature(uint32(tag)) == sig {
				found = true
			}
		}
		if !found {
			t.Errorf("tag %s missing", sig)
		}
	}

	// NewProfile accepts what SRGB produces.
	again, err := NewProfile(p.Bytes(), "copy")
	if err != nil {
		t.Fatalf("NewProfile(sRGB): %v", err)
	}
	if again.Len() != p.Len() {
		t.Errorf("length %d vs %d", again.Len(), p.Len())
	}
}

func TestBytesIsACopy(t *testing.T) {
	b := SRGB().Bytes()
	b[0] ^= 0xff
	if SRGB().Bytes()[0] == b[0] {
		t.Error("Bytes must not expose the internal buffer")
	}
}

func TestNewProfileRejects(t *testing.T) {
	cmyk := SRGB().Bytes()
	copy(cmyk[16:], "CMYK")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an ICC profile, but it has to be long enough to get past the length check........................................................")},
		{"cmyk", cmyk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProfile(tt.data, tt.name)
			if !errors.Is(err, contracts.ErrProfile) {
				t.Errorf("expected profile error, got %v", err)
			}
		})
	}
}

func TestNewProfileNamesColorSpace(t *testing.T) {
	gray := SRGB().Bytes()
	copy(gray[16:], "GRAY")
	_, err := NewProfile(gray, "gray.icc")
	if err == nil || !strings.Contains(err.Error(), "color space GRAY is not RGB") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "srgb.icc")
	if err := os.WriteFile(path, SRGB().Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Source() != path {
		t.Errorf("source = %q", p.Source())
	}

	_, err = LoadProfile(filepath.Join(dir, "missing.icc"))
	if !errors.Is(err, contracts.ErrProfile) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected profile error wrapping not-exist, got %v", err)
	}
}
