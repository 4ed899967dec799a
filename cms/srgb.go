package cms

import (
	"encoding/binary"
	"math"
	"sync"
)

var (
	srgbOnce    sync.Once
	srgbProfile *Profile
)

// SRGB returns the canonical sRGB profile (ICC v2, matrix/TRC).
func SRGB() *Profile {
	srgbOnce.Do(func() {
		data := buildSRGB()
		srgbProfile = &Profile{
			data:    data,
			version: headerVersion(data),
			class:   "mntr",
			source:  "srgb",
		}
	})
	return srgbProfile
}

const srgbCurvePoints = 1024

// buildSRGB assembles the profile: D50-adapted primaries, a sampled sRGB
// transfer curve shared by the three channels.
func buildSRGB() []byte {
	be := binary.BigEndian

	xyz := func(x, y, z float64) []byte {
		b := make([]byte, 20)
		copy(b, "XYZ ")
		be.PutUint32(b[8:], s15f16(x))
		be.PutUint32(b[12:], s15f16(y))
		be.PutUint32(b[16:], s15f16(z))
		return b
	}

	desc := func(s string) []byte {
		b := make([]byte, 0, 12+len(s)+1+8+3+67)
		b = append(b, "desc\x00\x00\x00\x00"...)
		b = be.AppendUint32(b, uint32(len(s)+1))
		b = append(b, s...)
		b = append(b, 0)
		b = be.AppendUint32(b, 0) // unicode language
		b = be.AppendUint32(b, 0) // unicode count
		b = be.AppendUint16(b, 0) // scriptcode code
		b = append(b, 0)          // scriptcode count
		return append(b, make([]byte, 67)...)
	}

	text := func(s string) []byte {
		b := append([]byte("text\x00\x00\x00\x00"), s...)
		return append(b, 0)
	}

	curve := make([]byte, 12+2*srgbCurvePoints)
	copy(curve, "curv")
	be.PutUint32(curve[8:], srgbCurvePoints)
	for i := 0; i < srgbCurvePoints; i++ {
		v := srgbToLinear(float64(i) / (srgbCurvePoints - 1))
		be.PutUint16(curve[12+2*i:], uint16(math.Round(v*65535)))
	}

	type tag struct {
		sig  string
		data []byte
	}
	tags := []tag{
		{"desc", desc("sRGB IEC61966-2.1")},
		{"cprt", text("No copyright, use freely")},
		{"wtpt", xyz(0.9642, 1.0, 0.8249)},
		{"rXYZ", xyz(0.4361, 0.2225, 0.0139)},
		{"gXYZ", xyz(0.3851, 0.7169, 0.0971)},
		{"bXYZ", xyz(0.1431, 0.0606, 0.7141)},
		{"rTRC", curve},
		{"gTRC", curve},
		{"bTRC", curve},
	}

	const headerLen = 128
	tableLen := 4 + 12*len(tags)
	out := make([]byte, headerLen+tableLen)
	be.PutUint32(out[headerLen:], uint32(len(tags)))

	// The three TRC tags point at one copy of the curve.
	placed := map[*byte]uint32{}
	for i, t := range tags {
		off, ok := placed[&t.data[0]]
		if !ok {
			for len(out)%4 != 0 {
				out = append(out, 0)
			}
			off = uint32(len(out))
			out = append(out, t.data...)
			placed[&t.data[0]] = off
		}
		e := out[headerLen+4+12*i:]
		copy(e, t.sig)
		be.PutUint32(e[4:], off)
		be.PutUint32(e[8:], uint32(len(t.data)))
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}

	h := out[:headerLen]
	be.PutUint32(h[0:], uint32(len(out)))
	be.PutUint32(h[8:], 0x02100000)
	copy(h[12:], "mntr")
	copy(h[16:], "RGB ")
	copy(h[20:], "XYZ ")
	be.PutUint16(h[24:], 2000) // creation date, 2000-01-01
	be.PutUint16(h[26:], 1)
	be.PutUint16(h[28:], 1)
	copy(h[36:], "acsp")
	be.PutUint32(h[68:], s15f16(0.9642))
	be.PutUint32(h[72:], s15f16(1.0))
	be.PutUint32(h[76:], s15f16(0.8249))
	return out
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func s15f16(v float64) uint32 {
	return uint32(int32(math.Round(v * 65536)))
}
