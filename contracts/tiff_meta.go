package contracts

// Rational is a TIFF RATIONAL. A zero denominator never leaves the reader.
type Rational struct {
	Num uint32
	Den uint32
}

func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

type ResolutionUnit uint16

// Values match the TIFF ResolutionUnit tag.
const (
	UnitNone       ResolutionUnit = 1
	UnitInch       ResolutionUnit = 2
	UnitCentimeter ResolutionUnit = 3
)

func (u ResolutionUnit) String() string {
	switch u {
	case UnitInch:
		return "inch"
	case UnitCentimeter:
		return "centimeter"
	default:
		return "none"
	}
}

// TiffMeta is the metadata recovered from IFD0 of a source image. Nil fields
// are absent.
type TiffMeta struct {
	ICC  []byte
	XRes *Rational
	YRes *Rational
	Unit *ResolutionUnit
}

// HasResolution reports whether either axis is known.
func (m *TiffMeta) HasResolution() bool {
	return m != nil && (m.XRes != nil || m.YRes != nil)
}
