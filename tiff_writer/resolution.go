package tiff_writer

import "archconv/contracts"

// DefaultDPI is used when no resolution is known for either axis.
const DefaultDPI = 600

type Resolution struct {
	X    contracts.Rational
	Y    contracts.Rational
	Unit contracts.ResolutionUnit
}

// NormalizeResolution derives the resolution tags of an output file from the
// source metadata, which may be nil. A known axis is mirrored to a missing
// one; an axis that is still unknown, or has a zero denominator, falls back
// to defaultDPI per inch. A source unit of None is written as Inch.
func NormalizeResolution(meta *contracts.TiffMeta, defaultDPI uint32) Resolution {
	if defaultDPI == 0 {
		defaultDPI = DefaultDPI
	}
	fallback := contracts.Rational{Num: defaultDPI, Den: 1}
	res := Resolution{X: fallback, Y: fallback, Unit: contracts.UnitInch}
	if meta == nil {
		return res
	}

	if meta.Unit != nil && *meta.Unit != contracts.UnitNone {
		res.Unit = *meta.Unit
	}

	switch {
	case meta.XRes != nil && meta.YRes != nil:
		res.X, res.Y = *meta.XRes, *meta.YRes
	case meta.XRes != nil:
		res.X, res.Y = *meta.XRes, *meta.XRes
	case meta.YRes != nil:
		res.X, res.Y = *meta.YRes, *meta.YRes
	default:
		// dpi fallback only makes sense per inch
		res.Unit = contracts.UnitInch
	}

	if res.X.Den == 0 {
		res.X = fallback
	}
	if res.Y.Den == 0 {
		res.Y = fallback
	}
	return res
}
