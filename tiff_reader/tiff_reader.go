// Package tiff_reader recovers the embedded ICC profile and the resolution
// tags from IFD0 of a classic TIFF or BigTIFF file. Nothing else is decoded.
package tiff_reader

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/bits"
	"os"
	"strconv"

	"archconv/contracts"
)

type TiffMeta = contracts.TiffMeta
type Rational = contracts.Rational

const (
	TagXResolution    = 282
	TagYResolution    = 283
	TagResolutionUnit = 296
	TagICCProfile     = 34675

	magicClassic = 42
	magicBig     = 43
)

// ifdLayout holds the integer widths that differ between classic TIFF and
// BigTIFF. Entry counts, value counts and offsets share one width.
type ifdLayout struct {
	name      string
	countSize uint64
	entrySize uint64
	fieldSize uint64
}

var (
	classicLayout = ifdLayout{name: "classic", countSize: 2, entrySize: 12, fieldSize: 4}
	bigLayout     = ifdLayout{name: "BigTIFF", countSize: 8, entrySize: 20, fieldSize: 8}
)

// typeSize returns the byte width of the TIFF field types we can size.
func typeSize(t uint16) (uint64, bool) {
	switch t {
	case 1, 7: // BYTE, UNDEFINED
		return 1, true
	case 3: // SHORT
		return 2, true
	case 4: // LONG
		return 4, true
	case 5, 16: // RATIONAL, LONG8
		return 8, true
	}
	return 0, false
}

type reader struct {
	r     io.ReaderAt
	size  int64
	path  string
	order binary.ByteOrder
}

// ReadMeta reads IFD0 metadata from the TIFF at path.
func ReadMeta(path string) (TiffMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return TiffMeta{}, &contracts.IoError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return TiffMeta{}, &contracts.IoError{Path: path, Err: err}
	}
	return Read(f, info.Size(), path)
}

// Read parses IFD0 from r, which holds size bytes. name is only used in errors.
func Read(r io.ReaderAt, size int64, name string) (TiffMeta, error) {
	rd := &reader{r: r, size: size, path: name}

	head, err := rd.readAt(0, 8)
	if err != nil {
		return TiffMeta{}, err
	}
	switch string(head[:2]) {
	case "II":
		rd.order = binary.LittleEndian
	case "MM":
		rd.order = binary.BigEndian
	default:
		return TiffMeta{}, contracts.FormatErrorf(name, "bad byte order marker %q", head[:2])
	}

	var (
		layout  ifdLayout
		ifd0Off uint64
	)
	switch magic := rd.order.Uint16(head[2:4]); magic {
	case magicClassic:
		layout = classicLayout
		ifd0Off = uint64(rd.order.Uint32(head[4:8]))
	case magicBig:
		layout = bigLayout
		if offSize := rd.order.Uint16(head[4:6]); offSize != 8 {
			return TiffMeta{}, &contracts.Error{
				Kind: contracts.ErrUnsupportedOffsetSize,
				Path: name,
				Msg:  "offset size " + strconv.Itoa(int(offSize)),
			}
		}
		off, err := rd.readAt(8, 8)
		if err != nil {
			return TiffMeta{}, err
		}
		ifd0Off = rd.order.Uint64(off)
	default:
		return TiffMeta{}, contracts.FormatErrorf(name, "unknown TIFF magic %d", magic)
	}

	return rd.walkIFD(layout, ifd0Off)
}

// walkIFD visits every entry of the IFD at off and keeps the recognized tags.
func (rd *reader) walkIFD(layout ifdLayout, off uint64) (TiffMeta, error) {
	var meta TiffMeta

	countBuf, err := rd.readAt(off, layout.countSize)
	if err != nil {
		return meta, err
	}
	n := rd.uint(countBuf)

	entryOff := off + layout.countSize
	for i := uint64(0); i < n; i++ {
		ent, err := rd.readAt(entryOff, layout.entrySize)
		if err != nil {
			return meta, err
		}
		entryOff += layout.entrySize

		tag := rd.order.Uint16(ent[0:2])
		if tag != TagICCProfile && tag != TagXResolution && tag != TagYResolution && tag != TagResolutionUnit {
			continue
		}
		tsz, ok := typeSize(rd.order.Uint16(ent[2:4]))
		if !ok {
			continue
		}
		count := rd.uint(ent[4 : 4+layout.fieldSize])
		field := ent[4+layout.fieldSize:]

		b, err := rd.value(field, count, tsz, layout)
		if err != nil {
			return meta, err
		}

		switch tag {
		case TagICCProfile:
			if len(b) > 0 {
				meta.ICC = b
			}
		case TagXResolution:
			meta.XRes = rd.rational(b)
		case TagYResolution:
			meta.YRes = rd.rational(b)
		case TagResolutionUnit:
			if len(b) >= 2 {
				u := mapUnit(rd.order.Uint16(b[:2]))
				meta.Unit = &u
			}
		}
	}
	return meta, nil
}

// value returns the bytes of an entry, either inline from field or from the
// offset stored in field.
func (rd *reader) value(field []byte, count, tsz uint64, layout ifdLayout) ([]byte, error) {
	hi, length := bits.Mul64(count, tsz)
	if hi != 0 {
		length = math.MaxUint64
	}
	if length == 0 {
		return nil, nil
	}
	if length <= layout.fieldSize {
		out := make([]byte, length)
		copy(out, field[:length])
		return out, nil
	}
	return rd.readAt(rd.uint(field), length)
}

func (rd *reader) rational(b []byte) *Rational {
	if len(b) < 8 {
		return nil
	}
	r := Rational{Num: rd.order.Uint32(b[0:4]), Den: rd.order.Uint32(b[4:8])}
	if r.Den == 0 {
		return nil
	}
	return &r
}

func (rd *reader) uint(b []byte) uint64 {
	switch len(b) {
	case 2:
		return uint64(rd.order.Uint16(b))
	case 4:
		return uint64(rd.order.Uint32(b))
	default:
		return rd.order.Uint64(b)
	}
}

// readAt reads exactly n bytes at off. Ranges past the end of the file fail
// before anything is allocated.
func (rd *reader) readAt(off, n uint64) ([]byte, error) {
	ioErr := func(err error) error {
		return &contracts.IoError{Path: rd.path, Offset: clampInt64(off), Length: clampInt64(n), Err: err}
	}
	end := off + n
	if end < off || end > uint64(rd.size) {
		return nil, ioErr(io.ErrUnexpectedEOF)
	}
	buf := make([]byte, n)
	read, err := rd.r.ReadAt(buf, int64(off))
	if read == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, ioErr(err)
}

func mapUnit(v uint16) contracts.ResolutionUnit {
	switch v {
	case 2:
		return contracts.UnitInch
	case 3:
		return contracts.UnitCentimeter
	default:
		return contracts.UnitNone
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
