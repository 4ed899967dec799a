// Package tiff_writer streams RGB pixel buffers into strip-organized,
// uncompressed, little-endian classic TIFF files.
package tiff_writer

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"archconv/contracts"
	"archconv/files_manager"
)

type RGB8 = contracts.RGB8
type RGB16 = contracts.RGB16

const (
	RowsPerStrip8  = 128
	RowsPerStrip16 = 64

	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagXResolution     = 282
	tagYResolution     = 283
	tagPlanarConfig    = 284
	tagResolutionUnit  = 296
	tagICCProfile      = 34675

	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7

	headerSize = 8
	entrySize  = 12
)

var order = binary.LittleEndian

type Options struct {
	// DefaultDPI is used when the source carries no resolution. Zero means 600.
	DefaultDPI uint32
}

// WriteRGB8 writes an 8-bit RGB TIFF. icc is embedded when non-empty; meta
// supplies the source resolution and may be nil.
func WriteRGB8(path string, width, height int, pix []RGB8, icc []byte, meta *contracts.TiffMeta, opts Options) error {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return err
	}
	ri := rasterInfo{
		width:         width,
		height:        height,
		bitsPerSample: 8,
		rowsPerStrip:  RowsPerStrip8,
		icc:           icc,
		res:           NormalizeResolution(meta, opts.DefaultDPI),
	}
	return files_manager.WriteAtomic(path, func(w io.Writer) error {
		return ri.write(w, func(buf []byte, first, n int) {
			for i, p := range pix[first : first+n] {
				buf[i*3] = p.R
				buf[i*3+1] = p.G
				buf[i*3+2] = p.B
			}
		})
	})
}

// WriteRGB16 writes a 16-bit RGB TIFF. See WriteRGB8.
func WriteRGB16(path string, width, height int, pix []RGB16, icc []byte, meta *contracts.TiffMeta, opts Options) error {
	if err := contracts.CheckShape(len(pix), width, height); err != nil {
		return err
	}
	ri := rasterInfo{
		width:         width,
		height:        height,
		bitsPerSample: 16,
		rowsPerStrip:  RowsPerStrip16,
		icc:           icc,
		res:           NormalizeResolution(meta, opts.DefaultDPI),
	}
	return files_manager.WriteAtomic(path, func(w io.Writer) error {
		return ri.write(w, func(buf []byte, first, n int) {
			for i, p := range pix[first : first+n] {
				order.PutUint16(buf[i*6:], p.R)
				order.PutUint16(buf[i*6+2:], p.G)
				order.PutUint16(buf[i*6+4:], p.B)
			}
		})
	})
}

type rasterInfo struct {
	width         int
	height        int
	bitsPerSample int
	rowsPerStrip  int
	icc           []byte
	res           Resolution
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
	// offset of data when it does not fit into the entry
	offset uint32
}

func (e *entry) inline() bool { return len(e.data) <= 4 }

// plan is the complete file layout, known before the first byte is written.
type plan struct {
	entries    []*entry
	stripStart uint32
	stripBytes []uint32
}

func (s rasterInfo) bytesPerRow() uint64 {
	return uint64(s.width) * 3 * uint64(s.bitsPerSample/8)
}

func (s rasterInfo) layout() (*plan, error) {
	if s.width <= 0 || s.height <= 0 {
		return nil, contracts.FormatErrorf("", "cannot write a %dx%d image", s.width, s.height)
	}

	strips := (s.height + s.rowsPerStrip - 1) / s.rowsPerStrip
	p := &plan{stripBytes: make([]uint32, strips)}

	var total uint64
	for i := range p.stripBytes {
		rows := min(s.rowsPerStrip, s.height-i*s.rowsPerStrip)
		n := uint64(rows) * s.bytesPerRow()
		if n > math.MaxUint32 {
			return nil, contracts.FormatErrorf("", "strip of %d bytes exceeds classic TIFF limits", n)
		}
		p.stripBytes[i] = uint32(n)
		total += n
	}

	short := func(v ...uint16) []byte {
		b := make([]byte, 2*len(v))
		for i, x := range v {
			order.PutUint16(b[2*i:], x)
		}
		return b
	}
	long := func(v ...uint32) []byte {
		b := make([]byte, 4*len(v))
		for i, x := range v {
			order.PutUint32(b[4*i:], x)
		}
		return b
	}
	rational := func(r contracts.Rational) []byte { return long(r.Num, r.Den) }

	bps := uint16(s.bitsPerSample)
	offsets := &entry{tag: tagStripOffsets, typ: typeLong, count: uint32(strips), data: make([]byte, 4*strips)}
	p.entries = []*entry{
		{tag: tagImageWidth, typ: typeLong, count: 1, data: long(uint32(s.width))},
		{tag: tagImageLength, typ: typeLong, count: 1, data: long(uint32(s.height))},
		{tag: tagBitsPerSample, typ: typeShort, count: 3, data: short(bps, bps, bps)},
		{tag: tagCompression, typ: typeShort, count: 1, data: short(1)},
		{tag: tagPhotometric, typ: typeShort, count: 1, data: short(2)},
		offsets,
		{tag: tagSamplesPerPixel, typ: typeShort, count: 1, data: short(3)},
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, data: long(uint32(s.rowsPerStrip))},
		{tag: tagStripByteCounts, typ: typeLong, count: uint32(strips), data: long(p.stripBytes...)},
		{tag: tagXResolution, typ: typeRational, count: 1, data: rational(s.res.X)},
		{tag: tagYResolution, typ: typeRational, count: 1, data: rational(s.res.Y)},
		{tag: tagPlanarConfig, typ: typeShort, count: 1, data: short(1)},
		{tag: tagResolutionUnit, typ: typeShort, count: 1, data: short(uint16(s.res.Unit))},
	}
	if len(s.icc) > 0 {
		if uint64(len(s.icc)) > math.MaxUint32 {
			return nil, contracts.FormatErrorf("", "ICC profile of %d bytes is too large", len(s.icc))
		}
		p.entries = append(p.entries, &entry{tag: tagICCProfile, typ: typeUndefined, count: uint32(len(s.icc)), data: s.icc})
	}

	ifdSize := uint64(2 + entrySize*len(p.entries) + 4)
	pos := uint64(headerSize) + ifdSize
	for _, e := range p.entries {
		if e.inline() {
			continue
		}
		pos += pos & 1
		e.offset = uint32(pos)
		pos += uint64(len(e.data))
		if pos > math.MaxUint32 {
			return nil, contracts.FormatErrorf("", "metadata exceeds classic TIFF limits")
		}
	}
	pos += pos & 1

	if pos+total > math.MaxUint32 {
		return nil, contracts.FormatErrorf("", "image of %d bytes exceeds classic TIFF limits", pos+total)
	}
	p.stripStart = uint32(pos)
	off := p.stripStart
	for i, n := range p.stripBytes {
		order.PutUint32(offsets.data[4*i:], off)
		off += n
	}
	return p, nil
}

// write streams the file. encode fills buf with n pixels starting at pixel
// index first; it is called once per strip with a reused buffer.
func (s rasterInfo) write(dst io.Writer, encode func(buf []byte, first, n int)) error {
	p, err := s.layout()
	if err != nil {
		return err
	}
	cw := &countingWriter{w: dst}

	header := make([]byte, headerSize)
	copy(header, "II")
	order.PutUint16(header[2:], 42)
	order.PutUint32(header[4:], headerSize)
	cw.Write(header)

	ifd := make([]byte, 0, 2+entrySize*len(p.entries)+4)
	ifd = order.AppendUint16(ifd, uint16(len(p.entries)))
	for _, e := range p.entries {
		ifd = order.AppendUint16(ifd, e.tag)
		ifd = order.AppendUint16(ifd, e.typ)
		ifd = order.AppendUint32(ifd, e.count)
		if e.inline() {
			var field [4]byte
			copy(field[:], e.data)
			ifd = append(ifd, field[:]...)
		} else {
			ifd = order.AppendUint32(ifd, e.offset)
		}
	}
	ifd = order.AppendUint32(ifd, 0) // no next IFD
	cw.Write(ifd)

	for _, e := range p.entries {
		if e.inline() {
			continue
		}
		cw.pad(int64(e.offset))
		cw.Write(e.data)
	}
	cw.pad(int64(p.stripStart))
	if cw.err != nil {
		return fmt.Errorf("write TIFF header: %w", cw.err)
	}
	if cw.offset != int64(p.stripStart) {
		return fmt.Errorf("TIFF layout mismatch: strips at %d, planned %d", cw.offset, p.stripStart)
	}

	bpr := int(s.bytesPerRow())
	buf := make([]byte, int(p.stripBytes[0]))
	for i, n := range p.stripBytes {
		rows := int(n) / bpr
		encode(buf[:n], i*s.rowsPerStrip*s.width, rows*s.width)
		if _, err := cw.Write(buf[:n]); err != nil {
			return fmt.Errorf("write strip %d: %w", i, err)
		}
	}
	return nil
}

// countingWriter tracks the file offset and remembers the first error so the
// header can be written without checking every call.
type countingWriter struct {
	w      io.Writer
	offset int64
	err    error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.offset += int64(n)
	cw.err = err
	return n, err
}

func (cw *countingWriter) pad(to int64) {
	if to > cw.offset {
		cw.Write(make([]byte, to-cw.offset))
	}
}
