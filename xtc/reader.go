package xtc

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
)

// Reader opens a container over random-access storage and decodes individual
// pages on demand, the way a device paging through a book would.
type Reader struct {
	r    io.ReaderAt
	hdr  header
	toc  []TocRecord
	dir  []dirEntry
	size int64
}

func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	if size < headerSize {
		return nil, fmt.Errorf("container of %d bytes is shorter than the header", size)
	}
	raw := make([]byte, headerSize)
	if _, err := r.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("unable to read container header: %w", err)
	}

	le := binary.LittleEndian
	if magic := le.Uint32(raw[0:]); magic != ContainerMagic {
		return nil, fmt.Errorf("bad container magic 0x%08x", magic)
	}
	if v := le.Uint16(raw[4:]); v != FormatVersion {
		return nil, fmt.Errorf("unsupported container version 0x%04x", v)
	}
	if raw[13] != bitDepth {
		return nil, fmt.Errorf("unsupported bit depth %d", raw[13])
	}

	x := &Reader{
		r: r,
		hdr: header{
			pages:       le.Uint16(raw[6:]),
			width:       le.Uint16(raw[8:]),
			height:      le.Uint16(raw[10:]),
			orientation: raw[12],
			tocCount:    le.Uint32(raw[16:]),
			pageDirOff:  le.Uint64(raw[24:]),
			payloadOff:  le.Uint64(raw[32:]),
			tocDirOff:   le.Uint64(raw[40:]),
		},
		size: size,
	}

	if err := x.readTocDir(); err != nil {
		return nil, err
	}
	if err := x.readPageDir(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *Reader) readTocDir() error {
	if x.hdr.tocCount == 0 {
		return nil
	}
	if x.hdr.tocDirOff > x.hdr.pageDirOff || x.hdr.pageDirOff > uint64(x.size) {
		return fmt.Errorf("toc directory [%d, %d) outside container", x.hdr.tocDirOff, x.hdr.pageDirOff)
	}
	raw := make([]byte, x.hdr.pageDirOff-x.hdr.tocDirOff)
	if _, err := x.r.ReadAt(raw, int64(x.hdr.tocDirOff)); err != nil {
		return fmt.Errorf("unable to read toc directory: %w", err)
	}

	le := binary.LittleEndian
	off := 0
	for i := uint32(0); i < x.hdr.tocCount; i++ {
		if off+2 > len(raw) {
			return fmt.Errorf("toc directory truncated at entry %d", i)
		}
		n := int(le.Uint16(raw[off:]))
		off += 2
		if off+n+2 > len(raw) {
			return fmt.Errorf("toc directory truncated at entry %d", i)
		}
		x.toc = append(x.toc, TocRecord{
			Title: string(raw[off : off+n]),
			Page:  int(le.Uint16(raw[off+n:])),
		})
		off += n + 2
	}
	return nil
}

func (x *Reader) readPageDir() error {
	dirLen := uint64(int(x.hdr.pages) * dirEntrySize)
	if x.hdr.pageDirOff+dirLen > uint64(x.size) {
		return fmt.Errorf("page directory outside container")
	}
	raw := make([]byte, dirLen)
	if _, err := x.r.ReadAt(raw, int64(x.hdr.pageDirOff)); err != nil {
		return fmt.Errorf("unable to read page directory: %w", err)
	}

	x.dir = make([]dirEntry, x.hdr.pages)
	for i := range x.dir {
		e := parseDirEntry(raw[i*dirEntrySize:])
		if e.offset+uint64(e.length) > uint64(x.size) {
			return fmt.Errorf("page %d payload [%d, %d) outside container", i+1, e.offset, e.offset+uint64(e.length))
		}
		if int(e.length) < pageHeaderSize+rowStride(int(e.width))*int(e.height) {
			return fmt.Errorf("page %d payload of %d bytes too short for %dx%d", i+1, e.length, e.width, e.height)
		}
		x.dir[i] = e
	}
	return nil
}

// Pages reports the page count.
func (x *Reader) Pages() int { return int(x.hdr.pages) }

// PageSize reports the device page dimensions from the header.
func (x *Reader) PageSize() (w, h int) { return int(x.hdr.width), int(x.hdr.height) }

// Landscape reports the orientation flag.
func (x *Reader) Landscape() bool { return x.hdr.orientation != 0 }

// TOC returns the decoded TOC directory in document order.
func (x *Reader) TOC() []TocRecord { return x.toc }

// Page decodes the 1-based page into a pure black and white bitmap.
func (x *Reader) Page(n int) (*image.Gray, error) {
	if n < 1 || n > len(x.dir) {
		return nil, fmt.Errorf("page %d outside document of %d pages", n, len(x.dir))
	}
	e := x.dir[n-1]
	raw := make([]byte, e.length)
	if _, err := x.r.ReadAt(raw, int64(e.offset)); err != nil {
		return nil, fmt.Errorf("unable to read page %d: %w", n, err)
	}

	le := binary.LittleEndian
	if magic := le.Uint32(raw[0:]); magic != PageMagic {
		return nil, fmt.Errorf("page %d: bad page magic 0x%08x", n, magic)
	}
	w := int(le.Uint16(raw[4:]))
	h := int(le.Uint16(raw[6:]))
	if w != int(e.width) || h != int(e.height) {
		return nil, fmt.Errorf("page %d: payload is %dx%d, directory says %dx%d", n, w, h, e.width, e.height)
	}
	want := rowStride(w) * h
	if got := int(le.Uint32(raw[10:])); got != want {
		return nil, fmt.Errorf("page %d: data length %d, want %d", n, got, want)
	}
	return unpackBits(raw[pageHeaderSize:pageHeaderSize+want], w, h), nil
}
