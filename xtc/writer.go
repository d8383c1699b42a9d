package xtc

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
)

// TocRecord is one entry of the container TOC directory: a display title and
// the 1-based page it opens.
type TocRecord struct {
	Title string
	Page  int
}

// Writer emits a complete container in one forward pass. Page geometry is
// fixed per container, so every section offset is known before the first
// page payload is produced and nothing needs buffering or seeking.
type Writer struct {
	w       io.Writer
	width   int
	height  int
	pages   int
	written int
}

// NewWriter writes the header and both directories, leaving the writer ready
// to accept exactly pages page bitmaps of width by height pixels.
func NewWriter(w io.Writer, width, height, pages int, orientation uint8, toc []TocRecord) (*Writer, error) {
	switch {
	case width <= 0 || width > math.MaxUint16 || height <= 0 || height > math.MaxUint16:
		return nil, fmt.Errorf("page size %dx%d does not fit the container header", width, height)
	case pages < 0 || pages > math.MaxUint16:
		return nil, fmt.Errorf("page count %d does not fit the container header", pages)
	case len(toc) > pages:
		return nil, fmt.Errorf("%d toc entries for %d pages", len(toc), pages)
	}

	tocDirSize := 0
	for _, rec := range toc {
		if len(rec.Title) > math.MaxUint16 {
			return nil, fmt.Errorf("toc title of %d bytes does not fit the directory", len(rec.Title))
		}
		if rec.Page < 1 || rec.Page > pages {
			return nil, fmt.Errorf("toc target page %d outside document of %d pages", rec.Page, pages)
		}
		tocDirSize += 2 + len(rec.Title) + 2
	}

	hdr := header{
		pages:       uint16(pages),
		width:       uint16(width),
		height:      uint16(height),
		orientation: orientation,
		tocCount:    uint32(len(toc)),
		tocDirOff:   headerSize,
		pageDirOff:  uint64(headerSize + tocDirSize),
		payloadOff:  uint64(headerSize + tocDirSize + pages*dirEntrySize),
	}
	if _, err := w.Write(hdr.marshal()); err != nil {
		return nil, fmt.Errorf("unable to write container header: %w", err)
	}

	tocDir := make([]byte, 0, tocDirSize)
	for _, rec := range toc {
		var u16 [2]byte
		binary.LittleEndian.PutUint16(u16[:], uint16(len(rec.Title)))
		tocDir = append(tocDir, u16[:]...)
		tocDir = append(tocDir, rec.Title...)
		binary.LittleEndian.PutUint16(u16[:], uint16(rec.Page))
		tocDir = append(tocDir, u16[:]...)
	}
	if _, err := w.Write(tocDir); err != nil {
		return nil, fmt.Errorf("unable to write toc directory: %w", err)
	}

	// every payload has the same length, the directory is fully determined
	pageLen := pageHeaderSize + rowStride(width)*height
	dir := make([]byte, pages*dirEntrySize)
	for i := 0; i < pages; i++ {
		e := dirEntry{
			offset: hdr.payloadOff + uint64(i*pageLen),
			length: uint32(pageLen),
			width:  uint16(width),
			height: uint16(height),
		}
		e.marshal(dir[i*dirEntrySize:])
	}
	if _, err := w.Write(dir); err != nil {
		return nil, fmt.Errorf("unable to write page directory: %w", err)
	}

	return &Writer{w: w, width: width, height: height, pages: pages}, nil
}

// WritePage packs and appends the next page bitmap.
func (x *Writer) WritePage(img *image.Gray) error {
	if x.written >= x.pages {
		return fmt.Errorf("container already holds all %d pages", x.pages)
	}
	if b := img.Bounds(); b.Dx() != x.width || b.Dy() != x.height {
		return fmt.Errorf("page bitmap is %dx%d, container expects %dx%d", b.Dx(), b.Dy(), x.width, x.height)
	}
	if _, err := x.w.Write(pageHeader(x.width, x.height)); err != nil {
		return fmt.Errorf("unable to write page header: %w", err)
	}
	if _, err := x.w.Write(packBits(img)); err != nil {
		return fmt.Errorf("unable to write page bits: %w", err)
	}
	x.written++
	return nil
}

// Close verifies the directory promise was kept.
func (x *Writer) Close() error {
	if x.written != x.pages {
		return fmt.Errorf("container directory promises %d pages, %d written", x.pages, x.written)
	}
	return nil
}
