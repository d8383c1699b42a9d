// Package xtc reads and writes the XTC page container: a fixed 56-byte
// header, a TOC directory, a page directory of absolute offsets and a blob of
// XTG-framed 1-bit page bitmaps. All integers are little-endian, bit rows are
// packed MSB-first with a set bit meaning white.
package xtc

import (
	"encoding/binary"
	"image"
)

const (
	// ContainerMagic spells "XTC\0" read as a little-endian u32.
	ContainerMagic = 0x00435458
	// PageMagic spells "XTG\0", framing every page payload.
	PageMagic = 0x00475458

	FormatVersion = 0x0100

	headerSize     = 56
	dirEntrySize   = 16
	pageHeaderSize = 22

	bitDepth = 1

	// whiteCutoff splits 8-bit luminance into paper and ink when packing.
	whiteCutoff = 128
)

// header is the fixed container preamble.
//
//	off size field
//	  0    4 magic
//	  4    2 version
//	  6    2 page count
//	  8    2 page width
//	 10    2 page height
//	 12    1 orientation (0 portrait, 1 landscape)
//	 13    1 bit depth
//	 14    2 reserved
//	 16    4 toc entry count
//	 20    4 reserved
//	 24    8 page directory offset
//	 32    8 payload offset
//	 40    8 toc directory offset
//	 48    8 reserved
type header struct {
	pages       uint16
	width       uint16
	height      uint16
	orientation uint8
	tocCount    uint32
	tocDirOff   uint64
	pageDirOff  uint64
	payloadOff  uint64
}

func (h *header) marshal() []byte {
	buf := make([]byte, headerSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], ContainerMagic)
	le.PutUint16(buf[4:], FormatVersion)
	le.PutUint16(buf[6:], h.pages)
	le.PutUint16(buf[8:], h.width)
	le.PutUint16(buf[10:], h.height)
	buf[12] = h.orientation
	buf[13] = bitDepth
	le.PutUint32(buf[16:], h.tocCount)
	le.PutUint64(buf[24:], h.pageDirOff)
	le.PutUint64(buf[32:], h.payloadOff)
	le.PutUint64(buf[40:], h.tocDirOff)
	return buf
}

// dirEntry locates one page payload within the container.
type dirEntry struct {
	offset uint64
	length uint32
	width  uint16
	height uint16
}

func (e *dirEntry) marshal(buf []byte) {
	le := binary.LittleEndian
	le.PutUint64(buf[0:], e.offset)
	le.PutUint32(buf[8:], e.length)
	le.PutUint16(buf[12:], e.width)
	le.PutUint16(buf[14:], e.height)
}

func parseDirEntry(buf []byte) dirEntry {
	le := binary.LittleEndian
	return dirEntry{
		offset: le.Uint64(buf[0:]),
		length: le.Uint32(buf[8:]),
		width:  le.Uint16(buf[12:]),
		height: le.Uint16(buf[14:]),
	}
}

// rowStride is the byte width of one packed pixel row.
func rowStride(w int) int {
	return (w + 7) / 8
}

// pageHeader frames a single page payload.
func pageHeader(w, h int) []byte {
	buf := make([]byte, pageHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], PageMagic)
	le.PutUint16(buf[4:], uint16(w))
	le.PutUint16(buf[6:], uint16(h))
	le.PutUint32(buf[10:], uint32(rowStride(w)*h))
	return buf
}

// packBits converts an 8-bit grayscale bitmap into MSB-first 1-bit rows.
func packBits(img *image.Gray) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := rowStride(w)
	out := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			if img.Pix[row+x] > whiteCutoff {
				out[y*stride+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return out
}

// unpackBits expands packed rows back into a pure black and white bitmap.
func unpackBits(data []byte, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	stride := rowStride(w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if data[y*stride+x/8]&(0x80>>uint(x%8)) != 0 {
				img.Pix[img.PixOffset(x, y)] = 0xff
			}
		}
	}
	return img
}
