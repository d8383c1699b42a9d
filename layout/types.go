// Package layout implements deterministic line breaking and page filling.
// Given the flattened content stream, an immutable configuration and a font
// metrics provider it produces an ordered page sequence. Identical input and
// configuration always yield identical pages - all horizontal math is done in
// 26.6 fixed point, vertical math in whole pixel rows.
package layout

import "golang.org/x/image/math/fixed"

// Metrics is the font metrics contract layout depends on. Implemented by
// fonts.Measurer, stubbed in tests.
type Metrics interface {
	// Advance returns the horizontal advance of s in the style face.
	Advance(s string, bold, italic bool) fixed.Int26_6
	// LineHeight returns the vertical advance between line tops.
	LineHeight() fixed.Int26_6
}

// Segment is a placed run of text within a line, x-offset relative to the
// left edge of the content area. Justification stretch is already applied to
// offsets, Stretch on the owning LineBox records the per-gap amount.
type Segment struct {
	Text   string
	X      fixed.Int26_6
	Bold   bool
	Italic bool
}

// LineBox is a single laid out line.
type LineBox struct {
	Y        int // top of the line within the content area, pixels
	Segments []Segment
	Hyphen   bool          // a soft break was realized, render a trailing hyphen
	HyphenX  fixed.Int26_6 // x-offset of the trailing hyphen glyph
	Stretch  fixed.Int26_6 // extra advance added to every inter-word gap
}

// ImagePlacement positions a processed asset bitmap on a page. Coordinates
// are relative to the content area, dimensions are the target box the asset
// pipeline scales into.
type ImagePlacement struct {
	AssetID string
	X, Y    int
	W, H    int
}

// Page is an ordered sequence of line boxes and image placements. Index is
// 1-based and contiguous, assigned only after the number of prepended TOC
// pages is known.
type Page struct {
	Index          int
	Lines          []LineBox
	Images         []ImagePlacement
	ChapterStart   bool
	ChapterID      string
	ChapterTitle   string
	ChapterVisible bool
}

// TocEntry points a visible chapter at its first page.
type TocEntry struct {
	ChapterID string
	Title     string
	Page      int
}

// HasContent reports whether anything was placed on the page.
func (p *Page) HasContent() bool {
	return len(p.Lines) > 0 || len(p.Images) > 0
}
