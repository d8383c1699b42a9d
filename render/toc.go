package render

import (
	"image"
	"strconv"
	"strings"

	"golang.org/x/image/math/fixed"

	"e2x/layout"
)

const tocHeaderText = "TABLE OF CONTENTS"

// TocPages renders the table of contents into full page bitmaps: centered
// header, rule line, then fixed-height rows of title, dot leaders and a
// right-aligned page number. Row capacity comes from the same geometry the
// TOC builder sized itself with, so the produced page count always matches
// the reserved offset. Empty title falls back to the default header.
func (r *Renderer) TocPages(title string, entries []layout.TocEntry) ([]*image.Gray, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if len(title) == 0 {
		title = tocHeaderText
	}

	tcfg := layout.TocPageConfig(r.cfg)
	rows := tcfg.ContentHeight() / layout.TocRowHeight
	if rows < 1 {
		rows = 1
	}

	pageW := r.cfg.PageWidth
	var pages []*image.Gray

	for start := 0; start < len(entries); start += rows {
		chunk := entries[start:min(start+rows, len(entries))]
		img := newWhite(pageW, r.cfg.PageHeight)

		headerY := 40 + r.cfg.TopPadding
		headerW := r.header.Advance(title, false, false).Round()
		if err := r.drawString(img, title,
			fixed.I((pageW-headerW)/2), fixed.I(headerY),
			tocHeaderFontSize, r.header, false, false); err != nil {
			return nil, err
		}

		ruleY := headerY + 35
		fillRect(img, layout.TocSideMargin, ruleY, pageW-layout.TocSideMargin, ruleY, 0)

		y := ruleY + 25
		for _, e := range chunk {
			if err := r.tocRow(img, e, y, pageW); err != nil {
				return nil, err
			}
			y += layout.TocRowHeight
		}

		Threshold(img, textThreshold)
		pages = append(pages, img)
	}
	return pages, nil
}

func (r *Renderer) tocRow(img *image.Gray, e layout.TocEntry, y, pageW int) error {
	target := strconv.Itoa(e.Page)
	targetW := r.entry.Advance(target, false, false).Round()

	if err := r.drawString(img, e.Title,
		fixed.I(layout.TocSideMargin), fixed.I(y),
		tocEntryFontSize, r.entry, false, false); err != nil {
		return err
	}

	titleEnd := layout.TocSideMargin + r.entry.Advance(e.Title, false, false).Round() + 5
	dotsEnd := pageW - layout.TocSideMargin - targetW - 10
	if dotW := r.entry.Advance(".", false, false); dotsEnd > titleEnd && dotW > 0 {
		n := int(fixed.I(dotsEnd-titleEnd) / dotW)
		if n > 0 {
			if err := r.drawString(img, strings.Repeat(".", n),
				fixed.I(titleEnd), fixed.I(y),
				tocEntryFontSize, r.entry, false, false); err != nil {
				return err
			}
		}
	}

	return r.drawString(img, target,
		fixed.I(pageW-layout.TocSideMargin-targetW), fixed.I(y),
		tocEntryFontSize, r.entry, false, false)
}
