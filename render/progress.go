package render

import (
	"fmt"
	"image"

	"golang.org/x/image/math/fixed"

	"e2x/layout"
)

// Progress bar geometry: a thin outlined bar near the bottom edge with a
// proportional fill, chapter tick marks above it and a "page/total | title"
// footer line.
const (
	barHeight     = 4
	barBottomGap  = 20
	barSideInset  = 10
	tickHeight    = 4
	footerGap     = 45
	footerPageX   = 15
	footerTitleX  = 100
	footerTrimLen = 35
)

// OverlayProgress draws the reading progress for page (1-based) onto a
// finished page bitmap. Ticks mark visible chapter starts at their fractional
// positions. Purely an overlay - never changes page count or layout.
func (r *Renderer) OverlayProgress(img *image.Gray, page, total int, entries []layout.TocEntry) error {
	if total <= 0 {
		return nil
	}
	w, h := r.cfg.PageWidth, r.cfg.PageHeight
	barTop := h - barBottomGap
	span := w - 2*barSideInset

	outlineRect(img, barSideInset, barTop, w-barSideInset, barTop+barHeight, 0)

	for _, e := range entries {
		x := (e.Page-1)*span/total + barSideInset
		fillRect(img, x, barTop-tickHeight, x, barTop, 0)
	}

	if fill := page * span / total; fill > 0 {
		fillRect(img, barSideInset, barTop, barSideInset+fill, barTop+barHeight, 0)
	}

	footerY := h - footerGap
	if err := r.drawString(img, fmt.Sprintf("%d/%d", page, total),
		fixed.I(footerPageX), fixed.I(footerY), uiFontSize, r.ui, false, false); err != nil {
		return err
	}
	if title := currentTitle(page, entries); title != "" {
		text := trimRunes("| "+title, footerTrimLen)
		if err := r.drawString(img, text,
			fixed.I(footerTitleX), fixed.I(footerY), uiFontSize, r.ui, false, false); err != nil {
			return err
		}
	}

	Threshold(img, textThreshold)
	return nil
}

// currentTitle picks the chapter whose span covers the page: the last entry
// starting at or before it.
func currentTitle(page int, entries []layout.TocEntry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if page >= entries[i].Page {
			return entries[i].Title
		}
	}
	return ""
}

func trimRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
