// Package render rasterizes laid-out pages into device-sized grayscale
// bitmaps holding only pure black and white, ready for 1-bit packing.
package render

import (
	"context"
	"image"
	"image/draw"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"e2x/assets"
	"e2x/book"
	"e2x/fonts"
	"e2x/layout"
)

const (
	uiFontSize        = 16
	tocEntryFontSize  = 20
	tocHeaderFontSize = 24

	// textThreshold separates anti-aliased glyph coverage into ink and paper.
	textThreshold = 140
)

// Renderer composes page bitmaps from layout results. Not safe for
// concurrent use - font faces are shared and stateful.
type Renderer struct {
	cfg  layout.Config
	set  *fonts.Set
	size float64
	m    *fonts.Measurer
	pipe *assets.Pipeline
	log  *zap.Logger

	ui     *fonts.Measurer
	entry  *fonts.Measurer
	header *fonts.Measurer
}

func New(cfg layout.Config, set *fonts.Set, m *fonts.Measurer, size float64, pipe *assets.Pipeline, log *zap.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		set:    set,
		size:   size,
		m:      m,
		pipe:   pipe,
		log:    log,
		ui:     fonts.NewMeasurer(set, uiFontSize, 1),
		entry:  fonts.NewMeasurer(set, tocEntryFontSize, 1),
		header: fonts.NewMeasurer(set, tocHeaderFontSize, 1),
	}
}

// Page rasterizes one body page: glyph runs at their fixed-point offsets,
// the trailing hyphen when the line realized one, then placed image bitmaps.
// Text is thresholded to pure black and white, image bitmaps arrive already
// dithered.
func (r *Renderer) Page(ctx context.Context, pg *layout.Page, b *book.Book) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := newWhite(r.cfg.PageWidth, r.cfg.PageHeight)
	left := fixed.I(r.cfg.ContentLeft())
	top := r.cfg.ContentTop()

	for _, line := range pg.Lines {
		lineTop := fixed.I(top + line.Y)
		for _, seg := range line.Segments {
			if err := r.drawString(img, seg.Text, left+seg.X, lineTop, r.size, r.m, seg.Bold, seg.Italic); err != nil {
				return nil, err
			}
		}
		if line.Hyphen {
			bold, italic := false, false
			if n := len(line.Segments); n > 0 {
				bold, italic = line.Segments[n-1].Bold, line.Segments[n-1].Italic
			}
			if err := r.drawString(img, "-", left+line.HyphenX, lineTop, r.size, r.m, bold, italic); err != nil {
				return nil, err
			}
		}
	}
	Threshold(img, textThreshold)

	for _, pl := range pg.Images {
		bm, err := r.pipe.Bitmap(ctx, b.Assets[pl.AssetID], pl.AssetID, pl.W, pl.H)
		if err != nil {
			return nil, err
		}
		x0 := r.cfg.ContentLeft() + pl.X
		y0 := top + pl.Y
		draw.Draw(img, image.Rect(x0, y0, x0+pl.W, y0+pl.H), bm, image.Point{}, draw.Src)
	}
	return img, nil
}

// drawString paints s with its left edge at x and the top of the line box at
// lineTop, placing the baseline by the face ascent.
func (r *Renderer) drawString(img *image.Gray, s string, x, lineTop fixed.Int26_6, size float64, m *fonts.Measurer, bold, italic bool) error {
	face, err := r.set.Face(size, bold, italic)
	if err != nil {
		return err
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: lineTop + m.Ascent(bold, italic)},
	}
	d.DrawString(s)
	return nil
}

// Threshold folds every pixel above cut to white and the rest to black.
func Threshold(img *image.Gray, cut uint8) {
	for i, v := range img.Pix {
		if v > cut {
			img.Pix[i] = 0xff
		} else {
			img.Pix[i] = 0
		}
	}
}

func newWhite(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func fillRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	b := img.Bounds()
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	for y := y0; y <= y1; y++ {
		row := img.PixOffset(x0, y)
		for x := x0; x <= x1; x++ {
			img.Pix[row] = v
			row++
		}
	}
}

func outlineRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	fillRect(img, x0, y0, x1, y0, v)
	fillRect(img, x0, y1, x1, y1, v)
	fillRect(img, x0, y0, x0, y1, v)
	fillRect(img, x1, y0, x1, y1, v)
}
