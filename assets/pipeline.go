// Package assets turns raw book images into 1-bit-ready page bitmaps: decode,
// scale to the placed box, luminance stretch and Floyd-Steinberg dither.
// Results are cached by (asset id, box) so re-pagination that does not move
// an image never reprocesses it.
package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"e2x/book"
	"e2x/layout"
	"e2x/utils/images"
)

const svgMimeType = "image/svg+xml"

type cacheKey struct {
	id   string
	w, h int
}

// Pipeline processes and caches asset bitmaps. Safe for concurrent use.
type Pipeline struct {
	log *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]*image.Gray
}

func NewPipeline(log *zap.Logger) *Pipeline {
	return &Pipeline{
		log:   log,
		cache: make(map[cacheKey]*image.Gray),
	}
}

// Bitmap returns the asset rendered into a w by h grayscale bitmap holding
// only pure black and pure white pixels. Decode failures degrade to a
// placeholder box with a warning, the conversion never stops over one broken
// image.
func (p *Pipeline) Bitmap(ctx context.Context, asset *book.Asset, id string, w, h int) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := cacheKey{id: id, w: w, h: h}

	p.mu.Lock()
	if img, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return img, nil
	}
	p.mu.Unlock()

	img := p.process(asset, id, w, h)

	p.mu.Lock()
	p.cache[key] = img
	p.mu.Unlock()
	return img, nil
}

func (p *Pipeline) process(asset *book.Asset, id string, w, h int) *image.Gray {
	src := p.decode(asset, id, w, h)
	if src == nil {
		return placeholder(w, h)
	}

	// Sources that are already grayscale - scans, line art - carry levels
	// the author chose, only color conversions get the histogram lift.
	graySource := images.IsGrayscale(src)
	if !graySource {
		p.log.Debug("Converting color image to grayscale", zap.String("asset", id))
	}

	if b := src.Bounds(); b.Dx() != w || b.Dy() != h {
		// Box filter averages source pixels per destination pixel, the best
		// looking reduction before thresholding to 1-bit.
		src = imaging.Resize(src, w, h, imaging.Box)
	}

	gray := toGray(src)
	if !graySource {
		stretchContrast(gray)
	}
	ditherFloydSteinberg(gray)
	return gray
}

// decode produces the source image, rasterizing vectors straight into the
// target box. Returns nil when the asset is unusable.
func (p *Pipeline) decode(asset *book.Asset, id string, w, h int) image.Image {
	if asset == nil || len(asset.Data) == 0 {
		p.log.Warn("Missing image asset, using placeholder", zap.String("asset", id))
		return nil
	}

	if asset.MimeType == svgMimeType {
		img, err := images.RasterizeSVG(asset.Data, w, h)
		if err != nil {
			p.log.Warn("Unable to rasterize SVG asset, using placeholder",
				zap.String("asset", id), zap.Error(err))
			return nil
		}
		return img
	}

	img, _, err := image.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		p.log.Warn("Unable to decode image asset, using placeholder",
			zap.String("asset", id), zap.String("media-type", asset.MimeType), zap.Error(err))
		return nil
	}
	return img
}

// toGray converts any decoded image to 8-bit luminance.
func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()))
		copyGray(out, g)
		return out
	}
	nrgba := imaging.Grayscale(src)
	b := nrgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		si := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			out.Pix[di+x] = nrgba.Pix[si+x*4] // channels are equal after Grayscale
		}
	}
	return out
}

func copyGray(dst, src *image.Gray) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[dst.PixOffset(0, y):dst.PixOffset(0, y)+b.Dx()],
			src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
	}
}

// placeholder is the black-bordered white box used when an asset cannot be
// decoded.
func placeholder(w, h int) *image.Gray {
	const border = 2
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	black := color.Gray{Y: 0}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < border || x >= w-border || y < border || y >= h-border {
				img.SetGray(x, y, black)
			}
		}
	}
	// diagonals mark the box as a stand-in, not content
	if w > 2*border && h > 2*border {
		steps := max(w, h)
		for i := 0; i < steps; i++ {
			x := i * (w - 1) / max(steps-1, 1)
			y := i * (h - 1) / max(steps-1, 1)
			img.SetGray(x, y, black)
			img.SetGray(w-1-x, y, black)
		}
	}
	return img
}

// Prewarm processes every placed asset concurrently ahead of page
// composition. Each distinct (asset, box) pair is handled once.
func (p *Pipeline) Prewarm(ctx context.Context, pages []layout.Page, book *book.Book, workers int) error {
	seen := make(map[cacheKey]struct{})
	var work []layout.ImagePlacement
	for i := range pages {
		for _, pl := range pages[i].Images {
			key := cacheKey{id: pl.AssetID, w: pl.W, h: pl.H}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			work = append(work, pl)
		}
	}
	if len(work) == 0 {
		return nil
	}

	if workers > len(work) {
		workers = len(work)
	}
	if workers < 1 {
		workers = 1
	}

	errs := make([]error, len(work))
	jobs := make(chan int, len(work))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				pl := work[idx]
				_, errs[idx] = p.Bitmap(ctx, book.Assets[pl.AssetID], pl.AssetID, pl.W, pl.H)
			}
		}()
	}
	for i := range work {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
