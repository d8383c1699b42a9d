package images

import (
	"image/color"
	"testing"
)

const circleSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50">
  <circle cx="25" cy="25" r="20" fill="black"/>
</svg>`

func TestSVGSize(t *testing.T) {
	w, h, err := SVGSize([]byte(circleSVG))
	if err != nil {
		t.Fatalf("svg size: %v", err)
	}
	if w != 100 || h != 50 {
		t.Errorf("intrinsic size %dx%d, want 100x50", w, h)
	}
}

func TestRasterizeSVGKeepsAspectRatio(t *testing.T) {
	cases := []struct {
		name         string
		targetW      int
		targetH      int
		wantW, wantH int
	}{
		{"intrinsic", 0, 0, 100, 50},
		{"by width", 200, 0, 200, 100},
		{"by height", 0, 100, 200, 100},
		{"fit box", 300, 100, 200, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := RasterizeSVG([]byte(circleSVG), tc.targetW, tc.targetH)
			if err != nil {
				t.Fatalf("rasterize: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Errorf("rasterized to %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestRasterizeSVGWhiteBackground(t *testing.T) {
	img, err := RasterizeSVG([]byte(circleSVG), 0, 0)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	// top-right corner is outside the circle
	c := color.NRGBAModel.Convert(img.At(99, 0)).(color.NRGBA)
	if c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("background pixel %v, want white", c)
	}
}

func TestRasterizeSVGClampsHugeViewBox(t *testing.T) {
	huge := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100000 100000"></svg>`
	img, err := RasterizeSVG([]byte(huge), 0, 0)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > maxRasterDim || b.Dy() > maxRasterDim {
		t.Errorf("rasterized to %dx%d, want clamped to %d", b.Dx(), b.Dy(), maxRasterDim)
	}
}

func TestRasterizeSVGRejectsGarbage(t *testing.T) {
	if _, err := RasterizeSVG([]byte("not an svg"), 0, 0); err == nil {
		t.Fatal("expected parse error")
	}
}
