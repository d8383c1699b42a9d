package assets

import (
	"bytes"
	"image"
	"testing"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestDitherLeavesBilevelInputUntouched(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		if i%3 == 0 {
			img.Pix[i] = 0xff
		}
	}
	want := append([]byte(nil), img.Pix...)

	ditherFloydSteinberg(img)
	if !bytes.Equal(img.Pix, want) {
		t.Error("pure black/white input should pass through unchanged")
	}
}

func TestDitherPreservesMeanLuminance(t *testing.T) {
	img := uniformGray(64, 64, 128)
	ditherFloydSteinberg(img)

	var sum int
	for _, v := range img.Pix {
		if v != 0 && v != 0xff {
			t.Fatalf("intermediate value %d after dithering", v)
		}
		sum += int(v)
	}
	mean := sum / len(img.Pix)
	if mean < 112 || mean > 144 {
		t.Errorf("mean luminance %d drifted too far from 128", mean)
	}
}

func TestStretchContrastWidensHistogram(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(100 + i%50)
	}
	stretchContrast(img)

	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo != 0 || hi != 255 {
		t.Errorf("stretched range [%d, %d], want [0, 255]", lo, hi)
	}
}

func TestStretchContrastSkipsFlatImage(t *testing.T) {
	img := uniformGray(8, 8, 77)
	stretchContrast(img)
	for _, v := range img.Pix {
		if v != 77 {
			t.Fatalf("flat image changed to %d", v)
		}
	}
}
