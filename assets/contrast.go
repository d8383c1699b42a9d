package assets

import "image"

// clipFraction is the share of darkest and brightest pixels ignored when
// picking the stretch endpoints, so a few outliers cannot flatten the lift.
const clipFraction = 0.01

// stretchContrast widens the luminance histogram to the full 0..255 range in
// place. E-ink panels lose midtone separation after thresholding, the lift
// keeps detail visible once the page is dithered to 1-bit.
func stretchContrast(img *image.Gray) {
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	total := len(img.Pix)
	if total == 0 {
		return
	}

	clip := int(float64(total) * clipFraction)
	lo, hi := 0, 255
	for n := 0; lo < 255; lo++ {
		n += hist[lo]
		if n > clip {
			break
		}
	}
	for n := 0; hi > 0; hi-- {
		n += hist[hi]
		if n > clip {
			break
		}
	}
	if hi <= lo {
		return // flat image, nothing to stretch
	}

	var lut [256]uint8
	for i := range lut {
		switch {
		case i <= lo:
			lut[i] = 0
		case i >= hi:
			lut[i] = 255
		default:
			lut[i] = uint8((i - lo) * 255 / (hi - lo))
		}
	}
	for i, v := range img.Pix {
		img.Pix[i] = lut[v]
	}
}
