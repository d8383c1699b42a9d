package assets

import "image"

// ditherFloydSteinberg quantizes the bitmap to pure black and white in place,
// diffusing the quantization error to unvisited neighbours in raster order
// with the classic 7/16, 3/16, 5/16, 1/16 split.
func ditherFloydSteinberg(img *image.Gray) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}

	// running luminance with accumulated error, wider than a byte
	buf := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := img.PixOffset(0, y)
		for x := 0; x < w; x++ {
			buf[y*w+x] = int32(img.Pix[row+x])
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := buf[y*w+x]
			var val int32
			if old >= 128 {
				val = 255
			}
			img.Pix[img.PixOffset(x, y)] = uint8(val)

			err := old - val
			if x+1 < w {
				buf[y*w+x+1] += err * 7 / 16
			}
			if y+1 < h {
				if x > 0 {
					buf[(y+1)*w+x-1] += err * 3 / 16
				}
				buf[(y+1)*w+x] += err * 5 / 16
				if x+1 < w {
					buf[(y+1)*w+x+1] += err * 1 / 16
				}
			}
		}
	}
}
