package morph

import (
	"math"

	"github.com/gopaint/pict/tile"
)

// gaussianKernel builds a normalized integer kernel for the feather
// radius. The standard deviation follows the feather convention: the
// curve falls to 1/255 at the given radius.
func gaussianKernel(radius float64) []int {
	if radius <= 0 {
		return []int{1}
	}
	stdDev := math.Sqrt(-(radius * radius) / (2 * math.Log(1.0/255.0)))
	half := int(stdDev*3.0 + 0.5)
	if half < 1 {
		half = 1
	}
	kernel := make([]int, 2*half+1)
	for i := -half; i <= half; i++ {
		v := math.Exp(-float64(i*i) / (2 * stdDev * stdDev))
		kernel[i+half] = int(v*255 + 0.5)
	}
	return kernel
}

// GaussianBlur blurs the mask rectangle in place with the feather
// radius, in two separable passes.
func GaussianBlur(m *tile.Manager, x, y, w, h int, radius float64) error {
	if w <= 0 || h <= 0 || radius <= 0 {
		return nil
	}
	kernel := gaussianKernel(radius)
	half := len(kernel) / 2
	sum := 0
	for _, k := range kernel {
		sum += k
	}

	// Horizontal pass.
	row := make([]byte, w)
	out := make([]byte, w)
	for ry := 0; ry < h; ry++ {
		if err := m.GetRow(x, y+ry, w, row); err != nil {
			return err
		}
		for i := 0; i < w; i++ {
			acc := 0
			for k := -half; k <= half; k++ {
				xi := i + k
				if xi < 0 {
					xi = 0
				} else if xi >= w {
					xi = w - 1
				}
				acc += int(row[xi]) * kernel[k+half]
			}
			out[i] = byte(acc / sum)
		}
		if err := m.PutRow(x, y+ry, w, out); err != nil {
			return err
		}
	}

	// Vertical pass over column strips.
	col := make([]byte, h)
	outc := make([]byte, h)
	px := make([]byte, 1)
	for cx := 0; cx < w; cx++ {
		for ry := 0; ry < h; ry++ {
			if err := m.Pixel(x+cx, y+ry, px); err != nil {
				return err
			}
			col[ry] = px[0]
		}
		for i := 0; i < h; i++ {
			acc := 0
			for k := -half; k <= half; k++ {
				yi := i + k
				if yi < 0 {
					yi = 0
				} else if yi >= h {
					yi = h - 1
				}
				acc += int(col[yi]) * kernel[k+half]
			}
			outc[i] = byte(acc / sum)
		}
		for ry := 0; ry < h; ry++ {
			px[0] = outc[ry]
			if err := m.PutPixel(x+cx, y+ry, px); err != nil {
				return err
			}
		}
	}
	return nil
}
