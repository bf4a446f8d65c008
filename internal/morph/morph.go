// Package morph implements the morphological mask operations behind
// selection grow, shrink and border, plus the gaussian blur used by
// feathering. All operations work on single-byte coverage masks.
package morph

import (
	"fmt"

	"github.com/gopaint/pict/tile"
)

// circleWidths returns, for each dy in [-radius, radius], the half-width
// of the disk structuring element at that row.
func circleWidths(radius int) []int {
	widths := make([]int, 2*radius+1)
	for dy := -radius; dy <= radius; dy++ {
		w := 0
		for w*w+dy*dy <= radius*radius {
			w++
		}
		widths[dy+radius] = w - 1
	}
	return widths
}

// window loads h rows of w mask pixels around the rectangle, substituting
// empty rows outside the manager extent.
type window struct {
	m    *tile.Manager
	x, w int
	rows map[int][]byte
}

func (wd *window) row(y int) ([]byte, error) {
	if r, ok := wd.rows[y]; ok {
		return r, nil
	}
	r := make([]byte, wd.w)
	if y >= 0 && y < wd.m.Height() {
		if err := wd.m.GetRow(wd.x, y, wd.w, r); err != nil {
			return nil, err
		}
	}
	wd.rows[y] = r
	return r, nil
}

func (wd *window) drop(y int) { delete(wd.rows, y) }

// apply runs a disk min/max filter over the rectangle.
func apply(m *tile.Manager, x, y, w, h, radius int, maxFilter bool) error {
	if radius < 0 {
		return fmt.Errorf("morph: negative radius %d", radius)
	}
	if radius == 0 || w <= 0 || h <= 0 {
		return nil
	}
	widths := circleWidths(radius)
	wd := &window{m: m, x: x, w: w, rows: map[int][]byte{}}
	out := make([]byte, w)
	results := make([][]byte, 0, h)

	for ry := 0; ry < h; ry++ {
		for i := 0; i < w; i++ {
			var best int
			if maxFilter {
				best = 0
			} else {
				best = 255
			}
			for dy := -radius; dy <= radius; dy++ {
				src, err := wd.row(y + ry + dy)
				if err != nil {
					return err
				}
				cw := widths[dy+radius]
				for dx := -cw; dx <= cw; dx++ {
					xi := i + dx
					v := 0
					if xi >= 0 && xi < w {
						v = int(src[xi])
					}
					if maxFilter {
						if v > best {
							best = v
						}
					} else {
						if v < best {
							best = v
						}
					}
				}
			}
			out[i] = byte(best)
		}
		saved := make([]byte, w)
		copy(saved, out)
		results = append(results, saved)
		wd.drop(y + ry - radius)
	}

	for ry := 0; ry < h; ry++ {
		if err := m.PutRow(x, y+ry, w, results[ry]); err != nil {
			return err
		}
	}
	return nil
}

// Fatten dilates the mask rectangle by a disk of the given radius:
// selection grow.
func Fatten(m *tile.Manager, x, y, w, h, radius int) error {
	return apply(m, x, y, w, h, radius, true)
}

// Thin erodes the mask rectangle by a disk of the given radius: selection
// shrink. Columns outside the rectangle and rows outside the manager
// count as empty, so the selection also shrinks away from the image
// edge; rows above and below the rectangle inside the manager are read
// from it.
func Thin(m *tile.Manager, x, y, w, h, radius int) error {
	return apply(m, x, y, w, h, radius, false)
}

// Border replaces the mask rectangle with a band of the given radius
// centered on the mask boundary: the dilation minus the erosion.
func Border(m *tile.Manager, x, y, w, h, radius int) error {
	if radius < 0 {
		return fmt.Errorf("morph: negative radius %d", radius)
	}
	if radius == 0 || w <= 0 || h <= 0 {
		return nil
	}

	src := make([][]byte, h)
	row := make([]byte, w)
	for ry := 0; ry < h; ry++ {
		if err := m.GetRow(x, y+ry, w, row); err != nil {
			return err
		}
		src[ry] = append([]byte(nil), row...)
	}

	if err := Fatten(m, x, y, w, h, radius); err != nil {
		return err
	}

	// Erode the saved copy in place.
	eroded, err := tile.NewManager(w, h, 1)
	if err != nil {
		return err
	}
	for ry := 0; ry < h; ry++ {
		if err := eroded.PutRow(0, ry, w, src[ry]); err != nil {
			return err
		}
	}
	if err := Thin(eroded, 0, 0, w, h, radius); err != nil {
		return err
	}

	for ry := 0; ry < h; ry++ {
		if err := m.GetRow(x, y+ry, w, row); err != nil {
			return err
		}
		if err := eroded.GetRow(0, ry, w, src[ry]); err != nil {
			return err
		}
		for i := 0; i < w; i++ {
			v := int(row[i]) - int(src[ry][i])
			if v < 0 {
				v = 0
			}
			row[i] = byte(v)
		}
		if err := m.PutRow(x, y+ry, w, row); err != nil {
			return err
		}
	}
	return nil
}
