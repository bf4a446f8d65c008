// Package boundary traces the outline of a mask region into segment
// lists used by selection rendering and stroke paths.
//
// A pixel belongs to the mask when its value is at least half coverage.
// The tracer walks the mask in tile-aligned scanline order and emits the
// exposed edges between mask and non-mask pixels, merged into maximal
// straight segments: a 4-connected outline in image space.
package boundary

import "github.com/gopaint/pict/tile"

// HalfWay is the coverage threshold separating inside from outside.
const HalfWay = 127

// Type selects how the clipping rectangle participates in the trace.
type Type int

const (
	// WithinBounds treats everything outside the rectangle as empty, so
	// the rectangle's edge can itself become boundary.
	WithinBounds Type = iota

	// IgnoreBounds traces the mask's own outline over the manager's full
	// extent; the rectangle is not used.
	IgnoreBounds
)

// Seg is one straight boundary segment between pixel corners. Horizontal
// segments satisfy Y1 == Y2, vertical ones X1 == X2.
type Seg struct {
	X1, Y1 int
	X2, Y2 int
}

// Find traces the boundary of the mask held by m, restricted per btype to
// the rectangle (x1, y1)-(x2, y2). The result is ordered by orientation,
// then position.
func Find(m *tile.Manager, btype Type, x1, y1, x2, y2 int) ([]Seg, error) {
	w, h := m.Width(), m.Height()
	x1 = clampInt(x1, 0, w)
	y1 = clampInt(y1, 0, h)
	x2 = clampInt(x2, 0, w)
	y2 = clampInt(y2, 0, h)

	sx1, sy1, sx2, sy2 := x1, y1, x2, y2
	if btype == IgnoreBounds {
		sx1, sy1, sx2, sy2 = 0, 0, w, h
	}
	if sx2 <= sx1 || sy2 <= sy1 {
		return nil, nil
	}

	// Load the scan window row-by-row. Rows are exactly the window's
	// width: inside() reads columns past either edge as empty, prev starts
	// empty for the row above the window, and one extra empty row closes
	// the bottom edge.
	sw := sx2 - sx1
	prev := make([]bool, sw)
	cur := make([]bool, sw)
	rowbuf := make([]byte, sw)

	var horiz []Seg
	vertOpen := map[int]*Seg{} // open vertical segments by column
	var vert []Seg

	inside := func(row []bool, i int) bool {
		if i < 0 || i >= sw {
			return false
		}
		return row[i]
	}
	flushVert := func(col int, stillOpen map[int]bool) {
		if stillOpen[col] {
			return
		}
		if s, ok := vertOpen[col]; ok {
			vert = append(vert, *s)
			delete(vertOpen, col)
		}
	}

	for y := sy1; y <= sy2; y++ {
		if y < sy2 {
			if err := m.GetRow(sx1, y, sw, rowbuf); err != nil {
				return nil, err
			}
			for i, v := range rowbuf {
				in := int(v) > HalfWay
				if btype == WithinBounds {
					px := sx1 + i
					if px < x1 || px >= x2 || y < y1 || y >= y2 {
						in = false
					}
				}
				cur[i] = in
			}
		} else {
			for i := range cur {
				cur[i] = false
			}
		}

		// Horizontal edges between prev row and cur row.
		runStart := -1
		for i := 0; i <= sw; i++ {
			diff := i < sw && inside(prev, i) != inside(cur, i)
			if diff && runStart < 0 {
				runStart = i
			}
			if !diff && runStart >= 0 {
				horiz = append(horiz, Seg{X1: sx1 + runStart, Y1: y, X2: sx1 + i, Y2: y})
				runStart = -1
			}
		}

		// Vertical edges within cur row: a column edge exists where
		// horizontal neighbors differ. Extend open segments downward.
		if y < sy2 {
			stillOpen := map[int]bool{}
			for i := 0; i <= sw; i++ {
				if inside(cur, i-1) != inside(cur, i) {
					col := sx1 + i
					if s, ok := vertOpen[col]; ok && s.Y2 == y {
						s.Y2 = y + 1
					} else {
						flushVert(col, nil)
						vertOpen[col] = &Seg{X1: col, Y1: y, X2: col, Y2: y + 1}
					}
					stillOpen[col] = true
				}
			}
			for col := range vertOpen {
				flushVert(col, stillOpen)
			}
		}

		prev, cur = cur, prev
	}
	for _, s := range vertOpen {
		vert = append(vert, *s)
	}

	sortSegs(horiz)
	sortSegs(vert)
	return append(horiz, vert...), nil
}

func sortSegs(segs []Seg) {
	// Insertion sort by (Y1, X1); segment lists are short and nearly
	// ordered by construction.
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && less(segs[j], segs[j-1]); j-- {
			segs[j], segs[j-1] = segs[j-1], segs[j]
		}
	}
}

func less(a, b Seg) bool {
	if a.Y1 != b.Y1 {
		return a.Y1 < b.Y1
	}
	return a.X1 < b.X1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
