package tile

import (
	"errors"
	"fmt"
)

// ErrRegionMismatch is returned when lock-step regions disagree on
// dimensions or a pairwise operation sees incompatible pixel depths.
var ErrRegionMismatch = errors.New("tile: region mismatch")

// Region is a cursor over a sub-rectangle of one Manager.
//
// During iteration the exported fields describe the current tile-aligned
// portion: Data points at its first pixel, rows are Rowstride bytes apart
// and pixels Bytes bytes wide, and X, Y, W, H give the portion's absolute
// rectangle in manager space. While a region is open on a portion, the
// underlying tile is pinned.
type Region struct {
	Data      []byte
	Rowstride int
	Bytes     int
	X, Y      int
	W, H      int

	mgr      *Manager
	baseX    int
	baseY    int
	baseW    int
	baseH    int
	writable bool
	tile     *Tile
}

// NewRegion initializes a region over (x, y, w, h) of m. The rectangle is
// clipped to the manager's extent; a fully clipped region yields no
// portions. Writable regions demand their tiles writable and mark them
// dirty on release.
func NewRegion(m *Manager, x, y, w, h int, writable bool) *Region {
	x2 := clamp(x+w, 0, m.width)
	y2 := clamp(y+h, 0, m.height)
	x = clamp(x, 0, m.width)
	y = clamp(y, 0, m.height)
	return &Region{
		Bytes:    m.bpp,
		mgr:      m,
		baseX:    x,
		baseY:    y,
		baseW:    x2 - x,
		baseH:    y2 - y,
		writable: writable,
	}
}

// Manager returns the manager the region is bound to.
func (r *Region) Manager() *Manager { return r.mgr }

// Bounds returns the region's full (clipped) rectangle.
func (r *Region) Bounds() (x, y, w, h int) {
	return r.baseX, r.baseY, r.baseW, r.baseH
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// attach pins the tile for the portion at progress offset (px, py) with
// size (w, h) and points Data at it.
func (r *Region) attach(px, py, w, h int) error {
	ax := r.baseX + px
	ay := r.baseY + py
	t, err := r.mgr.GetTile(ax, ay, r.writable, false)
	if err != nil {
		return err
	}
	r.tile = t
	r.X = ax
	r.Y = ay
	r.W = w
	r.H = h
	r.Rowstride = t.rowstride()
	off := ((ay%Height)*t.ewidth + (ax % Width)) * r.Bytes
	end := off + (h-1)*r.Rowstride + w*r.Bytes
	r.Data = t.data[off:end]
	return nil
}

// detach releases the pinned tile, if any.
func (r *Region) detach() {
	if r.tile != nil {
		r.mgr.ReleaseTile(r.tile, r.writable)
		r.tile = nil
		r.Data = nil
	}
}

// edgeX returns the portion width available from progress offset px before
// the next tile boundary.
func (r *Region) edgeX(px int) int {
	ax := r.baseX + px
	n := Width - ax%Width
	if rem := r.baseW - px; rem < n {
		n = rem
	}
	return n
}

// edgeY returns the portion height available from progress offset py
// before the next tile boundary.
func (r *Region) edgeY(py int) int {
	ay := r.baseY + py
	n := Height - ay%Height
	if rem := r.baseH - py; rem < n {
		n = rem
	}
	return n
}

// Iterator steps a set of equal-sized regions through every maximal
// tile-aligned sub-rectangle of their common area, in lock-step. It is
// the sole mechanism for traversing two drawables in parallel.
type Iterator struct {
	regions []*Region
	w, h    int
	px, py  int
	rowH    int
	open    bool
	done    bool
}

// Iterate binds the given regions at equal dimensions and returns a
// cursor positioned before the first portion. Regions of differing
// dimensions are rejected.
func Iterate(regions ...*Region) (*Iterator, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no regions", ErrRegionMismatch)
	}
	w, h := regions[0].baseW, regions[0].baseH
	for _, r := range regions[1:] {
		if r.baseW != w || r.baseH != h {
			return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrRegionMismatch, r.baseW, r.baseH, w, h)
		}
	}
	return &Iterator{regions: regions, w: w, h: h}, nil
}

// Next advances all regions to the next portion, releasing the pins of
// the previous one. It returns false when the area is exhausted, at which
// point every outstanding pin has been released.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.open {
		for _, r := range it.regions {
			r.detach()
		}
		it.px += it.regions[0].W
		if it.px >= it.w {
			it.px = 0
			it.py += it.rowH
		}
	}
	it.open = true
	if it.w == 0 || it.h == 0 || it.py >= it.h {
		it.done = true
		it.open = false
		return false
	}
	if it.px == 0 {
		it.rowH = it.h - it.py
		for _, r := range it.regions {
			if e := r.edgeY(it.py); e < it.rowH {
				it.rowH = e
			}
		}
	}
	w := it.w - it.px
	for _, r := range it.regions {
		if e := r.edgeX(it.px); e < w {
			w = e
		}
	}
	for _, r := range it.regions {
		if err := r.attach(it.px, it.py, w, it.rowH); err != nil {
			// Attach cannot fail on a clipped region; treat as exhaustion.
			it.Stop()
			return false
		}
	}
	return true
}

// Stop terminates the iteration early and releases any remaining pins.
func (it *Iterator) Stop() {
	if it.open {
		for _, r := range it.regions {
			r.detach()
		}
		it.open = false
	}
	it.done = true
}
