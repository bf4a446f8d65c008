package tile

import (
	"errors"
	"testing"
)

// fillSequential writes a deterministic pattern over the whole manager.
func fillSequential(t *testing.T, m *Manager) {
	t.Helper()
	row := make([]byte, m.Width()*m.Bpp())
	for y := 0; y < m.Height(); y++ {
		for i := range row {
			row[i] = byte((y*31 + i) % 256)
		}
		if err := m.PutRow(0, y, m.Width(), row); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIteratorCoversArea(t *testing.T) {
	tests := []struct {
		name       string
		mw, mh     int
		x, y, w, h int
	}{
		{name: "single tile interior", mw: 64, mh: 64, x: 5, y: 5, w: 20, h: 20},
		{name: "crosses vertical boundary", mw: 200, mh: 64, x: 60, y: 0, w: 10, h: 10},
		{name: "crosses both boundaries", mw: 200, mh: 200, x: 50, y: 50, w: 100, h: 100},
		{name: "full extent", mw: 130, mh: 70, x: 0, y: 0, w: 130, h: 70},
		{name: "clipped overflow", mw: 64, mh: 64, x: 32, y: 32, w: 64, h: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.mw, tt.mh, 1)
			if err != nil {
				t.Fatal(err)
			}
			r := NewRegion(m, tt.x, tt.y, tt.w, tt.h, true)
			bx, by, bw, bh := r.Bounds()

			it, err := Iterate(r)
			if err != nil {
				t.Fatal(err)
			}
			covered := 0
			for it.Next() {
				if r.X < bx || r.Y < by || r.X+r.W > bx+bw || r.Y+r.H > by+bh {
					t.Fatalf("portion (%d,%d %dx%d) outside bounds (%d,%d %dx%d)",
						r.X, r.Y, r.W, r.H, bx, by, bw, bh)
				}
				d := r.Data
				for y := 0; y < r.H; y++ {
					for x := 0; x < r.W; x++ {
						d[x]++
					}
					if y+1 < r.H {
						d = d[r.Rowstride:]
					}
				}
				covered += r.W * r.H
			}
			if covered != bw*bh {
				t.Fatalf("covered %d pixels, want %d", covered, bw*bh)
			}

			// Every pixel inside the rect was touched exactly once.
			p := make([]byte, 1)
			for y := by; y < by+bh; y++ {
				for x := bx; x < bx+bw; x++ {
					if err := m.Pixel(x, y, p); err != nil {
						t.Fatal(err)
					}
					if p[0] != 1 {
						t.Fatalf("pixel (%d,%d) touched %d times", x, y, p[0])
					}
				}
			}
		})
	}
}

func TestIterateLockStepOffsets(t *testing.T) {
	// Same area size, different offsets: the lock-step portions must
	// describe identical sub-rectangles relative to the region origins.
	a, _ := NewManager(200, 200, 1)
	b, _ := NewManager(200, 200, 1)
	fillSequential(t, a)

	ra := NewRegion(a, 30, 40, 100, 90, false)
	rb := NewRegion(b, 0, 0, 100, 90, true)
	if err := CopyRegion(ra, rb); err != nil {
		t.Fatal(err)
	}

	pa := make([]byte, 1)
	pb := make([]byte, 1)
	for y := 0; y < 90; y++ {
		for x := 0; x < 100; x++ {
			if err := a.Pixel(30+x, 40+y, pa); err != nil {
				t.Fatal(err)
			}
			if err := b.Pixel(x, y, pb); err != nil {
				t.Fatal(err)
			}
			if pa[0] != pb[0] {
				t.Fatalf("copy mismatch at (%d,%d): %d != %d", x, y, pa[0], pb[0])
			}
		}
	}
}

func TestIterateDimensionMismatch(t *testing.T) {
	m, _ := NewManager(100, 100, 1)
	ra := NewRegion(m, 0, 0, 50, 50, false)
	rb := NewRegion(m, 0, 0, 40, 50, false)
	if _, err := Iterate(ra, rb); !errors.Is(err, ErrRegionMismatch) {
		t.Errorf("Iterate err = %v, want ErrRegionMismatch", err)
	}
}

func TestIteratorStopReleasesPins(t *testing.T) {
	m, _ := NewManager(200, 64, 1)
	r := NewRegion(m, 0, 0, 200, 64, false)
	it, err := Iterate(r)
	if err != nil {
		t.Fatal(err)
	}
	if !it.Next() {
		t.Fatal("no first portion")
	}
	pinned := m.PeekTile(r.X, r.Y)
	if pinned == nil || pinned.RefCount() != 1 {
		t.Fatal("first portion's tile not pinned")
	}
	it.Stop()
	if pinned.RefCount() != 0 {
		t.Errorf("refcount after Stop = %d, want 0", pinned.RefCount())
	}
	if it.Next() {
		t.Error("Next after Stop returned a portion")
	}
}

func TestSwapRegion(t *testing.T) {
	a, _ := NewManager(100, 100, 2)
	b, _ := NewManager(100, 100, 2)
	fillSequential(t, a)

	ra := NewRegion(a, 10, 10, 80, 80, true)
	rb := NewRegion(b, 10, 10, 80, 80, true)
	if err := SwapRegion(ra, rb); err != nil {
		t.Fatal(err)
	}

	// a is now zero over the swapped area, b holds the pattern.
	pa := make([]byte, 2)
	pb := make([]byte, 2)
	if err := a.Pixel(50, 50, pa); err != nil {
		t.Fatal(err)
	}
	if pa[0] != 0 || pa[1] != 0 {
		t.Errorf("a after swap = %v, want zeros", pa)
	}
	if err := b.Pixel(50, 50, pb); err != nil {
		t.Fatal(err)
	}
	if want := byte((50*31 + 50*2) % 256); pb[0] != want {
		t.Errorf("b after swap = %d, want %d", pb[0], want)
	}

	// Swapping back restores the original.
	ra = NewRegion(a, 10, 10, 80, 80, true)
	rb = NewRegion(b, 10, 10, 80, 80, true)
	if err := SwapRegion(ra, rb); err != nil {
		t.Fatal(err)
	}
	if err := a.Pixel(50, 50, pa); err != nil {
		t.Fatal(err)
	}
	if want := byte((50*31 + 50*2) % 256); pa[0] != want {
		t.Errorf("double swap lost pixels: %d want %d", pa[0], want)
	}
}

func TestFillRegion(t *testing.T) {
	m, _ := NewManager(150, 90, 3)
	r := NewRegion(m, 20, 10, 100, 60, true)
	if err := FillRegion(r, []byte{7, 8, 9}); err != nil {
		t.Fatal(err)
	}
	p := make([]byte, 3)
	if err := m.Pixel(119, 69, p); err != nil {
		t.Fatal(err)
	}
	if p[0] != 7 || p[1] != 8 || p[2] != 9 {
		t.Errorf("filled pixel = %v", p)
	}
	if err := m.Pixel(10, 10, p); err != nil {
		t.Fatal(err)
	}
	if p[0] != 0 {
		t.Errorf("pixel outside fill = %v, want zeros", p)
	}
}

func TestAddAlphaRegion(t *testing.T) {
	src, _ := NewManager(70, 70, 3)
	dst, _ := NewManager(70, 70, 4)
	if err := src.PutPixel(69, 69, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	rs := NewRegion(src, 0, 0, 70, 70, false)
	rd := NewRegion(dst, 0, 0, 70, 70, true)
	if err := AddAlphaRegion(rs, rd); err != nil {
		t.Fatal(err)
	}
	p := make([]byte, 4)
	if err := dst.Pixel(69, 69, p); err != nil {
		t.Fatal(err)
	}
	if p[0] != 1 || p[1] != 2 || p[2] != 3 || p[3] != OpaqueOpacity {
		t.Errorf("pixel with alpha = %v", p)
	}
}

func TestExtractFromRegionCut(t *testing.T) {
	src, _ := NewManager(10, 10, 4) // RGBA
	dst, _ := NewManager(10, 10, 4)
	msk, _ := NewManager(10, 10, 1)

	if err := src.PutPixel(3, 3, []byte{200, 100, 50, 255}); err != nil {
		t.Fatal(err)
	}
	if err := msk.PutPixel(3, 3, []byte{255}); err != nil {
		t.Fatal(err)
	}

	rs := NewRegion(src, 0, 0, 10, 10, true)
	rd := NewRegion(dst, 0, 0, 10, 10, true)
	rm := NewRegion(msk, 0, 0, 10, 10, false)
	if err := ExtractFromRegion(rs, rd, rm, nil, nil, false, true, true); err != nil {
		t.Fatal(err)
	}

	p := make([]byte, 4)
	if err := dst.Pixel(3, 3, p); err != nil {
		t.Fatal(err)
	}
	if p[0] != 200 || p[3] != 255 {
		t.Errorf("extracted pixel = %v", p)
	}
	if err := src.Pixel(3, 3, p); err != nil {
		t.Fatal(err)
	}
	if p[3] != 0 {
		t.Errorf("cut source alpha = %d, want 0", p[3])
	}
	// An unselected pixel contributes zero alpha and survives the cut.
	if err := src.Pixel(5, 5, p); err != nil {
		t.Fatal(err)
	}
	if p[3] != 0 {
		t.Errorf("unselected source pixel changed: %v", p)
	}
	if err := dst.Pixel(5, 5, p); err != nil {
		t.Fatal(err)
	}
	if p[3] != 0 {
		t.Errorf("unselected extraction alpha = %d, want 0", p[3])
	}
}
