package quant

import "testing"

func TestColorSetFastPath(t *testing.T) {
	s := NewColorSet(4)
	for i := 0; i < 10; i++ {
		s.Add(255, 0, 0)
		s.Add(0, 255, 0)
	}
	s.Add(0, 0, 255)
	if s.Overflowed() {
		t.Fatal("set overflowed below its limit")
	}
	if len(s.Colors()) != 3 {
		t.Fatalf("collected %d colors, want 3", len(s.Colors()))
	}
	s.Add(1, 1, 1)
	s.Add(2, 2, 2)
	if !s.Overflowed() {
		t.Fatal("set did not overflow past its limit")
	}
}

func TestSelectGrayTwoValues(t *testing.T) {
	var h GrayHistogram
	for i := 0; i < 100; i++ {
		h.Add(10)
		h.Add(240)
	}
	cmap := SelectGray(&h, 2)
	if len(cmap) != 2 {
		t.Fatalf("palette size = %d, want 2", len(cmap))
	}
	got := map[byte]bool{cmap[0].R: true, cmap[1].R: true}
	if !got[10] || !got[240] {
		t.Errorf("palette = %v, want values 10 and 240", cmap)
	}
}

func TestSelectRGBDistinctColors(t *testing.T) {
	h := NewRGBHistogram()
	colors := [][3]byte{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}}
	for _, c := range colors {
		for i := 0; i < 50; i++ {
			h.Add(c[0], c[1], c[2])
		}
	}
	cmap := SelectRGB(h, 4)
	if len(cmap) != 4 {
		t.Fatalf("palette size = %d, want 4", len(cmap))
	}
	// Each representative must land in a distinct histogram cell and
	// stay close to its source color (cell centers are within half a
	// bin of the input).
	rm := NewRemapper(cmap, false)
	seen := map[int]bool{}
	for _, c := range colors {
		idx := rm.IndexRGB(c[0], c[1], c[2])
		if seen[idx] {
			t.Errorf("two input colors share palette index %d", idx)
		}
		seen[idx] = true
		p := cmap[idx]
		if absInt(int(p.R)-int(c[0])) > 8 || absInt(int(p.G)-int(c[1])) > 8 || absInt(int(p.B)-int(c[2])) > 8 {
			t.Errorf("input %v mapped to %v", c, p)
		}
	}
}

func TestRemapperNearest(t *testing.T) {
	cmap := []Color{{R: 0}, {R: 128, G: 128, B: 128}, {R: 255, G: 255, B: 255}}
	rm := NewRemapper(cmap, false)
	tests := []struct {
		name    string
		r, g, b byte
		want    int
	}{
		{name: "black", r: 4, g: 4, b: 4, want: 0},
		{name: "mid gray", r: 120, g: 130, b: 125, want: 1},
		{name: "white", r: 250, g: 250, b: 250, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rm.IndexRGB(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("IndexRGB(%d,%d,%d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
	// Cache hit must return the same answer.
	if got := rm.IndexRGB(4, 4, 4); got != 0 {
		t.Errorf("cached IndexRGB = %d, want 0", got)
	}
}

func TestRemapperGray(t *testing.T) {
	cmap := []Color{{R: 20, G: 20, B: 20}, {R: 200, G: 200, B: 200}}
	rm := NewRemapper(cmap, true)
	if got := rm.IndexGray(50); got != 0 {
		t.Errorf("IndexGray(50) = %d, want 0", got)
	}
	if got := rm.IndexGray(180); got != 1 {
		t.Errorf("IndexGray(180) = %d, want 1", got)
	}
}

func TestWebAndMonoPalettes(t *testing.T) {
	web := WebPalette()
	if len(web) != 216 {
		t.Fatalf("web palette size = %d, want 216", len(web))
	}
	if web[0] != (Color{}) || web[215] != (Color{R: 255, G: 255, B: 255}) {
		t.Errorf("web palette corners = %v, %v", web[0], web[215])
	}
	mono := MonoPalette()
	if len(mono) != 2 || mono[0].R != 0 || mono[1].R != 255 {
		t.Errorf("mono palette = %v", mono)
	}
}

func TestCustomPaletteValidation(t *testing.T) {
	if _, err := CustomPalette(nil); err == nil {
		t.Error("empty custom palette accepted")
	}
	big := make([]Color, MaxColors+1)
	if _, err := CustomPalette(big); err == nil {
		t.Error("oversized custom palette accepted")
	}
	got, err := CustomPalette([]Color{{R: 1}})
	if err != nil || len(got) != 1 {
		t.Errorf("valid palette rejected: %v", err)
	}
}

func TestErrorLimitShape(t *testing.T) {
	at := func(e int) int { return errorLimit[255+e] }
	if at(0) != 0 {
		t.Errorf("limit(0) = %d", at(0))
	}
	if at(10) != 10 || at(-10) != -10 {
		t.Errorf("1:1 zone broken: %d %d", at(10), at(-10))
	}
	if at(255) != 32 || at(-255) != -32 {
		t.Errorf("saturation = %d, want +-32", at(255))
	}
	for e := -254; e <= 255; e++ {
		if at(e) < at(e-1) {
			t.Fatalf("limiter not monotonic at %d", e)
		}
	}
}

// TestDitherNeutralOnFlatPaletteColor checks Floyd-Steinberg neutrality:
// a flat image in an exact palette color dithers to that entry at every
// pixel with no drifting error.
func TestDitherNeutralOnFlatPaletteColor(t *testing.T) {
	cmap := []Color{{R: 10, G: 20, B: 30}, {R: 200, G: 100, B: 50}}
	rm := NewRemapper(cmap, false)

	const w, h = 16, 8
	src := make([][]byte, h)
	for y := range src {
		src[y] = make([]byte, w*3)
		for x := 0; x < w; x++ {
			src[y][x*3+0] = 200
			src[y][x*3+1] = 100
			src[y][x*3+2] = 50
		}
	}
	out := make([][]byte, h)
	for y := range out {
		out[y] = make([]byte, w)
	}

	get := func(y int, buf []byte) error { copy(buf, src[y]); return nil }
	put := func(y int, buf []byte) error { copy(out[y], buf); return nil }
	if err := DitherRows(rm, w, h, 3, 1, false, get, put); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if out[y][x] != 1 {
				t.Fatalf("pixel (%d,%d) = %d, want palette entry 1", x, y, out[y][x])
			}
		}
	}
}

func TestRemapRowsExactTransparent(t *testing.T) {
	em := NewExactMatcher([]Color{{R: 9, G: 9, B: 9}})
	src := []byte{9, 9, 9, 255, 9, 9, 9, 0}
	var out []byte
	get := func(y int, buf []byte) error { copy(buf, src); return nil }
	put := func(y int, buf []byte) error { out = append([]byte(nil), buf...); return nil }
	if err := RemapRowsExact(em, 2, 1, 4, 2, true, get, put); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 || out[1] != 255 {
		t.Errorf("opaque pixel = %v", out[:2])
	}
	if out[3] != 0 {
		t.Errorf("transparent pixel alpha = %d, want 0", out[3])
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
