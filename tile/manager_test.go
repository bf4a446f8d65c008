package tile

import (
	"errors"
	"testing"
)

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		bpp     int
		wantErr bool
	}{
		{name: "single tile", w: 10, h: 10, bpp: 4},
		{name: "exact grid", w: 128, h: 64, bpp: 1},
		{name: "ragged edges", w: 100, h: 70, bpp: 3},
		{name: "zero width", w: 0, h: 10, bpp: 1, wantErr: true},
		{name: "negative height", w: 10, h: -1, bpp: 1, wantErr: true},
		{name: "zero bpp", w: 10, h: 10, bpp: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.w, tt.h, tt.bpp)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDimensions) {
					t.Fatalf("NewManager(%d, %d, %d) err = %v, want ErrInvalidDimensions", tt.w, tt.h, tt.bpp, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewManager: %v", err)
			}
			if m.Width() != tt.w || m.Height() != tt.h || m.Bpp() != tt.bpp {
				t.Errorf("got %dx%d bpp=%d", m.Width(), m.Height(), m.Bpp())
			}
		})
	}
}

func TestGetTileDemandFill(t *testing.T) {
	m, err := NewManager(100, 100, 1)
	if err != nil {
		t.Fatal(err)
	}

	validated := 0
	m.SetValidator(func(m *Manager, tl *Tile, x, y int) {
		validated++
		for i := range tl.Data() {
			tl.Data()[i] = 42
		}
	})

	tl, err := m.GetTile(70, 10, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if validated != 1 {
		t.Errorf("validator ran %d times, want 1", validated)
	}
	if !tl.Valid() {
		t.Error("demanded tile not valid")
	}
	if tl.EWidth() != 36 || tl.EHeight() != 64 {
		t.Errorf("edge tile extent = %dx%d, want 36x64", tl.EWidth(), tl.EHeight())
	}
	if got := tl.Data()[0]; got != 42 {
		t.Errorf("tile data = %d, want validator fill 42", got)
	}
	m.ReleaseTile(tl, false)

	// A second demand must not re-validate.
	tl2, err := m.GetTile(64, 0, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if validated != 1 {
		t.Errorf("validator re-ran on valid tile")
	}
	m.ReleaseTile(tl2, false)
}

func TestGetTileOutOfRange(t *testing.T) {
	m, _ := NewManager(50, 50, 2)
	for _, pt := range [][2]int{{-1, 0}, {0, -1}, {50, 0}, {0, 50}} {
		if _, err := m.GetTile(pt[0], pt[1], false, false); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("GetTile(%d, %d) err = %v, want ErrOutOfRange", pt[0], pt[1], err)
		}
	}
}

func TestTilePinning(t *testing.T) {
	m, _ := NewManager(64, 64, 1)

	a, _ := m.GetTile(0, 0, false, false)
	b, _ := m.GetTile(10, 10, false, false)
	if a != b {
		t.Fatal("same tile demanded twice returned distinct handles")
	}
	if a.RefCount() != 2 {
		t.Errorf("refcount = %d, want 2", a.RefCount())
	}
	m.ReleaseTile(a, false)
	if a.RefCount() != 1 {
		t.Errorf("refcount after release = %d, want 1", a.RefCount())
	}
	m.ReleaseTile(b, true)
	if a.RefCount() != 0 {
		t.Errorf("refcount after final release = %d, want 0", a.RefCount())
	}

	// Invalidate drops unpinned tiles only.
	c, _ := m.GetTile(0, 0, false, false)
	m.Invalidate()
	if m.PeekTile(0, 0) != c {
		t.Error("pinned tile dropped by Invalidate")
	}
	m.ReleaseTile(c, false)
	m.Invalidate()
	if m.PeekTile(0, 0) != nil {
		t.Error("idle tile survived Invalidate")
	}
}

func TestMapTile(t *testing.T) {
	src, _ := NewManager(128, 128, 1)
	dst, _ := NewManager(128, 128, 1)

	tl, _ := src.GetTile(70, 70, true, false)
	tl.Data()[0] = 99
	src.ReleaseTile(tl, true)

	moved, err := src.MapTile(70, 70, nil)
	if err != nil {
		t.Fatal(err)
	}
	if moved != tl {
		t.Fatal("MapTile displaced a different tile")
	}
	old, err := dst.MapTile(70, 70, moved)
	if err != nil {
		t.Fatal(err)
	}
	if old != nil {
		t.Fatal("empty slot displaced a tile")
	}

	var p [1]byte
	if err := dst.Pixel(64, 64, p[:]); err != nil {
		t.Fatal(err)
	}
	if p[0] != 99 {
		t.Errorf("moved tile pixel = %d, want 99", p[0])
	}

	mismatch, _ := NewManager(128, 128, 3)
	if _, err := mismatch.MapTile(0, 0, moved); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("bpp-mismatched MapTile err = %v, want ErrInvalidDimensions", err)
	}
}

func TestPixelRoundTrip(t *testing.T) {
	m, _ := NewManager(100, 80, 3)
	want := []byte{11, 22, 33}
	if err := m.PutPixel(99, 79, want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 3)
	if err := m.Pixel(99, 79, got); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel = %v, want %v", got, want)
		}
	}
}

func TestRowAccessCrossesTiles(t *testing.T) {
	m, _ := NewManager(200, 10, 2)
	row := make([]byte, 200*2)
	for i := range row {
		row[i] = byte(i % 251)
	}
	if err := m.PutRow(0, 5, 200, row); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 200*2)
	if err := m.GetRow(0, 5, 200, got); err != nil {
		t.Fatal(err)
	}
	for i := range row {
		if got[i] != row[i] {
			t.Fatalf("row byte %d = %d, want %d", i, got[i], row[i])
		}
	}
	if err := m.GetRow(100, 5, 101, got); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("overlong row err = %v, want ErrOutOfRange", err)
	}
}
