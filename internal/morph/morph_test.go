package morph

import (
	"testing"

	"github.com/gopaint/pict/tile"
)

func maskRect(t *testing.T, w, h, rx, ry, rw, rh int) *tile.Manager {
	t.Helper()
	m, err := tile.NewManager(w, h, 1)
	if err != nil {
		t.Fatal(err)
	}
	r := tile.NewRegion(m, rx, ry, rw, rh, true)
	if err := tile.FillRegion(r, []byte{255}); err != nil {
		t.Fatal(err)
	}
	return m
}

func value(t *testing.T, m *tile.Manager, x, y int) int {
	t.Helper()
	p := make([]byte, 1)
	if err := m.Pixel(x, y, p); err != nil {
		t.Fatal(err)
	}
	return int(p[0])
}

func TestFattenExpands(t *testing.T) {
	m := maskRect(t, 20, 20, 8, 8, 4, 4)
	if err := Fatten(m, 0, 0, 20, 20, 2); err != nil {
		t.Fatal(err)
	}
	if got := value(t, m, 6, 9); got != 255 {
		t.Errorf("pixel 2 left of rect = %d, want 255", got)
	}
	if got := value(t, m, 5, 9); got != 0 {
		t.Errorf("pixel 3 left of rect = %d, want 0", got)
	}
	if got := value(t, m, 9, 9); got != 255 {
		t.Errorf("interior pixel = %d, want 255", got)
	}
}

func TestThinContracts(t *testing.T) {
	m := maskRect(t, 20, 20, 5, 5, 8, 8)
	if err := Thin(m, 0, 0, 20, 20, 2); err != nil {
		t.Fatal(err)
	}
	if got := value(t, m, 5, 9); got != 0 {
		t.Errorf("former edge pixel = %d, want 0", got)
	}
	if got := value(t, m, 9, 9); got != 255 {
		t.Errorf("deep interior pixel = %d, want 255", got)
	}
}

func TestThinShrinkAtImageEdge(t *testing.T) {
	// Selection touching the extent must still pull back from it.
	m := maskRect(t, 10, 10, 0, 0, 10, 10)
	if err := Thin(m, 0, 0, 10, 10, 1); err != nil {
		t.Fatal(err)
	}
	if got := value(t, m, 0, 5); got != 0 {
		t.Errorf("edge pixel after shrink = %d, want 0", got)
	}
	if got := value(t, m, 5, 5); got != 255 {
		t.Errorf("center pixel after shrink = %d, want 255", got)
	}
}

func TestBorderRing(t *testing.T) {
	m := maskRect(t, 20, 20, 5, 5, 10, 10)
	if err := Border(m, 0, 0, 20, 20, 1); err != nil {
		t.Fatal(err)
	}
	if got := value(t, m, 10, 10); got != 0 {
		t.Errorf("deep interior after border = %d, want 0", got)
	}
	if got := value(t, m, 5, 10); got != 255 {
		t.Errorf("former edge after border = %d, want 255", got)
	}
	if got := value(t, m, 3, 10); got != 0 {
		t.Errorf("far exterior after border = %d, want 0", got)
	}
}

func TestGaussianBlurSoftensEdge(t *testing.T) {
	m := maskRect(t, 30, 30, 10, 10, 10, 10)
	if err := GaussianBlur(m, 0, 0, 30, 30, 3); err != nil {
		t.Fatal(err)
	}
	center := value(t, m, 15, 15)
	edge := value(t, m, 10, 15)
	outside := value(t, m, 7, 15)
	if center < 240 {
		t.Errorf("center after blur = %d, want near 255", center)
	}
	if edge <= outside || edge >= center {
		t.Errorf("edge value %d not between outside %d and center %d", edge, outside, center)
	}
	if value(t, m, 0, 0) != 0 {
		t.Errorf("far corner picked up coverage")
	}
}

func TestZeroRadiusNoOp(t *testing.T) {
	m := maskRect(t, 10, 10, 2, 2, 3, 3)
	if err := Fatten(m, 0, 0, 10, 10, 0); err != nil {
		t.Fatal(err)
	}
	if got := value(t, m, 1, 2); got != 0 {
		t.Errorf("zero-radius fatten changed pixels")
	}
}
