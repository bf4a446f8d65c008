package pict

import (
	"errors"
	"testing"
)

func TestChannelListOps(t *testing.T) {
	_, img := newTestImage(t, 8, 8, RGB)

	ch, err := img.NewChannel(8, 8, "alpha matte", 50, [3]byte{255, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if img.ActiveChannel() != ch {
		t.Error("new channel not active")
	}
	if ch.Opacity() != 127 {
		t.Errorf("opacity = %d, want 127 (50%%)", ch.Opacity())
	}
	if ch.Tattoo() == 0 {
		t.Error("channel has no tattoo")
	}

	if _, err := img.NewChannel(8, 8, "bad", 150, [3]byte{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("opacity 150 err = %v", err)
	}
	if _, err := img.NewChannel(4, 4, "bad", 50, [3]byte{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("mis-sized channel err = %v", err)
	}

	if err := img.RemoveChannel(ch); err != nil {
		t.Fatal(err)
	}
	if img.channelIndex(ch) >= 0 {
		t.Error("channel still listed after remove")
	}
	if ok, err := img.Undo(); err != nil || !ok {
		t.Fatal(err)
	}
	if img.channelIndex(ch) != 0 {
		t.Error("undo did not reinsert the channel")
	}
}

func TestChannelBoundsCaching(t *testing.T) {
	_, img := newTestImage(t, 100, 100, RGB)
	sel := img.Selection()

	// Direct pixel writes bypass the cache; invalidation recomputes.
	if err := sel.Tiles().PutPixel(70, 80, []byte{255}); err != nil {
		t.Fatal(err)
	}
	sel.invalidateCaches()

	x1, y1, x2, y2, nonEmpty := sel.Bounds()
	if !nonEmpty {
		t.Fatal("bounds missed the pixel")
	}
	if x1 != 70 || y1 != 80 || x2 != 71 || y2 != 81 {
		t.Errorf("bounds = (%d,%d,%d,%d)", x1, y1, x2, y2)
	}

	// Cached ADD combine expands without a rescan.
	if err := sel.CombineRect(OpAdd, 10, 10, 5, 5); err != nil {
		t.Fatal(err)
	}
	x1, y1, _, _, _ = sel.Bounds()
	if x1 != 10 || y1 != 10 {
		t.Errorf("expanded bounds start = (%d,%d)", x1, y1)
	}
}

// TestBoundaryCacheConsistency: a cached boundary equals a recomputed
// one.
func TestBoundaryCacheConsistency(t *testing.T) {
	_, img := newTestImage(t, 32, 32, RGB)
	sel := img.Selection()
	if err := sel.CombineRect(OpReplace, 5, 5, 10, 8); err != nil {
		t.Fatal(err)
	}

	in1, out1, err := sel.Boundary(0, 0, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !sel.boundaryKnown {
		t.Fatal("boundary cache not set")
	}
	// Second call hits the cache.
	in2, out2, err := sel.Boundary(0, 0, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(in1) != len(in2) || len(out1) != len(out2) {
		t.Fatal("cache returned different segment counts")
	}

	// Force a recompute and compare.
	sel.invalidateCaches()
	in3, out3, err := sel.Boundary(0, 0, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(in3) != len(in1) || len(out3) != len(out1) {
		t.Fatalf("recompute disagrees with cache: %d/%d vs %d/%d",
			len(in3), len(out3), len(in1), len(out1))
	}
	for i := range in1 {
		if in1[i] != in3[i] {
			t.Fatalf("segment %d differs: %v vs %v", i, in1[i], in3[i])
		}
	}
}

func TestChannelEllipseAntialias(t *testing.T) {
	_, img := newTestImage(t, 32, 32, RGB)
	sel := img.Selection()
	if err := sel.CombineEllipse(OpReplace, 4, 4, 24, 24, true); err != nil {
		t.Fatal(err)
	}

	if v := sel.Value(16, 16); v != 255 {
		t.Errorf("ellipse center = %d", v)
	}
	if v := sel.Value(4, 4); v != 0 {
		t.Errorf("ellipse corner = %d", v)
	}
	// Antialiasing produces intermediate coverage on the rim.
	partial := false
	for x := 4; x < 28; x++ {
		v := sel.Value(x, 7)
		if v > 0 && v < 255 {
			partial = true
			break
		}
	}
	if !partial {
		t.Error("no antialiased values on the ellipse rim")
	}

	// The non-antialiased form is binary.
	if err := sel.CombineEllipse(OpReplace, 4, 4, 24, 24, false); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if v := sel.Value(x, y); v != 0 && v != 255 {
				t.Fatalf("aliased ellipse value %d at (%d,%d)", v, x, y)
			}
		}
	}
}

func TestSelectionMorphology(t *testing.T) {
	_, img := newTestImage(t, 32, 32, RGB)
	if err := img.Selection().CombineRect(OpReplace, 10, 10, 10, 10); err != nil {
		t.Fatal(err)
	}

	if err := img.MaskGrow(2); err != nil {
		t.Fatal(err)
	}
	if v := img.MaskValue(8, 15); v != 255 {
		t.Errorf("grown selection misses (8,15): %d", v)
	}

	if err := img.MaskShrink(2); err != nil {
		t.Fatal(err)
	}
	if v := img.MaskValue(8, 15); v != 0 {
		t.Errorf("shrink left (8,15) selected")
	}
	if v := img.MaskValue(15, 15); v != 255 {
		t.Errorf("shrink removed the interior")
	}

	if err := img.MaskBorder(1); err != nil {
		t.Fatal(err)
	}
	if v := img.MaskValue(15, 15); v != 0 {
		t.Errorf("border kept the interior: %d", v)
	}

	// Feather softens; sharpen restores binarity.
	if err := img.Selection().CombineRect(OpReplace, 10, 10, 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := img.MaskFeather(2); err != nil {
		t.Fatal(err)
	}
	soft := false
	for x := 0; x < 32; x++ {
		if v := img.MaskValue(x, 15); v > 0 && v < 255 {
			soft = true
			break
		}
	}
	if !soft {
		t.Error("feather produced no soft edge")
	}
	if err := img.MaskSharpen(); err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 32; x++ {
		if v := img.MaskValue(x, 15); v != 0 && v != 255 {
			t.Fatalf("sharpen left value %d", v)
		}
	}
}

func TestMaskTranslateMoves(t *testing.T) {
	_, img := newTestImage(t, 16, 16, RGB)
	if err := img.Selection().CombineRect(OpReplace, 2, 2, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := img.MaskTranslate(5, 5); err != nil {
		t.Fatal(err)
	}
	if v := img.MaskValue(2, 2); v != 0 {
		t.Errorf("old position still selected: %d", v)
	}
	if v := img.MaskValue(8, 8); v != 255 {
		t.Errorf("new position not selected: %d", v)
	}
	x1, y1, x2, y2, _ := img.MaskBounds()
	if x1 != 7 || y1 != 7 || x2 != 11 || y2 != 11 {
		t.Errorf("translated bounds = (%d,%d,%d,%d)", x1, y1, x2, y2)
	}
}

func TestMaskLayerAlpha(t *testing.T) {
	_, img := newTestImage(t, 16, 16, RGB)
	l := addFilledLayer(t, img, 4, 4, RGBAImage, "patch", []byte{1, 1, 1, 200})
	l.Translate(6, 6)

	if err := img.MaskLayerAlpha(l); err != nil {
		t.Fatal(err)
	}
	if v := img.MaskValue(7, 7); v != 200 {
		t.Errorf("selection inside footprint = %d, want 200", v)
	}
	if v := img.MaskValue(0, 0); v != 0 {
		t.Errorf("selection outside footprint = %d", v)
	}

	flat := addFilledLayer(t, img, 4, 4, RGBImage, "flat", []byte{1, 1, 1})
	if err := img.MaskLayerAlpha(flat); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("layer-alpha on alpha-less layer err = %v", err)
	}
}

func TestChannelValueBoundsShortcut(t *testing.T) {
	_, img := newTestImage(t, 16, 16, RGB)
	sel := img.Selection()
	if err := sel.CombineRect(OpReplace, 4, 4, 4, 4); err != nil {
		t.Fatal(err)
	}
	// Out-of-bounds and outside-known-bounds reads are zero without
	// touching tiles.
	if v := sel.Value(-1, 5); v != 0 {
		t.Errorf("value(-1,5) = %d", v)
	}
	if v := sel.Value(15, 15); v != 0 {
		t.Errorf("value outside bounds = %d", v)
	}
	if v := sel.Value(5, 5); v != 255 {
		t.Errorf("value inside = %d", v)
	}
}
