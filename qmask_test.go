package pict

import "testing"

// TestQmaskLifecycle: enter with empty selection, paint, exit; the
// painted pixels carve the selection.
func TestQmaskLifecycle(t *testing.T) {
	_, img := newTestImage(t, 8, 8, RGB)
	addFilledLayer(t, img, 8, 8, RGBImage, "bg", []byte{128, 128, 128})

	if !img.MaskIsEmpty() {
		t.Fatal("selection not empty at start")
	}
	if err := img.QmaskOn(); err != nil {
		t.Fatal(err)
	}
	if !img.QmaskState() {
		t.Fatal("qmask state not set")
	}
	mask := img.ChannelByName(QmaskName)
	if mask == nil {
		t.Fatal("Qmask channel missing")
	}
	if img.Channels()[0] != mask {
		t.Error("Qmask not at top of channel list")
	}
	if v := mask.Value(4, 4); v != 255 {
		t.Fatalf("fresh Qmask value = %d, want full white", v)
	}
	if !img.MaskIsEmpty() {
		t.Error("entering qmask disturbed the selection")
	}

	// Paint ten pixels black.
	painted := [][2]int{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 1}}
	for _, p := range painted {
		if err := mask.Tiles().PutPixel(p[0], p[1], []byte{0}); err != nil {
			t.Fatal(err)
		}
	}
	mask.invalidateCaches()

	if err := img.QmaskOff(); err != nil {
		t.Fatal(err)
	}
	if img.QmaskState() {
		t.Error("qmask state survived exit")
	}
	if img.ChannelByName(QmaskName) != nil {
		t.Error("Qmask channel survived exit")
	}
	for _, p := range painted {
		if v := img.MaskValue(p[0], p[1]); v != 0 {
			t.Errorf("painted pixel (%d,%d) selection = %d, want 0", p[0], p[1], v)
		}
	}
	if v := img.MaskValue(6, 6); v != 255 {
		t.Errorf("unpainted selection = %d, want 255", v)
	}
}

// TestQmaskWithExistingSelection copies the selection into the channel
// and clears it while active.
func TestQmaskWithExistingSelection(t *testing.T) {
	_, img := newTestImage(t, 8, 8, RGB)
	if err := img.Selection().CombineRect(OpReplace, 2, 2, 3, 3); err != nil {
		t.Fatal(err)
	}

	if err := img.QmaskOn(); err != nil {
		t.Fatal(err)
	}
	mask := img.ChannelByName(QmaskName)
	if mask == nil {
		t.Fatal("Qmask channel missing")
	}
	if v := mask.Value(3, 3); v != 255 {
		t.Errorf("Qmask did not copy selection: %d", v)
	}
	if v := mask.Value(0, 0); v != 0 {
		t.Errorf("Qmask outside selection = %d", v)
	}
	if !img.MaskIsEmpty() {
		t.Error("selection not cleared while qmask active")
	}

	if err := img.QmaskOff(); err != nil {
		t.Fatal(err)
	}
	if img.MaskValue(3, 3) != 255 || img.MaskValue(0, 0) != 0 {
		t.Error("selection not restored from Qmask on exit")
	}
}

// TestQmaskIdempotent: toggling in the current state is a no-op.
func TestQmaskIdempotent(t *testing.T) {
	_, img := newTestImage(t, 4, 4, RGB)
	if err := img.QmaskOff(); err != nil {
		t.Fatal(err)
	}
	if err := img.QmaskOn(); err != nil {
		t.Fatal(err)
	}
	channels := len(img.Channels())
	if err := img.QmaskOn(); err != nil {
		t.Fatal(err)
	}
	if len(img.Channels()) != channels {
		t.Error("double qmask-on duplicated the channel")
	}
}
