package pict

import "testing"

func projPixel(t *testing.T, img *Image, x, y int) []byte {
	t.Helper()
	proj, err := img.Projection()
	if err != nil {
		t.Fatal(err)
	}
	p := make([]byte, proj.Bpp())
	if err := proj.Pixel(x, y, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProjectionStacksBottomUp(t *testing.T) {
	_, img := newTestImage(t, 8, 8, RGB)
	addFilledLayer(t, img, 8, 8, RGBImage, "bottom", []byte{10, 20, 30})
	top := addFilledLayer(t, img, 4, 4, RGBAImage, "top", []byte{200, 0, 0, 255})
	top.Translate(2, 2)

	p := projPixel(t, img, 0, 0)
	if p[0] != 10 || p[1] != 20 || p[2] != 30 {
		t.Errorf("uncovered pixel = %v, want bottom layer", p)
	}
	p = projPixel(t, img, 3, 3)
	if p[0] != 200 || p[1] != 0 {
		t.Errorf("covered pixel = %v, want top layer", p)
	}
}

func TestProjectionHonorsOpacityAndVisibility(t *testing.T) {
	_, img := newTestImage(t, 4, 4, RGB)
	addFilledLayer(t, img, 4, 4, RGBImage, "bottom", []byte{0, 0, 0})
	top := addFilledLayer(t, img, 4, 4, RGBAImage, "top", []byte{255, 255, 255, 255})

	if err := top.SetOpacity(128); err != nil {
		t.Fatal(err)
	}
	p := projPixel(t, img, 1, 1)
	if p[0] < 120 || p[0] > 136 {
		t.Errorf("half-opacity projection = %d, want ~128", p[0])
	}

	top.SetVisible(false)
	img.invalidateComposite()
	p = projPixel(t, img, 1, 1)
	if p[0] != 0 {
		t.Errorf("hidden layer still projected: %v", p)
	}
}

func TestProjectionAppliesLayerMask(t *testing.T) {
	_, img := newTestImage(t, 4, 4, RGB)
	addFilledLayer(t, img, 4, 4, RGBImage, "bottom", []byte{0, 0, 0})
	top := addFilledLayer(t, img, 4, 4, RGBAImage, "top", []byte{255, 0, 0, 255})

	mask, err := top.CreateMask(BlackMask)
	if err != nil {
		t.Fatal(err)
	}
	if err := mask.Tiles().PutPixel(1, 1, []byte{255}); err != nil {
		t.Fatal(err)
	}
	if err := top.AddMask(mask); err != nil {
		t.Fatal(err)
	}

	p := projPixel(t, img, 1, 1)
	if p[0] != 255 {
		t.Errorf("mask-open pixel = %v, want red", p)
	}
	p = projPixel(t, img, 2, 2)
	if p[0] != 0 {
		t.Errorf("mask-closed pixel = %v, want bottom", p)
	}

	// With apply-mask off the mask is ignored.
	top.SetApplyMaskFlag(false)
	p = projPixel(t, img, 2, 2)
	if p[0] != 255 {
		t.Errorf("apply-mask off still masked: %v", p)
	}
}

func TestProjectionBlendModes(t *testing.T) {
	tests := []struct {
		name string
		mode LayerMode
		want byte
	}{
		{name: "multiply", mode: MultiplyMode, want: 64},
		{name: "screen", mode: ScreenMode, want: 192},
		{name: "difference", mode: DifferenceMode, want: 0},
		{name: "addition", mode: AdditionMode, want: 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, img := newTestImage(t, 2, 2, RGB)
			addFilledLayer(t, img, 2, 2, RGBImage, "bottom", []byte{128, 128, 128})
			top := addFilledLayer(t, img, 2, 2, RGBAImage, "top", []byte{128, 128, 128, 255})
			if err := top.SetMode(tt.mode); err != nil {
				t.Fatal(err)
			}
			p := projPixel(t, img, 0, 0)
			if p[0] != tt.want {
				t.Errorf("%v projection = %d, want %d", tt.mode, p[0], tt.want)
			}
		})
	}
}

func TestProjectionCache(t *testing.T) {
	_, img := newTestImage(t, 4, 4, RGB)
	l := addFilledLayer(t, img, 4, 4, RGBImage, "b", []byte{9, 9, 9})

	p1, err := img.Projection()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := img.Projection()
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("unchanged projection was rebuilt")
	}

	l.Translate(1, 0)
	p3, err := img.Projection()
	if err != nil {
		t.Fatal(err)
	}
	if p3 == p1 {
		t.Error("projection cache survived a visible change")
	}
}

func TestFlattenReplacesLayerList(t *testing.T) {
	_, img := newTestImage(t, 4, 4, RGB)
	addFilledLayer(t, img, 4, 4, RGBImage, "bottom", []byte{10, 10, 10})
	top := addFilledLayer(t, img, 2, 2, RGBAImage, "top", []byte{200, 0, 0, 255})
	top.Translate(1, 1)

	flat, err := img.Flatten()
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Layers()) != 1 || img.Layers()[0] != flat {
		t.Fatalf("layer list after flatten has %d entries", len(img.Layers()))
	}
	p := pixel(t, flat, 0, 0)
	if p[0] != 10 {
		t.Errorf("flattened uncovered pixel = %v", p)
	}
	p = pixel(t, flat, 1, 1)
	if p[0] != 200 {
		t.Errorf("flattened covered pixel = %v", p)
	}
}
