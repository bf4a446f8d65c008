package pict

import (
	"testing"
)

// newTestImage builds a context and image for scenario tests.
func newTestImage(t *testing.T, w, h int, base BaseType) (*Context, *Image) {
	t.Helper()
	ctx := NewContext(DefaultConfig())
	img, err := ctx.NewImage(w, h, base)
	if err != nil {
		t.Fatal(err)
	}
	return ctx, img
}

// addFilledLayer creates a layer, floods it with a pixel and adds it.
func addFilledLayer(t *testing.T, img *Image, w, h int, lt ImageType, name string, px []byte) *Layer {
	t.Helper()
	l, err := img.NewLayer(w, h, lt, name, OpaqueOpacity, NormalMode)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.fill(px); err != nil {
		t.Fatal(err)
	}
	if err := img.AddLayer(l, 0); err != nil {
		t.Fatal(err)
	}
	return l
}

// pixel reads one pixel of a drawable.
func pixel(t *testing.T, d AnyDrawable, x, y int) []byte {
	t.Helper()
	base := d.Base()
	p := make([]byte, base.Bytes())
	if err := base.Tiles().Pixel(x, y, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewImageInvariants(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		base    BaseType
		wantErr bool
	}{
		{name: "rgb", w: 64, h: 48, base: RGB},
		{name: "gray", w: 10, h: 10, base: Gray},
		{name: "indexed", w: 5, h: 5, base: Indexed},
		{name: "zero width", w: 0, h: 5, base: RGB, wantErr: true},
		{name: "negative height", w: 5, h: -3, base: RGB, wantErr: true},
		{name: "bad base", w: 5, h: 5, base: BaseType(9), wantErr: true},
	}

	ctx := NewContext(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ctx.NewImage(tt.w, tt.h, tt.base)
			if tt.wantErr {
				if err == nil {
					t.Fatal("invalid image accepted")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			// The selection channel always exists at image extent.
			sel := img.Selection()
			if sel == nil || sel.Width() != tt.w || sel.Height() != tt.h {
				t.Error("selection channel missing or mis-sized")
			}
			if !img.MaskIsEmpty() {
				t.Error("fresh selection not empty")
			}
			if got, err := ctx.Image(img.ID()); err != nil || got != img {
				t.Error("image not resolvable by id")
			}
		})
	}
}

func TestImageDuplicatePreservesStructure(t *testing.T) {
	_, img := newTestImage(t, 20, 20, RGB)
	l := addFilledLayer(t, img, 20, 20, RGBAImage, "base", []byte{9, 8, 7, 255})
	if err := img.MaskAll(); err != nil {
		t.Fatal(err)
	}
	g, err := img.AddHGuide(5)
	if err != nil {
		t.Fatal(err)
	}
	img.AttachParasite(&Parasite{Name: "note", Data: []byte("hi")})

	dup, err := img.Duplicate()
	if err != nil {
		t.Fatal(err)
	}
	if len(dup.Layers()) != 1 {
		t.Fatalf("duplicate has %d layers", len(dup.Layers()))
	}
	if dup.Layers()[0] == l {
		t.Fatal("duplicate shares layer pointers")
	}
	p := pixel(t, dup.Layers()[0], 3, 3)
	if p[0] != 9 || p[3] != 255 {
		t.Errorf("duplicate pixel = %v", p)
	}
	if dup.MaskIsEmpty() {
		t.Error("duplicate lost the selection")
	}
	if len(dup.guides) != 1 || dup.guides[0].Position() != g.Position() {
		t.Error("duplicate lost guides")
	}
	if dup.FindParasite("note") == nil {
		t.Error("duplicate lost parasites")
	}

	// Mutating the duplicate must not touch the original.
	if err := dup.Layers()[0].fill([]byte{0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	p = pixel(t, l, 3, 3)
	if p[0] != 9 {
		t.Error("duplicate mutation leaked into original")
	}
}

func TestColormapValidation(t *testing.T) {
	_, img := newTestImage(t, 4, 4, Indexed)
	tests := []struct {
		name    string
		cmap    []byte
		wantErr bool
	}{
		{name: "one entry", cmap: []byte{1, 2, 3}},
		{name: "full", cmap: make([]byte, 768)},
		{name: "empty", cmap: nil, wantErr: true},
		{name: "not multiple of 3", cmap: []byte{1, 2, 3, 4}, wantErr: true},
		{name: "oversized", cmap: make([]byte, 771), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := img.SetColormap(tt.cmap)
			if tt.wantErr != (err != nil) {
				t.Errorf("SetColormap err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	_, rgb := newTestImage(t, 4, 4, RGB)
	if err := rgb.SetColormap([]byte{1, 2, 3}); err == nil {
		t.Error("colormap accepted on RGB image")
	}
	if _, err := rgb.Colormap(); err == nil {
		t.Error("colormap read on RGB image")
	}
}

func TestImageResizeShiftsLayers(t *testing.T) {
	_, img := newTestImage(t, 10, 10, RGB)
	l := addFilledLayer(t, img, 10, 10, RGBAImage, "base", []byte{5, 5, 5, 255})

	if err := img.Resize(20, 20, 4, 6); err != nil {
		t.Fatal(err)
	}
	if img.Width() != 20 || img.Height() != 20 {
		t.Fatalf("image size %dx%d", img.Width(), img.Height())
	}
	if x, y := l.Offsets(); x != 4 || y != 6 {
		t.Errorf("layer offsets (%d,%d), want (4,6)", x, y)
	}
	if img.Selection().Width() != 20 || img.Selection().Height() != 20 {
		t.Error("selection did not follow the canvas")
	}

	ok, err := img.Undo()
	if err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if img.Width() != 10 || img.Height() != 10 {
		t.Errorf("undo left size %dx%d", img.Width(), img.Height())
	}
	if x, y := l.Offsets(); x != 0 || y != 0 {
		t.Errorf("undo left offsets (%d,%d)", x, y)
	}
}

func TestImageScaleResamplesLayers(t *testing.T) {
	_, img := newTestImage(t, 10, 10, RGB)
	l := addFilledLayer(t, img, 10, 10, RGBAImage, "base", []byte{100, 150, 200, 255})

	if err := img.Scale(20, 30); err != nil {
		t.Fatal(err)
	}
	if l.Width() != 20 || l.Height() != 30 {
		t.Errorf("layer scaled to %dx%d", l.Width(), l.Height())
	}
	p := pixel(t, l, 10, 15)
	if p[0] != 100 || p[1] != 150 || p[2] != 200 {
		t.Errorf("flat layer changed color on scale: %v", p)
	}
}

func TestPreviewCache(t *testing.T) {
	_, img := newTestImage(t, 32, 32, RGB)
	l := addFilledLayer(t, img, 32, 32, RGBAImage, "base", []byte{80, 80, 80, 255})

	pv := l.Preview(8, 8)
	if len(pv) != 8*8*4 {
		t.Fatalf("preview length %d", len(pv))
	}
	if pv[0] != 80 {
		t.Errorf("preview value %d, want 80", pv[0])
	}
	// Same dimensions hit the cache.
	if &pv[0] != &l.Preview(8, 8)[0] {
		t.Error("matching preview request did not hit the cache")
	}
	// A mutation invalidates it.
	if err := l.fill([]byte{10, 10, 10, 255}); err != nil {
		t.Fatal(err)
	}
	l.Update(0, 0, 32, 32)
	pv = l.Preview(8, 8)
	if pv[0] != 10 {
		t.Errorf("stale preview after mutation: %d", pv[0])
	}
}

func TestGuides(t *testing.T) {
	_, img := newTestImage(t, 100, 50, RGB)
	if _, err := img.AddHGuide(60); err == nil {
		t.Error("hguide beyond height accepted")
	}
	h, err := img.AddHGuide(25)
	if err != nil {
		t.Fatal(err)
	}
	v, err := img.AddVGuide(40)
	if err != nil {
		t.Fatal(err)
	}

	// Iterate live guides.
	var seen []int
	for id := img.FindNextGuide(0); id != 0; id = img.FindNextGuide(id) {
		seen = append(seen, id)
	}
	if len(seen) != 2 || seen[0] != h.ID() || seen[1] != v.ID() {
		t.Fatalf("guide iteration = %v", seen)
	}

	if err := img.DeleteGuide(h.ID()); err != nil {
		t.Fatal(err)
	}
	if img.FindNextGuide(0) != v.ID() {
		t.Error("deleted guide still iterated")
	}

	// Undo resurrects it in place.
	if ok, err := img.Undo(); err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	g, err := img.GuideByID(h.ID())
	if err != nil {
		t.Fatal("undo did not resurrect the guide")
	}
	if g.Position() != 25 || g.Orientation() != Horizontal {
		t.Errorf("resurrected guide = %d %v", g.Position(), g.Orientation())
	}
}

func TestParasites(t *testing.T) {
	ctx, img := newTestImage(t, 8, 8, RGB)
	l := addFilledLayer(t, img, 8, 8, RGBAImage, "base", []byte{1, 1, 1, 255})

	img.AttachParasite(&Parasite{Name: "comment", Data: []byte("hello")})
	if p := img.FindParasite("comment"); p == nil || string(p.Data) != "hello" {
		t.Error("image parasite lost")
	}
	l.AttachParasite(&Parasite{Name: "tag", Data: []byte("x")})
	if l.FindParasite("tag") == nil {
		t.Error("drawable parasite lost")
	}
	ctx.AttachParasite(&Parasite{Name: "global", Data: []byte("g")})
	if ctx.FindParasite("global") == nil {
		t.Error("global parasite lost")
	}

	img.DetachParasite("comment")
	if img.FindParasite("comment") != nil {
		t.Error("detach left parasite behind")
	}
	// Parasite changes undo.
	if ok, err := img.Undo(); err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if img.FindParasite("comment") == nil {
		t.Error("undo did not restore the parasite")
	}
}

func TestResolutionUndo(t *testing.T) {
	_, img := newTestImage(t, 8, 8, RGB)
	img.PushResolutionUndo()
	if err := img.SetResolution(300, 300); err != nil {
		t.Fatal(err)
	}
	if err := img.SetResolution(0, 10); err == nil {
		t.Error("non-positive resolution accepted")
	}
	if ok, err := img.Undo(); err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if x, y := img.Resolution(); x != 72 || y != 72 {
		t.Errorf("resolution after undo = %gx%g", x, y)
	}
	if ok, err := img.Redo(); err != nil || !ok {
		t.Fatalf("redo: %v %v", ok, err)
	}
	if x, _ := img.Resolution(); x != 300 {
		t.Errorf("resolution after redo = %g", x)
	}
}
