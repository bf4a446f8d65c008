package pict

import (
	"fmt"

	"github.com/gopaint/pict/internal/blend"
	"github.com/gopaint/pict/tile"
)

// Layer is a drawable composited into the image projection with opacity
// and a blend mode, optionally paired with a grayscale mask and, while
// floating, glued to an underlying drawable.
type Layer struct {
	Drawable

	opacity       int
	mode          LayerMode
	linked        bool
	preserveAlpha bool

	applyMask bool
	editMask  bool
	showMask  bool
	mask      *LayerMask

	fs *FloatingSel
}

// LayerMask is the grayscale mask paired with a layer. Its extents and
// offsets track the layer's.
type LayerMask struct {
	Drawable
	layer *Layer
}

// Layer returns the mask's owning layer.
func (lm *LayerMask) Layer() *Layer { return lm.layer }

// newLayer constructs a detached layer.
func newLayer(img *Image, w, h int, t ImageType, name string, opacity int, mode LayerMode) (*Layer, error) {
	if opacity < 0 || opacity > 255 {
		return nil, fmt.Errorf("%w: layer opacity %d", ErrInvalidArgument, opacity)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: layer mode %d", ErrInvalidArgument, int(mode))
	}
	if t.Base() != img.baseType {
		return nil, fmt.Errorf("%w: layer type %v on %v image", ErrTypeMismatch, t, img.baseType)
	}
	l := &Layer{opacity: opacity, mode: mode}
	if err := l.initDrawable(img, KindLayer, w, h, t, name); err != nil {
		return nil, err
	}
	img.registerDrawable(l)
	return l, nil
}

// newLayerFromTiles wraps an extraction buffer in a fresh layer. The
// manager's auxiliary origin becomes the layer offset.
func newLayerFromTiles(img *Image, tiles *tile.Manager, t ImageType, name string, opacity int, mode LayerMode) (*Layer, error) {
	l, err := newLayer(img, tiles.Width(), tiles.Height(), t, name, opacity, mode)
	if err != nil {
		return nil, err
	}
	src := tile.NewRegion(tiles, 0, 0, tiles.Width(), tiles.Height(), false)
	dst := l.region(0, 0, l.width, l.height, true)
	if err := tile.CopyRegion(src, dst); err != nil {
		return nil, err
	}
	l.offsetX, l.offsetY = tiles.Origin()
	return l, nil
}

// Opacity returns the layer opacity, 0..255.
func (l *Layer) Opacity() int { return l.opacity }

// SetOpacity sets the layer opacity, 0..255.
func (l *Layer) SetOpacity(op int) error {
	if op < 0 || op > 255 {
		return fmt.Errorf("%w: layer opacity %d", ErrInvalidArgument, op)
	}
	l.opacity = op
	l.image.invalidateComposite()
	return nil
}

// Mode returns the blend mode.
func (l *Layer) Mode() LayerMode { return l.mode }

// SetMode sets the blend mode.
func (l *Layer) SetMode(m LayerMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: layer mode %d", ErrInvalidArgument, int(m))
	}
	l.mode = m
	l.image.invalidateComposite()
	return nil
}

// Linked reports the linked flag.
func (l *Layer) Linked() bool { return l.linked }

// SetLinked sets the linked flag.
func (l *Layer) SetLinked(v bool) { l.linked = v }

// PreserveAlpha reports the preserve-transparency flag.
func (l *Layer) PreserveAlpha() bool { return l.preserveAlpha }

// SetPreserveAlpha sets the preserve-transparency flag.
func (l *Layer) SetPreserveAlpha(v bool) { l.preserveAlpha = v }

// ApplyMaskFlag reports whether the mask participates in compositing.
func (l *Layer) ApplyMaskFlag() bool { return l.applyMask }

// SetApplyMaskFlag toggles mask participation in compositing.
func (l *Layer) SetApplyMaskFlag(v bool) { l.applyMask = v; l.image.invalidateComposite() }

// EditMaskFlag reports whether edits target the mask.
func (l *Layer) EditMaskFlag() bool { return l.editMask }

// SetEditMaskFlag sets whether edits target the mask.
func (l *Layer) SetEditMaskFlag(v bool) { l.editMask = v }

// ShowMaskFlag reports whether the mask is displayed instead of the
// layer.
func (l *Layer) ShowMaskFlag() bool { return l.showMask }

// SetShowMaskFlag sets mask display.
func (l *Layer) SetShowMaskFlag(v bool) { l.showMask = v; l.image.invalidateComposite() }

// Mask returns the layer's mask, or nil.
func (l *Layer) Mask() *LayerMask { return l.mask }

// IsFloatingSel reports whether the layer is a floating selection.
func (l *Layer) IsFloatingSel() bool { return l.fs != nil }

// FloatingSel returns the floating-selection record, or nil.
func (l *Layer) FloatingSel() *FloatingSel { return l.fs }

// Rename changes the layer's name undoably.
func (l *Layer) Rename(name string) {
	l.image.PushLayerRenameUndo(l)
	l.SetName(name)
}

// Copy duplicates the layer, optionally adding an alpha channel. The
// copy is detached: it belongs to no layer list until added.
func (l *Layer) Copy(addAlpha bool) (*Layer, error) {
	t := l.dtype
	if addAlpha {
		t = t.WithAlpha()
	}
	dup, err := newLayer(l.image, l.width, l.height, t, l.name, l.opacity, l.mode)
	if err != nil {
		return nil, err
	}
	dup.offsetX, dup.offsetY = l.offsetX, l.offsetY
	dup.linked = l.linked
	dup.preserveAlpha = l.preserveAlpha

	src := l.region(0, 0, l.width, l.height, false)
	dst := dup.region(0, 0, l.width, l.height, true)
	if t == l.dtype {
		err = tile.CopyRegion(src, dst)
	} else {
		err = tile.AddAlphaRegion(src, dst)
	}
	if err != nil {
		return nil, err
	}

	if l.mask != nil {
		mask, mErr := l.mask.copyFor(dup)
		if mErr != nil {
			return nil, mErr
		}
		dup.mask = mask
		dup.applyMask = l.applyMask
		dup.editMask = l.editMask
		dup.showMask = l.showMask
	}
	return dup, nil
}

// copyFor duplicates a mask onto another layer.
func (lm *LayerMask) copyFor(target *Layer) (*LayerMask, error) {
	mask := &LayerMask{layer: target}
	if err := mask.initDrawable(target.image, KindLayerMask, lm.width, lm.height, GrayImage, lm.name); err != nil {
		return nil, err
	}
	mask.offsetX, mask.offsetY = target.offsetX, target.offsetY
	src := lm.region(0, 0, lm.width, lm.height, false)
	dst := mask.region(0, 0, mask.width, mask.height, true)
	if err := tile.CopyRegion(src, dst); err != nil {
		return nil, err
	}
	target.image.registerDrawable(mask)
	return mask, nil
}

// CreateMask builds a mask for the layer without attaching it.
func (l *Layer) CreateMask(mtype AddMaskType) (*LayerMask, error) {
	mask := &LayerMask{layer: l}
	if err := mask.initDrawable(l.image, KindLayerMask, l.width, l.height, GrayImage, l.name+" mask"); err != nil {
		return nil, err
	}
	mask.offsetX, mask.offsetY = l.offsetX, l.offsetY

	switch mtype {
	case WhiteMask:
		if err := mask.fill([]byte{255}); err != nil {
			return nil, err
		}
	case BlackMask:
		// Tiles demand-fill to zero.
	case AlphaMask:
		if !l.HasAlpha() {
			return nil, fmt.Errorf("%w: alpha mask from layer without alpha", ErrTypeMismatch)
		}
		src := l.region(0, 0, l.width, l.height, false)
		dst := mask.region(0, 0, mask.width, mask.height, true)
		if err := tile.ExtractAlphaRegion(src, nil, dst); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: mask type %d", ErrInvalidArgument, int(mtype))
	}
	l.image.registerDrawable(mask)
	return mask, nil
}

// AddMask attaches a mask to the layer; extents and offsets must match.
func (l *Layer) AddMask(mask *LayerMask) error {
	if l.mask != nil {
		return fmt.Errorf("%w: layer %q already has a mask", ErrIllegalState, l.name)
	}
	if mask.width != l.width || mask.height != l.height {
		return fmt.Errorf("%w: mask %dx%d on layer %dx%d", ErrInvalidArgument,
			mask.width, mask.height, l.width, l.height)
	}
	mask.layer = l
	mask.offsetX, mask.offsetY = l.offsetX, l.offsetY
	l.mask = mask
	l.applyMask = true
	l.editMask = true
	l.showMask = false
	l.image.pushLayerMaskAdd(l, mask)
	l.image.invalidateComposite()
	return nil
}

// RemoveMask detaches the layer mask, applying it to the layer's alpha
// first when mode is ApplyMask.
func (l *Layer) RemoveMask(mode MaskApplyMode) error {
	if l.mask == nil {
		return fmt.Errorf("%w: layer %q has no mask", ErrIllegalState, l.name)
	}
	mask := l.mask
	if mode == ApplyMask {
		if !l.HasAlpha() {
			if err := l.addAlphaRaw(); err != nil {
				return err
			}
		}
		if err := l.multiplyAlphaByMask(); err != nil {
			return err
		}
	}
	l.mask = nil
	l.applyMask = false
	l.editMask = false
	l.showMask = false
	l.image.pushLayerMaskRemove(l, mask, mode)
	l.Update(0, 0, l.width, l.height)
	l.image.invalidateComposite()
	return nil
}

// multiplyAlphaByMask folds the mask into the alpha channel.
func (l *Layer) multiplyAlphaByMask() error {
	src := l.mask.region(0, 0, l.width, l.height, false)
	dst := l.region(0, 0, l.width, l.height, true)
	it, err := tile.Iterate(src, dst)
	if err != nil {
		return err
	}
	ai := l.Bytes() - 1
	for it.Next() {
		s, d := src.Data, dst.Data
		for y := 0; y < src.H; y++ {
			di := ai
			for x := 0; x < src.W; x++ {
				d[di] = byte(int(d[di]) * int(s[x]) / 255)
				di += dst.Bytes
			}
			if y+1 < src.H {
				s = s[src.Rowstride:]
				d = d[dst.Rowstride:]
			}
		}
	}
	return nil
}

// AddAlpha converts the layer to its alpha-bearing type, pushing a
// LayerMod record so the conversion undoes in place.
func (l *Layer) AddAlpha() error {
	if l.HasAlpha() {
		return nil
	}
	l.image.pushLayerMod(l)
	if err := l.addAlphaRaw(); err != nil {
		return err
	}
	l.Update(0, 0, l.width, l.height)
	l.image.invalidateComposite()
	return nil
}

// addAlphaRaw widens the pixel storage without touching undo.
func (l *Layer) addAlphaRaw() error {
	t := l.dtype.WithAlpha()
	tiles, err := tile.NewManager(l.width, l.height, t.Bytes())
	if err != nil {
		return err
	}
	src := l.region(0, 0, l.width, l.height, false)
	dst := tile.NewRegion(tiles, 0, 0, l.width, l.height, true)
	if err := tile.AddAlphaRegion(src, dst); err != nil {
		return err
	}
	l.tiles = tiles
	l.dtype = t
	return nil
}

// Scale resamples the layer to the new extent. With localOrigin the
// layer keeps its center; otherwise each offset scales by the layer's
// own new-to-old size ratio on that axis.
func (l *Layer) Scale(newW, newH int, localOrigin bool) error {
	if newW <= 0 || newH <= 0 {
		return fmt.Errorf("%w: scale to %dx%d", ErrInvalidArgument, newW, newH)
	}
	l.image.pushLayerMod(l)

	tiles, err := resampleManager(l.tiles, l.dtype, l.image.cmap, newW, newH)
	if err != nil {
		return err
	}
	if localOrigin {
		l.offsetX += (l.width - newW) / 2
		l.offsetY += (l.height - newH) / 2
	} else {
		l.offsetX = l.offsetX * newW / maxInt(l.width, 1)
		l.offsetY = l.offsetY * newH / maxInt(l.height, 1)
	}
	l.tiles = tiles
	l.width, l.height = newW, newH

	if l.mask != nil {
		maskTiles, mErr := resampleManager(l.mask.tiles, GrayImage, nil, newW, newH)
		if mErr != nil {
			return mErr
		}
		l.mask.tiles = maskTiles
		l.mask.width, l.mask.height = newW, newH
		l.mask.offsetX, l.mask.offsetY = l.offsetX, l.offsetY
		l.mask.previewValid = false
	}

	l.Update(0, 0, newW, newH)
	l.image.invalidateComposite()
	return nil
}

// Resize crops or extends the layer around a reference offset. New area
// fills with transparency when the layer has alpha, the background
// color otherwise.
func (l *Layer) Resize(newW, newH, offX, offY int) error {
	if newW <= 0 || newH <= 0 {
		return fmt.Errorf("%w: resize to %dx%d", ErrInvalidArgument, newW, newH)
	}
	l.image.pushLayerMod(l)

	tiles, err := l.resizeTiles(l.tiles, l.dtype, newW, newH, offX, offY)
	if err != nil {
		return err
	}
	l.tiles = tiles
	l.offsetX -= offX
	l.offsetY -= offY
	l.width, l.height = newW, newH

	if l.mask != nil {
		maskTiles, mErr := l.resizeTiles(l.mask.tiles, GrayImage, newW, newH, offX, offY)
		if mErr != nil {
			return mErr
		}
		l.mask.tiles = maskTiles
		l.mask.width, l.mask.height = newW, newH
		l.mask.offsetX, l.mask.offsetY = l.offsetX, l.offsetY
		l.mask.previewValid = false
	}

	l.Update(0, 0, newW, newH)
	l.image.invalidateComposite()
	return nil
}

// resizeTiles rebuilds a manager at the new extent with the old content
// placed at (offX, offY).
func (l *Layer) resizeTiles(old *tile.Manager, t ImageType, newW, newH, offX, offY int) (*tile.Manager, error) {
	tiles, err := tile.NewManager(newW, newH, t.Bytes())
	if err != nil {
		return nil, err
	}
	if t == l.dtype && !t.HasAlpha() {
		bg := make([]byte, t.Bytes())
		cfgBG := l.image.ctx.cfg.Background
		switch t.Base() {
		case RGB:
			bg[0], bg[1], bg[2] = cfgBG[0], cfgBG[1], cfgBG[2]
		case Gray:
			bg[0] = byte((int(cfgBG[0])*30 + int(cfgBG[1])*59 + int(cfgBG[2])*11) / 100)
		}
		r := tile.NewRegion(tiles, 0, 0, newW, newH, true)
		if err := tile.FillRegion(r, bg); err != nil {
			return nil, err
		}
	}

	cx1 := clampInt(offX, 0, newW)
	cy1 := clampInt(offY, 0, newH)
	cx2 := clampInt(offX+old.Width(), 0, newW)
	cy2 := clampInt(offY+old.Height(), 0, newH)
	if cx2 > cx1 && cy2 > cy1 {
		src := tile.NewRegion(old, cx1-offX, cy1-offY, cx2-cx1, cy2-cy1, false)
		dst := tile.NewRegion(tiles, cx1, cy1, cx2-cx1, cy2-cy1, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return nil, err
		}
	}
	return tiles, nil
}

// Translate moves the layer, its mask translating in lock-step. A
// displace record is pushed so the move undoes.
func (l *Layer) Translate(dx, dy int) {
	l.image.pushLayerDisplace(l)
	l.translateRaw(dx, dy)
}

// translateRaw moves offsets without touching undo.
func (l *Layer) translateRaw(dx, dy int) {
	l.offsetX += dx
	l.offsetY += dy
	if l.mask != nil {
		l.mask.offsetX = l.offsetX
		l.mask.offsetY = l.offsetY
	}
	if l.fs != nil {
		l.fs.invalidateBoundary()
	}
	l.invalidateBoundary()
	l.image.invalidateComposite()
}

// invalidateBoundary drops selection caches that depend on the layer's
// position.
func (l *Layer) invalidateBoundary() {
	l.image.selection.invalidateCaches()
	if l.fs != nil {
		l.fs.invalidateBoundary()
	}
}

// blendOptions assembles the compositor options for this layer over a
// destination of the given type.
func (l *Layer) blendOptions(dstType ImageType, opacity int) blend.CombineOptions {
	return blend.CombineOptions{
		Mode:          l.mode,
		Opacity:       opacity,
		SrcHasAlpha:   l.HasAlpha(),
		DstHasAlpha:   dstType.HasAlpha(),
		PreserveAlpha: false,
		Indexed:       dstType.Base() == Indexed,
	}
}
