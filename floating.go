package pict

import (
	"fmt"

	"github.com/gopaint/pict/internal/blend"
	"github.com/gopaint/pict/internal/boundary"
	"github.com/gopaint/pict/tile"
)

// FloatingSel glues a floating layer to an underlying drawable. The
// backing store preserves the target pixels the float obscures so they
// can be restored on relax or removal. The target reference is one-way:
// the image remains the authoritative owner of both parties.
type FloatingSel struct {
	target       AnyDrawable
	backingStore *tile.Manager

	// initial is true while the float has not been composited into the
	// target at its current position.
	initial bool

	segs          []boundary.Seg
	boundaryKnown bool
}

// Target returns the drawable the float is pasted into.
func (fs *FloatingSel) Target() AnyDrawable { return fs.target }

// Initial reports whether the float has not yet been composited at its
// current position.
func (fs *FloatingSel) Initial() bool { return fs.initial }

// BackingStore returns the manager holding the obscured target pixels.
func (fs *FloatingSel) BackingStore() *tile.Manager { return fs.backingStore }

func (fs *FloatingSel) invalidateBoundary() {
	fs.boundaryKnown = false
	if fs.target != nil {
		fs.target.Base().InvalidatePreview()
	}
}

// FloatingSelAttach pastes a layer as the floating selection over a
// drawable. An existing float is anchored first. The layer lands at the
// top of the layer list; the obscured target pixels are snapshotted
// immediately.
func (img *Image) FloatingSelAttach(l *Layer, target AnyDrawable) error {
	if img.floatingSel != nil {
		old := img.floatingSel
		prevTarget := old.fs.target
		if err := img.FloatingSelAnchor(old); err != nil {
			return err
		}
		// Pasting onto the anchored float redirects to its target.
		if target == AnyDrawable(old) {
			target = prevTarget
		}
	}

	tb := target.Base()
	store, err := tile.NewManager(l.width, l.height, tb.Bytes())
	if err != nil {
		return err
	}
	l.preserveAlpha = true
	l.fs = &FloatingSel{
		target:       target,
		backingStore: store,
		initial:      true,
	}
	img.floatingSel = l
	if err := img.AddLayer(l, 0); err != nil {
		l.fs = nil
		img.floatingSel = nil
		return err
	}
	l.fs.rigor(l, true)
	return nil
}

// FloatingSelRemove detaches the float without compositing: the target
// is restored bit-for-bit to its pre-attach pixels.
func (img *Image) FloatingSelRemove(l *Layer) error {
	if l.fs == nil {
		return fmt.Errorf("%w: layer %q is not a floating selection", ErrIllegalState, l.name)
	}
	l.fs.relax(l, true)
	l.fs.target.Base().InvalidatePreview()
	return img.RemoveLayer(l)
}

// FloatingSelAnchor composites the float into its target once and
// removes it, inside one undo group.
func (img *Image) FloatingSelAnchor(l *Layer) error {
	if l.fs == nil {
		return fmt.Errorf("%w: layer %q is not a floating selection", ErrIllegalState, l.name)
	}
	img.PushGroupStart(UndoGroupFSAnchor)
	l.fs.relax(l, true)
	l.fs.composite(l, l.offsetX, l.offsetY, l.width, l.height, true)
	err := img.RemoveLayer(l)
	img.PushGroupEnd()
	if err != nil {
		return err
	}
	img.selection.invalidateCaches()
	img.invalidateComposite()
	return nil
}

// FloatingSelToLayer promotes the float to an ordinary layer. Floats
// attached to a channel or layer mask cannot be promoted.
func (img *Image) FloatingSelToLayer(l *Layer) error {
	if l.fs == nil {
		return fmt.Errorf("%w: layer %q is not a floating selection", ErrIllegalState, l.name)
	}
	if l.fs.target.Base().kind != KindLayer {
		return fmt.Errorf("%w: floating selection belongs to a layer mask or channel", ErrTypeMismatch)
	}

	fs := l.fs
	fs.restore(l, l.offsetX, l.offsetY, l.width, l.height)
	l.InvalidatePreview()

	img.pushFSToLayer(l, fs.target, fs)

	l.invalidateBoundary()
	l.fs = nil
	img.floatingSel = nil
	l.Update(0, 0, l.width, l.height)
	img.invalidateComposite()
	return nil
}

// FloatingSelRigor re-snapshots the obscured target pixels.
func (img *Image) FloatingSelRigor(l *Layer, pushUndo bool) error {
	if l.fs == nil {
		return fmt.Errorf("%w: layer %q is not a floating selection", ErrIllegalState, l.name)
	}
	l.fs.rigor(l, pushUndo)
	return nil
}

// FloatingSelRelax restores the obscured target pixels.
func (img *Image) FloatingSelRelax(l *Layer, pushUndo bool) error {
	if l.fs == nil {
		return fmt.Errorf("%w: layer %q is not a floating selection", ErrIllegalState, l.name)
	}
	l.fs.relax(l, pushUndo)
	return nil
}

// clipToTarget intersects a float-space rectangle with the overlap of
// float and target, in image space.
func (fs *FloatingSel) clipToTarget(l *Layer, x, y, w, h int) (x1, y1, x2, y2 int) {
	tb := fs.target.Base()
	offX, offY := tb.offsetX, tb.offsetY
	x1 = maxInt(l.offsetX, offX)
	y1 = maxInt(l.offsetY, offY)
	x2 = minInt(l.offsetX+l.width, offX+tb.width)
	y2 = minInt(l.offsetY+l.height, offY+tb.height)

	x1 = clampInt(x, x1, x2)
	y1 = clampInt(y, y1, y2)
	x2 = clampInt(x+w, x1, x2)
	y2 = clampInt(y+h, y1, y2)
	return x1, y1, x2, y2
}

// store saves the target pixels the float obscures over the rectangle
// (image space origin at the float's offsets).
func (fs *FloatingSel) store(l *Layer, x, y, w, h int) {
	tb := fs.target.Base()
	if fs.backingStore.Width() != l.width || fs.backingStore.Height() != l.height ||
		fs.backingStore.Bpp() != tb.Bytes() {
		store, err := tile.NewManager(l.width, l.height, tb.Bytes())
		if err != nil {
			return
		}
		fs.backingStore = store
	}

	x1, y1, x2, y2 := fs.clipToTarget(l, x, y, w, h)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	src := tile.NewRegion(tb.tiles, x1-tb.offsetX, y1-tb.offsetY, x2-x1, y2-y1, false)
	dst := tile.NewRegion(fs.backingStore, x1-l.offsetX, y1-l.offsetY, x2-x1, y2-y1, true)
	_ = tile.CopyRegion(src, dst)
}

// restore uncovers the rectangle: the backing store's pixels return to
// the target.
func (fs *FloatingSel) restore(l *Layer, x, y, w, h int) {
	tb := fs.target.Base()
	x1, y1, x2, y2 := fs.clipToTarget(l, x, y, w, h)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	src := tile.NewRegion(fs.backingStore, x1-l.offsetX, y1-l.offsetY, x2-x1, y2-y1, false)
	dst := tile.NewRegion(tb.tiles, x1-tb.offsetX, y1-tb.offsetY, x2-x1, y2-y1, true)
	_ = tile.CopyRegion(src, dst)
	tb.Update(x1-tb.offsetX, y1-tb.offsetY, x2-x1, y2-y1)
}

// rigor snapshots the obscured area and marks the float initial.
func (fs *FloatingSel) rigor(l *Layer, pushUndo bool) {
	fs.store(l, l.offsetX, l.offsetY, l.width, l.height)
	fs.initial = true
	if pushUndo {
		l.image.pushFSRigor(l)
	}
}

// relax restores the obscured area and marks the float initial.
func (fs *FloatingSel) relax(l *Layer, pushUndo bool) {
	if !fs.initial {
		fs.restore(l, l.offsetX, l.offsetY, l.width, l.height)
	}
	fs.initial = true
	if pushUndo {
		l.image.pushFSRelax(l)
	}
}

// composite blends the float over the target rectangle. The target's
// preserve-alpha is bypassed and no channel mask applies: the float is
// not subject to user channel edits.
func (fs *FloatingSel) composite(l *Layer, x, y, w, h int, pushUndo bool) {
	if !fs.initial {
		fs.restore(l, x, y, w, h)
	} else if l.visible {
		fs.initial = false
	}
	if !l.visible {
		return
	}

	x1, y1, x2, y2 := fs.clipToTarget(l, x, y, w, h)
	if x2 <= x1 || y2 <= y1 {
		return
	}

	tb := fs.target.Base()
	if pushUndo {
		l.image.PushImageUndo(fs.target, x1-tb.offsetX, y1-tb.offsetY, x2-tb.offsetX, y2-tb.offsetY)
	}

	// Re-snapshot what is about to be obscured, then blend.
	fs.store(l, x1, y1, x2-x1, y2-y1)

	src := tile.NewRegion(l.tiles, x1-l.offsetX, y1-l.offsetY, x2-x1, y2-y1, false)
	dst := tile.NewRegion(tb.tiles, x1-tb.offsetX, y1-tb.offsetY, x2-x1, y2-y1, true)
	_ = blend.CombineRegions(src, dst, nil, l.blendOptions(tb.dtype, l.opacity))
	tb.Update(x1-tb.offsetX, y1-tb.offsetY, x2-x1, y2-y1)
}

// Boundary returns the float's outline, traced from its alpha channel
// and offset into image space.
func (fs *FloatingSel) Boundary(l *Layer) ([]boundary.Seg, error) {
	if fs.boundaryKnown {
		return fs.segs, nil
	}
	mask, err := tile.NewManager(l.width, l.height, 1)
	if err != nil {
		return nil, err
	}
	if l.HasAlpha() {
		src := l.region(0, 0, l.width, l.height, false)
		dst := tile.NewRegion(mask, 0, 0, l.width, l.height, true)
		if err := tile.ExtractAlphaRegion(src, nil, dst); err != nil {
			return nil, err
		}
	} else {
		r := tile.NewRegion(mask, 0, 0, l.width, l.height, true)
		if err := tile.FillRegion(r, []byte{255}); err != nil {
			return nil, err
		}
	}
	segs, err := boundary.Find(mask, boundary.WithinBounds, 0, 0, l.width, l.height)
	if err != nil {
		return nil, err
	}
	for i := range segs {
		segs[i].X1 += l.offsetX
		segs[i].Y1 += l.offsetY
		segs[i].X2 += l.offsetX
		segs[i].Y2 += l.offsetY
	}
	fs.segs = segs
	fs.boundaryKnown = true
	return segs, nil
}
