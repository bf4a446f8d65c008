package pict

import (
	"fmt"

	"github.com/gopaint/pict/internal/boundary"
	"github.com/gopaint/pict/tile"
)

// Selection operations on the image's distinguished mask channel. Each
// mutator snapshots the mask for undo before changing it; the channel
// primitives themselves stay undo-free so saved channels can reuse
// them.

// MaskBoundary returns the selection outline. While a floating
// selection exists its own outline is the displayed selection.
func (img *Image) MaskBoundary() (segsIn, segsOut []boundary.Seg, err error) {
	if img.floatingSel != nil {
		segs, fErr := img.floatingSel.fs.Boundary(img.floatingSel)
		return segs, nil, fErr
	}
	return img.selection.Boundary(0, 0, img.width, img.height)
}

// MaskBounds returns the selection's bounding rectangle; the boolean is
// false for an empty selection.
func (img *Image) MaskBounds() (x1, y1, x2, y2 int, nonEmpty bool) {
	return img.selection.Bounds()
}

// MaskValue returns the selection value at (x, y).
func (img *Image) MaskValue(x, y int) int { return img.selection.Value(x, y) }

// MaskIsEmpty reports whether nothing is selected.
func (img *Image) MaskIsEmpty() bool { return img.selection.IsEmpty() }

// MaskInvalidate drops the selection caches.
func (img *Image) MaskInvalidate() { img.selection.invalidateCaches() }

// MaskUndo snapshots the current selection so the next undo restores
// it.
func (img *Image) MaskUndo() { img.PushMaskUndo(img.selection) }

// MaskTranslate shifts the selection contents.
func (img *Image) MaskTranslate(offX, offY int) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Translate(offX, offY)
}

// MaskClear empties the selection.
func (img *Image) MaskClear() error {
	img.PushMaskUndo(img.selection)
	return img.selection.Clear()
}

// MaskNone empties the selection.
func (img *Image) MaskNone() error { return img.MaskClear() }

// MaskAll selects everything.
func (img *Image) MaskAll() error {
	img.PushMaskUndo(img.selection)
	return img.selection.All()
}

// MaskInvert inverts the selection.
func (img *Image) MaskInvert() error {
	img.PushMaskUndo(img.selection)
	return img.selection.Invert()
}

// MaskSharpen hardens antialiased selection edges to full coverage.
func (img *Image) MaskSharpen() error {
	img.PushMaskUndo(img.selection)
	return img.selection.Sharpen()
}

// MaskFeather gaussian-blurs the selection edge.
func (img *Image) MaskFeather(radius float64) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Feather(radius)
}

// MaskBorder turns the selection into a band around its boundary.
func (img *Image) MaskBorder(radius int) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Border(radius)
}

// MaskGrow fattens the selection.
func (img *Image) MaskGrow(radius int) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Grow(radius)
}

// MaskShrink thins the selection.
func (img *Image) MaskShrink(radius int) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Shrink(radius)
}

// MaskLayerAlpha loads the selection from a layer's alpha channel.
func (img *Image) MaskLayerAlpha(l *Layer) error {
	if !l.HasAlpha() {
		return fmt.Errorf("%w: layer %q has no alpha channel", ErrTypeMismatch, l.name)
	}
	img.PushMaskUndo(img.selection)
	return img.selection.LayerAlpha(l)
}

// MaskLayerMask loads the selection from a layer's mask over the
// layer's footprint.
func (img *Image) MaskLayerMask(l *Layer) error {
	if l.mask == nil {
		return fmt.Errorf("%w: layer %q has no mask", ErrIllegalState, l.name)
	}
	img.PushMaskUndo(img.selection)

	sel := img.selection
	if err := sel.fill([]byte{0}); err != nil {
		return err
	}
	x1 := clampInt(l.offsetX, 0, sel.width)
	y1 := clampInt(l.offsetY, 0, sel.height)
	x2 := clampInt(l.offsetX+l.width, 0, sel.width)
	y2 := clampInt(l.offsetY+l.height, 0, sel.height)
	if x2 > x1 && y2 > y1 {
		src := l.mask.region(x1-l.offsetX, y1-l.offsetY, x2-x1, y2-y1, false)
		dst := sel.region(x1, y1, x2-x1, y2-y1, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return err
		}
	}
	sel.invalidateCaches()
	return nil
}

// MaskLoad replaces the selection with a saved channel's contents.
func (img *Image) MaskLoad(ch *Channel) error {
	img.PushMaskUndo(img.selection)
	return img.selection.Load(ch)
}

// MaskSave copies the selection into a new channel at the bottom of the
// channel list. Saved selections start invisible.
func (img *Image) MaskSave() (*Channel, error) {
	ch, err := img.selection.Copy()
	if err != nil {
		return nil, err
	}
	ch.SetName("Selection Mask copy")
	ch.visible = false
	if err := img.AddChannel(ch, len(img.channels)); err != nil {
		return nil, err
	}
	return ch, nil
}

// MaskExtract pulls the selected pixels of a drawable into a fresh tile
// manager whose origin records the cut's image-space position. The
// result carries an alpha byte: RGBA for RGB-family sources, GRAYA for
// gray, INDEXEDA when keepIndexed is set (RGBA otherwise).
//
// With cut, the selected coverage is removed from the drawable (inside
// a pixel undo), and an entirely-cut layer is removed from the image.
// With no active selection the whole drawable extracts; a selection
// that misses the drawable entirely is an EmptyRegion error.
func (img *Image) MaskExtract(d AnyDrawable, cut, keepIndexed bool) (*tile.Manager, error) {
	return img.maskExtract(d, cut, keepIndexed, true)
}

// maskExtract implements MaskExtract; clearSel controls whether a cut
// also empties the selection (mask-float keeps it).
func (img *Image) maskExtract(d AnyDrawable, cut, keepIndexed, clearSel bool) (*tile.Manager, error) {
	base := d.Base()
	x1, y1, x2, y2, nonEmpty := base.MaskBounds()
	if nonEmpty && (x2-x1 <= 0 || y2-y1 <= 0) {
		return nil, fmt.Errorf("%w: selection does not intersect the drawable", ErrEmptyRegion)
	}

	var bytes int
	dstIndexed := false
	switch base.dtype.Base() {
	case RGB:
		bytes = 4
	case Gray:
		bytes = 2
	default:
		if keepIndexed {
			bytes = 2
			dstIndexed = true
		} else {
			bytes = 4
		}
	}

	if cut && nonEmpty {
		img.PushImageUndo(d, x1, y1, x2, y2)
	}

	w, h := x2-x1, y2-y1
	tiles, err := tile.NewManager(w, h, bytes)
	if err != nil {
		return nil, err
	}
	tiles.SetOrigin(x1+base.offsetX, y1+base.offsetY)

	src := tile.NewRegion(base.tiles, x1, y1, w, h, cut)
	dst := tile.NewRegion(tiles, 0, 0, w, h, true)

	bg := img.backgroundFor(base.dtype)

	if nonEmpty {
		mask := img.selection.region(x1+base.offsetX, y1+base.offsetY, w, h, false)
		err = tile.ExtractFromRegion(src, dst, mask, img.cmap, bg, dstIndexed, base.HasAlpha(), cut)
		if err != nil {
			return nil, err
		}
		if cut {
			if clearSel {
				img.PushMaskUndo(img.selection)
				if cErr := img.selection.Clear(); cErr != nil {
					return nil, cErr
				}
			}
			base.Update(x1, y1, w, h)
			img.invalidateComposite()
		}
	} else {
		switch {
		case base.dtype.Base() == Indexed && !keepIndexed:
			err = tile.ExtractFromRegion(src, dst, nil, img.cmap, bg, false, base.HasAlpha(), false)
		case bytes > base.Bytes():
			err = tile.AddAlphaRegion(src, dst)
		default:
			err = tile.CopyRegion(src, dst)
		}
		if err != nil {
			return nil, err
		}
		if cut {
			if err := img.removeCutDrawable(d); err != nil {
				return nil, err
			}
		}
	}
	return tiles, nil
}

// removeCutDrawable drops a fully-cut drawable from the image.
func (img *Image) removeCutDrawable(d AnyDrawable) error {
	switch v := d.(type) {
	case *Layer:
		if v.IsFloatingSel() {
			return img.FloatingSelRemove(v)
		}
		return img.RemoveLayer(v)
	case *LayerMask:
		return v.layer.RemoveMask(DiscardMask)
	case *Channel:
		if v == img.selection {
			return nil
		}
		return img.RemoveChannel(v)
	}
	return nil
}

// backgroundFor builds a background fill pixel for a drawable type.
func (img *Image) backgroundFor(t ImageType) []byte {
	bg := make([]byte, 4)
	cfgBG := img.ctx.cfg.Background
	switch t.Base() {
	case RGB:
		bg[0], bg[1], bg[2] = cfgBG[0], cfgBG[1], cfgBG[2]
	case Gray:
		bg[0] = byte((int(cfgBG[0])*30 + int(cfgBG[1])*59 + int(cfgBG[2])*11) / 100)
	default:
		bg[0] = 0
	}
	bg[t.Bytes()-1] = OpaqueOpacity
	return bg[:t.Bytes()]
}

// MaskFloat cuts the selection out of a drawable into a fresh floating
// selection attached to it, leaving the selection channel itself
// unchanged: the float's outline becomes the displayed selection.
func (img *Image) MaskFloat(d AnyDrawable, offX, offY int) (*Layer, error) {
	img.PushGroupStart(UndoGroupFloatMask)
	defer img.PushGroupEnd()

	tiles, err := img.maskExtract(d, true, img.baseType == Indexed, false)
	if err != nil {
		return nil, err
	}

	t := typeForBase(img.baseType, true)
	ox, oy := tiles.Origin()
	tiles.SetOrigin(ox+offX, oy+offY)
	layer, err := newLayerFromTiles(img, tiles, t, "Floated Layer", OpaqueOpacity, NormalMode)
	if err != nil {
		return nil, err
	}
	if err := img.FloatingSelAttach(layer, d); err != nil {
		return nil, err
	}
	return layer, nil
}

// MaskStroke hands the selection outline to a painter callback, which
// tool layers use to stroke along the selection with the active paint
// tool. An empty selection cannot be stroked.
func (img *Image) MaskStroke(d AnyDrawable, paint func(segs []boundary.Seg) error) error {
	segsIn, segsOut, err := img.MaskBoundary()
	if err != nil {
		return err
	}
	if len(segsIn) == 0 && len(segsOut) == 0 {
		return fmt.Errorf("%w: no selection to stroke", ErrEmptyRegion)
	}
	if paint == nil {
		return fmt.Errorf("%w: no painter supplied", ErrInvalidArgument)
	}
	return paint(append(append([]boundary.Seg(nil), segsIn...), segsOut...))
}
