package pict

import (
	"github.com/gopaint/pict/internal/blend"
	"github.com/gopaint/pict/tile"
)

// ProjectionType returns the pixel layout the image projects to:
// GRAYA for grayscale images, RGBA otherwise (indexed layers expand
// through the colormap).
func (img *Image) ProjectionType() ImageType {
	if img.baseType == Gray {
		return GrayAImage
	}
	return RGBAImage
}

// Projection composites the visible layers bottom-up into a render
// target, honoring each layer's opacity, mode and (when applied) mask.
// The selection channel is an observable overlay for display layers and
// does not participate. The result is cached until the next visible
// mutation.
func (img *Image) Projection() (*tile.Manager, error) {
	if img.projValid && img.projection != nil {
		return img.projection, nil
	}

	projType := img.ProjectionType()
	proj, err := tile.NewManager(img.width, img.height, projType.Bytes())
	if err != nil {
		return nil, err
	}

	for i := len(img.layers) - 1; i >= 0; i-- {
		l := img.layers[i]
		if !l.visible {
			continue
		}
		if err := img.projectLayer(proj, projType, l); err != nil {
			return nil, err
		}
	}

	img.projection = proj
	img.projValid = true
	return proj, nil
}

// projectLayer blends one layer into a composition target of the given
// layout.
func (img *Image) projectLayer(proj *tile.Manager, projType ImageType, l *Layer) error {
	x1 := clampInt(l.offsetX, 0, img.width)
	y1 := clampInt(l.offsetY, 0, img.height)
	x2 := clampInt(l.offsetX+l.width, 0, img.width)
	y2 := clampInt(l.offsetY+l.height, 0, img.height)
	w, h := x2-x1, y2-y1
	if w <= 0 || h <= 0 {
		return nil
	}

	// Stage the layer's intersecting rectangle in projection layout.
	stage, err := tile.NewManager(w, h, projType.Bytes())
	if err != nil {
		return err
	}
	srcRow := make([]byte, w*l.Bytes())
	dstRow := make([]byte, w*projType.Bytes())
	for y := 0; y < h; y++ {
		if err := l.tiles.GetRow(x1-l.offsetX, y1-l.offsetY+y, w, srcRow); err != nil {
			return err
		}
		convertRowTo(dstRow, projType, srcRow, l.dtype, img.cmap, w)
		if err := stage.PutRow(0, y, w, dstRow); err != nil {
			return err
		}
	}

	src := tile.NewRegion(stage, 0, 0, w, h, false)
	dst := tile.NewRegion(proj, x1, y1, w, h, true)
	var mask *tile.Region
	if l.applyMask && l.mask != nil {
		mask = l.mask.region(x1-l.offsetX, y1-l.offsetY, w, h, false)
	}

	opts := blend.CombineOptions{
		Mode:        l.mode,
		Opacity:     l.opacity,
		SrcHasAlpha: true,
		DstHasAlpha: true,
		Indexed:     projType.Base() == Indexed,
	}
	return blend.CombineRegions(src, dst, mask, opts)
}

// MergeVisible composites the visible layers into one layer, leaving
// invisible layers in place.
func (img *Image) MergeVisible() (*Layer, error) {
	img.PushGroupStart(UndoGroupMisc)
	defer img.PushGroupEnd()

	if img.floatingSel != nil {
		if err := img.FloatingSelAnchor(img.floatingSel); err != nil {
			return nil, err
		}
	}

	t := typeForBase(img.baseType, true)
	merged, err := newLayer(img, img.width, img.height, t, "Merged Layer", OpaqueOpacity, NormalMode)
	if err != nil {
		return nil, err
	}
	pos := len(img.layers)
	for i := len(img.layers) - 1; i >= 0; i-- {
		l := img.layers[i]
		if !l.visible {
			continue
		}
		if err := img.projectLayer(merged.tiles, t, l); err != nil {
			return nil, err
		}
		pos = i
	}
	for i := len(img.layers) - 1; i >= 0; i-- {
		l := img.layers[i]
		if !l.visible {
			continue
		}
		if err := img.RemoveLayer(l); err != nil {
			return nil, err
		}
	}
	if pos > len(img.layers) {
		pos = len(img.layers)
	}
	if err := img.AddLayer(merged, pos); err != nil {
		return nil, err
	}
	img.invalidateComposite()
	return merged, nil
}

// Flatten composites the visible layers into a single layer that
// replaces the whole layer list. The layer has the base type's alpha
// variant and is not filled first: pixels no visible layer covers stay
// transparent. Indexed images flatten in index space so no foreign
// colors appear.
func (img *Image) Flatten() (*Layer, error) {
	img.PushGroupStart(UndoGroupMisc)
	defer img.PushGroupEnd()

	if img.floatingSel != nil {
		if err := img.FloatingSelAnchor(img.floatingSel); err != nil {
			return nil, err
		}
	}

	t := typeForBase(img.baseType, true)
	flat, err := newLayer(img, img.width, img.height, t, "Background", OpaqueOpacity, NormalMode)
	if err != nil {
		return nil, err
	}
	for i := len(img.layers) - 1; i >= 0; i-- {
		l := img.layers[i]
		if !l.visible {
			continue
		}
		if err := img.projectLayer(flat.tiles, t, l); err != nil {
			return nil, err
		}
	}

	for len(img.layers) > 0 {
		if err := img.RemoveLayer(img.layers[0]); err != nil {
			return nil, err
		}
	}
	if err := img.AddLayer(flat, 0); err != nil {
		return nil, err
	}
	img.invalidateComposite()
	return flat, nil
}
