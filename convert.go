package pict

import (
	"fmt"

	"github.com/gopaint/pict/internal/quant"
	"github.com/gopaint/pict/tile"
)

// ConvertToRGB converts the image and every layer to the RGB base type.
func (img *Image) ConvertToRGB() error {
	return img.convertBaseType(RGB, false, 0, MakePalette, nil)
}

// ConvertToGrayscale converts the image and every layer to grayscale.
func (img *Image) ConvertToGrayscale() error {
	return img.convertBaseType(Gray, false, 0, MakePalette, nil)
}

// ConvertToIndexed quantizes the image to an indexed colormap built by
// median cut with at most numCols entries, optionally error-diffused.
func (img *Image) ConvertToIndexed(dither bool, numCols int) error {
	return img.convertBaseType(Indexed, dither, numCols, MakePalette, nil)
}

// ConvertToIndexedPalette quantizes the image with an explicit palette
// source: generated, reused, the web cube, exact mono, or a custom
// palette supplied by the caller.
func (img *Image) ConvertToIndexedPalette(dither bool, ptype PaletteType, numCols int, custom [][3]byte) error {
	return img.convertBaseType(Indexed, dither, numCols, ptype, custom)
}

// convertBaseType drives a base-type change inside one undo group.
func (img *Image) convertBaseType(newBase BaseType, dither bool, numCols int, ptype PaletteType, custom [][3]byte) error {
	if !newBase.Valid() {
		return fmt.Errorf("%w: base type %d", ErrInvalidArgument, int(newBase))
	}
	if newBase == img.baseType {
		return fmt.Errorf("%w: image is already %v", ErrInvalidArgument, img.baseType)
	}
	if newBase == Indexed {
		if numCols < 1 || numCols > quant.MaxColors {
			return fmt.Errorf("%w: palette size %d", ErrInvalidArgument, numCols)
		}
	}

	floating := img.floatingSel
	img.PushGroupStart(UndoGroupImageConvert)
	defer img.PushGroupEnd()

	if floating != nil {
		floating.fs.relax(floating, true)
	}

	img.pushImageMod()
	oldBase := img.baseType
	oldCmap := img.cmap
	img.baseType = newBase

	var err error
	switch newBase {
	case RGB, Gray:
		err = img.convertLayersDirect(newBase, oldCmap)
		img.cmap = nil
		img.numCols = 0
	case Indexed:
		// A grayscale source mapping every value needs no dithering.
		if oldBase == Gray && numCols == 256 && ptype == MakePalette {
			dither = false
		}
		err = img.convertLayersIndexed(oldBase, oldCmap, dither, numCols, ptype, custom)
	}
	if err != nil {
		return err
	}

	if floating != nil {
		floating.fs.rigor(floating, true)
	}
	img.invalidateComposite()
	return nil
}

// convertLayersDirect rewrites every layer into the new continuous-tone
// base type.
func (img *Image) convertLayersDirect(newBase BaseType, oldCmap []byte) error {
	for _, l := range img.layers {
		newType := typeForBase(newBase, l.HasAlpha())
		tiles, err := tile.NewManager(l.width, l.height, newType.Bytes())
		if err != nil {
			return err
		}
		srcRow := make([]byte, l.width*l.Bytes())
		dstRow := make([]byte, l.width*newType.Bytes())
		for y := 0; y < l.height; y++ {
			if err := l.tiles.GetRow(0, y, l.width, srcRow); err != nil {
				return err
			}
			convertRowTo(dstRow, newType, srcRow, l.dtype, oldCmap, l.width)
			if err := tiles.PutRow(0, y, l.width, dstRow); err != nil {
				return err
			}
		}
		img.pushLayerMod(l)
		l.tiles = tiles
		l.dtype = newType
		l.previewValid = false
	}
	return nil
}

// convertLayersIndexed builds the palette (pass 1) and remaps every
// layer through the inverse colormap (pass 2).
func (img *Image) convertLayersIndexed(oldBase BaseType, oldCmap []byte, dither bool, numCols int, ptype PaletteType, custom [][3]byte) error {
	var cmap []quant.Color
	grayPath := oldBase == Gray && ptype == MakePalette
	exact := false

	switch ptype {
	case MakePalette:
		if grayPath {
			var hist quant.GrayHistogram
			for _, l := range img.layers {
				if err := accumulateGrayHistogram(&hist, l); err != nil {
					return err
				}
			}
			cmap = quant.SelectGray(&hist, numCols)
		} else {
			hist := quant.NewRGBHistogram()
			set := quant.NewColorSet(numCols)
			for _, l := range img.layers {
				if err := accumulateRGBHistogram(hist, set, l, oldCmap); err != nil {
					return err
				}
			}
			if !set.Overflowed() {
				// Fast path: the image holds no more colors than asked
				// for; the palette is exactly the colors present and no
				// error needs spreading.
				cmap = set.Colors()
				exact = true
				dither = false
			} else {
				cmap = quant.SelectRGB(hist, numCols)
			}
		}
	case ReusePalette:
		if len(oldCmap) == 0 {
			return fmt.Errorf("%w: no colormap to reuse", ErrIllegalState)
		}
		cmap = bytesToPalette(oldCmap)
	case WebPalette:
		cmap = quant.WebPalette()
	case MonoPalette:
		cmap = quant.MonoPalette()
	case CustomPalette:
		colors := make([]quant.Color, len(custom))
		for i, c := range custom {
			colors[i] = quant.Color{R: c[0], G: c[1], B: c[2]}
		}
		validated, err := quant.CustomPalette(colors)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		cmap = validated
	default:
		return fmt.Errorf("%w: palette type %d", ErrInvalidArgument, int(ptype))
	}

	img.cmap = paletteToBytes(cmap)
	img.numCols = len(cmap)

	for _, l := range img.layers {
		if err := img.remapLayer(l, cmap, oldCmap, grayPath, exact, dither); err != nil {
			return err
		}
	}
	return nil
}

// remapLayer rewrites one layer's pixels as palette indices.
func (img *Image) remapLayer(l *Layer, cmap []quant.Color, oldCmap []byte, grayPath, exact, dither bool) error {
	newType := IndexedImage
	if l.HasAlpha() {
		newType = IndexedAImage
	}
	tiles, err := tile.NewManager(l.width, l.height, newType.Bytes())
	if err != nil {
		return err
	}

	// Indexed sources walk through expanded RGB rows so the remap sees
	// real colors.
	srcBytes := l.Bytes()
	expand := l.dtype.Base() == Indexed
	expType := typeForBase(RGB, l.HasAlpha())
	raw := make([]byte, l.width*srcBytes)
	get := func(y int, buf []byte) error {
		if !expand {
			return l.tiles.GetRow(0, y, l.width, buf)
		}
		if err := l.tiles.GetRow(0, y, l.width, raw); err != nil {
			return err
		}
		convertRowTo(buf, expType, raw, l.dtype, oldCmap, l.width)
		return nil
	}
	put := func(y int, buf []byte) error {
		return tiles.PutRow(0, y, l.width, buf)
	}

	effSrcBytes := srcBytes
	if expand {
		effSrcBytes = expType.Bytes()
	}

	switch {
	case exact:
		em := quant.NewExactMatcher(cmap)
		err = quant.RemapRowsExact(em, l.width, l.height, effSrcBytes, newType.Bytes(), l.HasAlpha(), get, put)
	case dither:
		rm := quant.NewRemapper(cmap, grayPath)
		err = quant.DitherRows(rm, l.width, l.height, effSrcBytes, newType.Bytes(), l.HasAlpha(), get, put)
	default:
		rm := quant.NewRemapper(cmap, grayPath)
		err = quant.RemapRows(rm, l.width, l.height, effSrcBytes, newType.Bytes(), l.HasAlpha(), get, put)
	}
	if err != nil {
		return err
	}

	img.pushLayerMod(l)
	l.tiles = tiles
	l.dtype = newType
	l.previewValid = false
	return nil
}

// accumulateGrayHistogram folds a layer's intensities into a histogram,
// skipping transparent pixels.
func accumulateGrayHistogram(h *quant.GrayHistogram, l *Layer) error {
	bpp := l.Bytes()
	hasAlpha := l.HasAlpha()
	row := make([]byte, l.width*bpp)
	for y := 0; y < l.height; y++ {
		if err := l.tiles.GetRow(0, y, l.width, row); err != nil {
			return err
		}
		for x := 0; x < l.width; x++ {
			i := x * bpp
			if hasAlpha && row[i+bpp-1] <= quant.AlphaThreshold {
				continue
			}
			h.Add(row[i])
		}
	}
	return nil
}

// accumulateRGBHistogram folds a layer's colors into a histogram and
// the distinct-color set, skipping transparent pixels. Gray and indexed
// layers contribute through expansion.
func accumulateRGBHistogram(h quant.RGBHistogram, set *quant.ColorSet, l *Layer, oldCmap []byte) error {
	bpp := l.Bytes()
	hasAlpha := l.HasAlpha()
	row := make([]byte, l.width*bpp)
	for y := 0; y < l.height; y++ {
		if err := l.tiles.GetRow(0, y, l.width, row); err != nil {
			return err
		}
		for x := 0; x < l.width; x++ {
			i := x * bpp
			if hasAlpha && row[i+bpp-1] <= quant.AlphaThreshold {
				continue
			}
			var r, g, b byte
			switch l.dtype.Base() {
			case RGB:
				r, g, b = row[i], row[i+1], row[i+2]
			case Gray:
				r, g, b = row[i], row[i], row[i]
			default:
				ci := int(row[i]) * 3
				if oldCmap != nil && ci+2 < len(oldCmap) {
					r, g, b = oldCmap[ci], oldCmap[ci+1], oldCmap[ci+2]
				}
			}
			h.Add(r, g, b)
			set.Add(r, g, b)
		}
	}
	return nil
}

// paletteToBytes flattens a palette into colormap bytes.
func paletteToBytes(cmap []quant.Color) []byte {
	out := make([]byte, 0, len(cmap)*3)
	for _, c := range cmap {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// bytesToPalette parses colormap bytes into a palette.
func bytesToPalette(b []byte) []quant.Color {
	out := make([]quant.Color, 0, len(b)/3)
	for i := 0; i+2 < len(b); i += 3 {
		out = append(out, quant.Color{R: b[i], G: b[i+1], B: b[i+2]})
	}
	return out
}
