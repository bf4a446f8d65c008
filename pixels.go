package pict

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gopaint/pict/tile"
)

// managerToNRGBA stages a manager's pixels into an NRGBA image, widening
// gray and expanding indexed pixels through the colormap. The staging
// image is the interchange format for the x/image resampling kernels.
func managerToNRGBA(m *tile.Manager, t ImageType, cmap []byte) (*image.NRGBA, error) {
	w, h := m.Width(), m.Height()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	bpp := t.Bytes()
	row := make([]byte, w*bpp)
	for y := 0; y < h; y++ {
		if err := m.GetRow(0, y, w, row); err != nil {
			return nil, err
		}
		oi := y * out.Stride
		si := 0
		for x := 0; x < w; x++ {
			var r, g, b, a byte
			a = 255
			switch t.Base() {
			case RGB:
				r, g, b = row[si], row[si+1], row[si+2]
			case Gray:
				r, g, b = row[si], row[si], row[si]
			default:
				ci := int(row[si]) * 3
				if cmap != nil && ci+2 < len(cmap) {
					r, g, b = cmap[ci], cmap[ci+1], cmap[ci+2]
				}
			}
			if t.HasAlpha() {
				a = row[si+bpp-1]
			}
			out.Pix[oi+0] = r
			out.Pix[oi+1] = g
			out.Pix[oi+2] = b
			out.Pix[oi+3] = a
			oi += 4
			si += bpp
		}
	}
	return out, nil
}

// nrgbaToManager narrows an NRGBA staging image back into a manager of
// the given pixel type. Indexed targets are not supported here; indexed
// resampling goes through the nearest-neighbor path instead.
func nrgbaToManager(src *image.NRGBA, t ImageType) (*tile.Manager, error) {
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	bpp := t.Bytes()
	m, err := tile.NewManager(w, h, bpp)
	if err != nil {
		return nil, err
	}
	row := make([]byte, w*bpp)
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := 0
		for x := 0; x < w; x++ {
			r, g, b, a := src.Pix[si], src.Pix[si+1], src.Pix[si+2], src.Pix[si+3]
			switch t.Base() {
			case RGB:
				row[di], row[di+1], row[di+2] = r, g, b
			case Gray:
				row[di] = byte((int(r)*30 + int(g)*59 + int(b)*11) / 100)
			default:
				row[di] = r
			}
			if t.HasAlpha() {
				row[di+bpp-1] = a
			}
			si += 4
			di += bpp
		}
		if err := m.PutRow(0, y, w, row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// resampleManager scales a manager to the new extent. Continuous-tone
// pixels go through the x/image bilinear kernel; indexed pixels are
// point-sampled so no foreign palette entries appear.
func resampleManager(m *tile.Manager, t ImageType, cmap []byte, newW, newH int) (*tile.Manager, error) {
	if t.Base() == Indexed {
		return resampleNearest(m, newW, newH)
	}
	stage, err := managerToNRGBA(m, t, cmap)
	if err != nil {
		return nil, err
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	xdraw.BiLinear.Scale(scaled, scaled.Rect, stage, stage.Rect, xdraw.Src, nil)
	return nrgbaToManager(scaled, t)
}

// resampleNearest point-samples a manager to the new extent, preserving
// exact byte values.
func resampleNearest(m *tile.Manager, newW, newH int) (*tile.Manager, error) {
	out, err := tile.NewManager(newW, newH, m.Bpp())
	if err != nil {
		return nil, err
	}
	bpp := m.Bpp()
	srcRow := make([]byte, m.Width()*bpp)
	dstRow := make([]byte, newW*bpp)
	for y := 0; y < newH; y++ {
		sy := y * m.Height() / newH
		if err := m.GetRow(0, sy, m.Width(), srcRow); err != nil {
			return nil, err
		}
		for x := 0; x < newW; x++ {
			sx := x * m.Width() / newW
			copy(dstRow[x*bpp:(x+1)*bpp], srcRow[sx*bpp:(sx+1)*bpp])
		}
		if err := out.PutRow(0, y, newW, dstRow); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// copyManager copies a whole manager's pixels into another of identical
// geometry.
func copyManager(src, dst *tile.Manager) error {
	s := tile.NewRegion(src, 0, 0, src.Width(), src.Height(), false)
	d := tile.NewRegion(dst, 0, 0, dst.Width(), dst.Height(), true)
	return tile.CopyRegion(s, d)
}

// cloneManager duplicates a manager, geometry and pixels.
func cloneManager(src *tile.Manager) (*tile.Manager, error) {
	dst, err := tile.NewManager(src.Width(), src.Height(), src.Bpp())
	if err != nil {
		return nil, err
	}
	if err := copyManager(src, dst); err != nil {
		return nil, err
	}
	x, y := src.Origin()
	dst.SetOrigin(x, y)
	return dst, nil
}

// resizeManager rebuilds a manager at a new extent with the old content
// shifted by (offX, offY); uncovered area stays zero.
func resizeManager(old *tile.Manager, bpp, newW, newH, offX, offY int) (*tile.Manager, error) {
	tiles, err := tile.NewManager(newW, newH, bpp)
	if err != nil {
		return nil, err
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

// convertRowTo expands one source row into the projection's layout
// (color plus alpha) for compositing.
func convertRowTo(dst []byte, dstType ImageType, src []byte, srcType ImageType, cmap []byte, w int) {
	sb := srcType.Bytes()
	db := dstType.Bytes()
	si, di := 0, 0
	for x := 0; x < w; x++ {
		var r, g, b byte
		a := byte(255)
		switch srcType.Base() {
		case RGB:
			r, g, b = src[si], src[si+1], src[si+2]
		case Gray:
			r, g, b = src[si], src[si], src[si]
		default:
			ci := int(src[si]) * 3
			if cmap != nil && ci+2 < len(cmap) {
				r, g, b = cmap[ci], cmap[ci+1], cmap[ci+2]
			}
		}
		if srcType.HasAlpha() {
			a = src[si+sb-1]
		}
		switch dstType.Base() {
		case RGB:
			dst[di], dst[di+1], dst[di+2] = r, g, b
		case Gray:
			dst[di] = byte((int(r)*30 + int(g)*59 + int(b)*11) / 100)
		default:
			dst[di] = src[si]
		}
		if dstType.HasAlpha() {
			dst[di+db-1] = a
		}
		si += sb
		di += db
	}
}
