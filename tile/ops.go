package tile

import "fmt"

// CopyRegion copies src into dst. The regions must share dimensions and
// bytes per pixel.
func CopyRegion(src, dst *Region) error {
	if src.Bytes != dst.Bytes {
		return fmt.Errorf("%w: bpp %d vs %d", ErrRegionMismatch, src.Bytes, dst.Bytes)
	}
	it, err := Iterate(src, dst)
	if err != nil {
		return err
	}
	for it.Next() {
		n := src.W * src.Bytes
		s, d := src.Data, dst.Data
		for y := 0; y < src.H; y++ {
			copy(d[:n], s[:n])
			if y+1 < src.H {
				s = s[src.Rowstride:]
				d = d[dst.Rowstride:]
			}
		}
	}
	return nil
}

// SwapRegion exchanges the pixels of a and b. The regions must share
// dimensions and bytes per pixel.
func SwapRegion(a, b *Region) error {
	if a.Bytes != b.Bytes {
		return fmt.Errorf("%w: bpp %d vs %d", ErrRegionMismatch, a.Bytes, b.Bytes)
	}
	it, err := Iterate(a, b)
	if err != nil {
		return err
	}
	for it.Next() {
		n := a.W * a.Bytes
		pa, pb := a.Data, b.Data
		for y := 0; y < a.H; y++ {
			for i := 0; i < n; i++ {
				pa[i], pb[i] = pb[i], pa[i]
			}
			if y+1 < a.H {
				pa = pa[a.Rowstride:]
				pb = pb[b.Rowstride:]
			}
		}
	}
	return nil
}

// FillRegion sets every pixel of r to the given pixel value. Only the
// first r.Bytes bytes of pixel are used.
func FillRegion(r *Region, pixel []byte) error {
	it, err := Iterate(r)
	if err != nil {
		return err
	}
	for it.Next() {
		d := r.Data
		for y := 0; y < r.H; y++ {
			row := d[:r.W*r.Bytes]
			for x := 0; x < r.W; x++ {
				copy(row[x*r.Bytes:], pixel[:r.Bytes])
			}
			if y+1 < r.H {
				d = d[r.Rowstride:]
			}
		}
	}
	return nil
}

// AddAlphaRegion copies src into dst adding a fully opaque alpha byte.
// dst must be one byte per pixel wider than src.
func AddAlphaRegion(src, dst *Region) error {
	if dst.Bytes != src.Bytes+1 {
		return fmt.Errorf("%w: bpp %d vs %d", ErrRegionMismatch, src.Bytes, dst.Bytes)
	}
	it, err := Iterate(src, dst)
	if err != nil {
		return err
	}
	for it.Next() {
		s, d := src.Data, dst.Data
		for y := 0; y < src.H; y++ {
			si, di := 0, 0
			for x := 0; x < src.W; x++ {
				copy(d[di:di+src.Bytes], s[si:si+src.Bytes])
				d[di+src.Bytes] = OpaqueOpacity
				si += src.Bytes
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

// ExtractAlphaRegion writes the alpha channel of src into the single-byte
// dst, scaled by mask when mask is non-nil.
func ExtractAlphaRegion(src, mask, dst *Region) error {
	if dst.Bytes != 1 {
		return fmt.Errorf("%w: dst bpp %d", ErrRegionMismatch, dst.Bytes)
	}
	regions := []*Region{src, dst}
	if mask != nil {
		regions = append(regions, mask)
	}
	it, err := Iterate(regions...)
	if err != nil {
		return err
	}
	alphaOff := src.Bytes - 1
	for it.Next() {
		s, d := src.Data, dst.Data
		var mk []byte
		if mask != nil {
			mk = mask.Data
		}
		for y := 0; y < src.H; y++ {
			si := alphaOff
			for x := 0; x < src.W; x++ {
				a := int(s[si])
				if mk != nil {
					a = a * int(mk[x]) / 255
				}
				d[x] = byte(a)
				si += src.Bytes
			}
			if y+1 < src.H {
				s = s[src.Rowstride:]
				d = d[dst.Rowstride:]
				if mk != nil {
					mk = mk[mask.Rowstride:]
				}
			}
		}
	}
	return nil
}

// ExtractFromRegion pulls the pixels of src selected by mask into dst,
// which always carries an alpha byte. Indexed sources are expanded through
// cmap unless dst is itself indexed; sources without alpha contribute full
// opacity. When cut is true the extracted coverage is removed from src:
// its alpha is reduced by the mask, or, for alpha-less sources, the pixels
// are replaced with bg.
//
// mask may be nil, in which case the whole rectangle is treated as fully
// selected. srcHasAlpha tells whether src's last byte is alpha.
func ExtractFromRegion(src, dst, mask *Region, cmap []byte, bg []byte, dstIndexed bool, srcHasAlpha, cut bool) error {
	regions := []*Region{src, dst}
	if mask != nil {
		regions = append(regions, mask)
	}
	it, err := Iterate(regions...)
	if err != nil {
		return err
	}
	srcColor := src.Bytes
	if srcHasAlpha {
		srcColor--
	}
	for it.Next() {
		s, d := src.Data, dst.Data
		var mk []byte
		if mask != nil {
			mk = mask.Data
		}
		for y := 0; y < src.H; y++ {
			si, di := 0, 0
			for x := 0; x < src.W; x++ {
				a := OpaqueOpacity
				if srcHasAlpha {
					a = int(s[si+srcColor])
				}
				m := OpaqueOpacity
				if mk != nil {
					m = int(mk[x])
				}

				switch {
				case dstIndexed:
					d[di] = s[si]
				case srcColor == 1 && dst.Bytes == 2:
					d[di] = s[si]
				case srcColor == 1 && dst.Bytes == 4 && cmap != nil:
					ci := int(s[si]) * 3
					d[di+0] = cmap[ci+0]
					d[di+1] = cmap[ci+1]
					d[di+2] = cmap[ci+2]
				default:
					copy(d[di:di+srcColor], s[si:si+srcColor])
				}
				d[di+dst.Bytes-1] = byte(a * m / 255)

				if cut {
					if srcHasAlpha {
						s[si+srcColor] = byte(a * (255 - m) / 255)
					} else if m > 127 {
						copy(s[si:si+src.Bytes], bg[:src.Bytes])
					}
				}

				si += src.Bytes
				di += dst.Bytes
			}
			if y+1 < src.H {
				s = s[src.Rowstride:]
				d = d[dst.Rowstride:]
				if mk != nil {
					mk = mk[mask.Rowstride:]
				}
			}
		}
	}
	return nil
}

// GetRow reads w pixels starting at (x, y) into buf, crossing tile
// boundaries as needed.
func (m *Manager) GetRow(x, y, w int, buf []byte) error {
	if y < 0 || y >= m.height || x < 0 || x+w > m.width {
		return fmt.Errorf("%w: row (%d, %d)+%d in %dx%d", ErrOutOfRange, x, y, w, m.width, m.height)
	}
	bi := 0
	for w > 0 {
		t, err := m.GetTile(x, y, false, false)
		if err != nil {
			return err
		}
		n := Width - x%Width
		if n > w {
			n = w
		}
		off := ((y%Height)*t.ewidth + (x % Width)) * m.bpp
		copy(buf[bi:bi+n*m.bpp], t.data[off:off+n*m.bpp])
		m.ReleaseTile(t, false)
		x += n
		w -= n
		bi += n * m.bpp
	}
	return nil
}

// PutRow writes w pixels from buf starting at (x, y), crossing tile
// boundaries as needed.
func (m *Manager) PutRow(x, y, w int, buf []byte) error {
	if y < 0 || y >= m.height || x < 0 || x+w > m.width {
		return fmt.Errorf("%w: row (%d, %d)+%d in %dx%d", ErrOutOfRange, x, y, w, m.width, m.height)
	}
	bi := 0
	for w > 0 {
		t, err := m.GetTile(x, y, true, false)
		if err != nil {
			return err
		}
		n := Width - x%Width
		if n > w {
			n = w
		}
		off := ((y%Height)*t.ewidth + (x % Width)) * m.bpp
		copy(t.data[off:off+n*m.bpp], buf[bi:bi+n*m.bpp])
		m.ReleaseTile(t, true)
		x += n
		w -= n
		bi += n * m.bpp
	}
	return nil
}
