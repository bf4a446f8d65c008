package pict

// Preview returns a box-filtered subsampling of the drawable at the
// requested size, independent of pixel type. The result is cached; a
// request matching the cached dimensions returns the cache, anything
// else re-subsamples and replaces it. Every mutator invalidates the
// cache by marking the preview stale.
//
// The buffer layout matches the drawable's pixel layout at w*h pixels.
func (d *Drawable) Preview(w, h int) []byte {
	if w <= 0 || h <= 0 {
		return nil
	}
	if w > d.width {
		w = d.width
	}
	if h > d.height {
		h = d.height
	}
	if d.previewValid && d.previewW == w && d.previewH == h {
		return d.preview
	}
	buf := d.subsample(w, h)
	if buf == nil {
		return nil
	}
	d.preview = buf
	d.previewW = w
	d.previewH = h
	d.previewValid = true
	return buf
}

// subsample box-filters the drawable down to w x h.
func (d *Drawable) subsample(w, h int) []byte {
	bpp := d.Bytes()
	out := make([]byte, w*h*bpp)
	row := make([]byte, d.width*bpp)
	acc := make([]int64, w*bpp)
	counts := make([]int64, w)

	oy := 0
	yNext := (oy + 1) * d.height / h
	for y := 0; y < d.height; y++ {
		if err := d.tiles.GetRow(0, y, d.width, row); err != nil {
			return nil
		}
		for x := 0; x < d.width; x++ {
			ox := x * w / d.width
			if ox >= w {
				ox = w - 1
			}
			for c := 0; c < bpp; c++ {
				acc[ox*bpp+c] += int64(row[x*bpp+c])
			}
			counts[ox]++
		}
		if y+1 == yNext || y+1 == d.height {
			for ox := 0; ox < w; ox++ {
				if counts[ox] == 0 {
					continue
				}
				for c := 0; c < bpp; c++ {
					out[(oy*w+ox)*bpp+c] = byte(acc[ox*bpp+c] / counts[ox])
					acc[ox*bpp+c] = 0
				}
				counts[ox] = 0
			}
			oy++
			if oy >= h {
				break
			}
			yNext = (oy + 1) * d.height / h
		}
	}
	return out
}
