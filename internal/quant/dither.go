package quant

// RowFunc reads or writes one row of pixels at scanline y.
type RowFunc func(y int, buf []byte) error

// errorLimit is the error-limiting transfer function: raw quantization
// errors up to +-255 are compressed so repeated errors cannot cascade
// into fringes. 1:1 up to +-16, 1:2 up to +-48, saturating at +-32.
var errorLimit = buildErrorLimit()

func buildErrorLimit() []int {
	table := make([]int, 2*255+1)
	const step = 16
	out := 0
	in := 0
	for ; in < step; in, out = in+1, out+1 {
		table[255+in] = out
		table[255-in] = -out
	}
	for ; in < step*3; in++ {
		table[255+in] = out
		table[255-in] = -out
		if in&1 == 0 {
			out++
		}
	}
	for ; in <= 255; in++ {
		table[255+in] = out
		table[255-in] = -out
	}
	return table
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// srcRGB extracts the color channels at offset i of a source row with
// the given layout; gray sources replicate intensity across channels.
func srcRGB(row []byte, i, srcBytes int) (r, g, b int) {
	if srcBytes <= 2 {
		v := int(row[i])
		return v, v, v
	}
	return int(row[i]), int(row[i+1]), int(row[i+2])
}

func srcAlpha(row []byte, i, srcBytes int, hasAlpha bool) int {
	if !hasAlpha {
		return 255
	}
	return int(row[i+srcBytes-1])
}

// RemapRows maps every pixel through the inverse-colormap cache with no
// dithering. dstBytes is 1 (INDEXED) or 2 (INDEXEDA); alpha quantizes
// hard at AlphaThreshold.
func RemapRows(rm *Remapper, width, height, srcBytes, dstBytes int, hasAlpha bool, get, put RowFunc) error {
	src := make([]byte, width*srcBytes)
	dst := make([]byte, width*dstBytes)
	for y := 0; y < height; y++ {
		if err := get(y, src); err != nil {
			return err
		}
		si, di := 0, 0
		for x := 0; x < width; x++ {
			var idx int
			if rm.gray {
				idx = rm.IndexGray(src[si])
			} else {
				r, g, b := srcRGB(src, si, srcBytes)
				idx = rm.IndexRGB(byte(r), byte(g), byte(b))
			}
			dst[di] = byte(idx)
			if dstBytes == 2 {
				if srcAlpha(src, si, srcBytes, hasAlpha) > AlphaThreshold {
					dst[di+1] = 255
				} else {
					dst[di+1] = 0
				}
			}
			si += srcBytes
			di += dstBytes
		}
		if err := put(y, dst); err != nil {
			return err
		}
	}
	return nil
}

// RemapRowsExact maps pixels through an exact palette match: the
// nondestructive fast path. Transparent pixels are emitted with alpha 0
// and index 0.
func RemapRowsExact(em *ExactMatcher, width, height, srcBytes, dstBytes int, hasAlpha bool, get, put RowFunc) error {
	src := make([]byte, width*srcBytes)
	dst := make([]byte, width*dstBytes)
	for y := 0; y < height; y++ {
		if err := get(y, src); err != nil {
			return err
		}
		si, di := 0, 0
		for x := 0; x < width; x++ {
			a := srcAlpha(src, si, srcBytes, hasAlpha)
			if a > AlphaThreshold {
				r, g, b := srcRGB(src, si, srcBytes)
				idx := em.Index(byte(r), byte(g), byte(b))
				if idx < 0 {
					idx = 0
				}
				dst[di] = byte(idx)
				if dstBytes == 2 {
					dst[di+1] = 255
				}
			} else {
				dst[di] = 0
				if dstBytes == 2 {
					dst[di+1] = 0
				}
			}
			si += srcBytes
			di += dstBytes
		}
		if err := put(y, dst); err != nil {
			return err
		}
	}
	return nil
}

// DitherRows maps pixels with serpentine Floyd-Steinberg error
// diffusion: 7/16 ahead, 3/16 behind-below, 5/16 below, 1/16
// ahead-below, with row direction alternating.
func DitherRows(rm *Remapper, width, height, srcBytes, dstBytes int, hasAlpha bool, get, put RowFunc) error {
	src := make([]byte, width*srcBytes)
	dst := make([]byte, width*dstBytes)

	// Forward error buffers per channel, one slot of padding each side.
	rPrev := make([]int, width+2)
	gPrev := make([]int, width+2)
	bPrev := make([]int, width+2)
	rNext := make([]int, width+2)
	gNext := make([]int, width+2)
	bNext := make([]int, width+2)

	oddRow := false
	for y := 0; y < height; y++ {
		if err := get(y, src); err != nil {
			return err
		}
		for i := range rNext {
			rNext[i], gNext[i], bNext[i] = 0, 0, 0
		}

		start, end, step := 0, width, 1
		if oddRow {
			start, end, step = width-1, -1, -1
		}
		for x := start; x != end; x += step {
			si := x * srcBytes
			di := x * dstBytes

			sr, sg, sb := srcRGB(src, si, srcBytes)
			r := clamp255(sr + errorLimit[255+clampErr(rPrev[x+1])])
			g := clamp255(sg + errorLimit[255+clampErr(gPrev[x+1])])
			b := clamp255(sb + errorLimit[255+clampErr(bPrev[x+1])])

			var idx int
			if rm.gray {
				idx = rm.IndexGray(byte(g))
			} else {
				idx = rm.IndexRGB(byte(r), byte(g), byte(b))
			}
			dst[di] = byte(idx)
			if dstBytes == 2 {
				if srcAlpha(src, si, srcBytes, hasAlpha) > AlphaThreshold {
					dst[di+1] = 255
				} else {
					dst[di+1] = 0
				}
			}

			c := rm.cmap[idx]
			re := r - int(c.R)
			ge := g - int(c.G)
			be := b - int(c.B)

			// Distribute the residual: serpentine neighbors.
			ahead := x + step
			behind := x - step
			rPrev[ahead+1] += re * 7 / 16
			gPrev[ahead+1] += ge * 7 / 16
			bPrev[ahead+1] += be * 7 / 16
			rNext[behind+1] += re * 3 / 16
			gNext[behind+1] += ge * 3 / 16
			bNext[behind+1] += be * 3 / 16
			rNext[x+1] += re * 5 / 16
			gNext[x+1] += ge * 5 / 16
			bNext[x+1] += be * 5 / 16
			rNext[ahead+1] += re * 1 / 16
			gNext[ahead+1] += ge * 1 / 16
			bNext[ahead+1] += be * 1 / 16
		}

		if err := put(y, dst); err != nil {
			return err
		}
		rPrev, rNext = rNext, rPrev
		gPrev, gNext = gNext, gPrev
		bPrev, bNext = bNext, bPrev
		oddRow = !oddRow
	}
	return nil
}

// clampErr bounds an accumulated error to the limiter table's domain.
func clampErr(e int) int {
	if e < -255 {
		return -255
	}
	if e > 255 {
		return 255
	}
	return e
}
