// Non-separable blend modes. Hue, Saturation and Value exchange one HSV
// coordinate between source and destination; Color carries the source's
// hue and saturation through HLS so destination lightness survives.
package blend

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// roundDiv divides n by a positive d, rounding half away from zero.
func roundDiv(n, d int) int {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}

// rgbToHSV converts byte RGB to h in [0,360), s and v in [0,255].
func rgbToHSV(r, g, b int) (h, s, v int) {
	maxc := max3(r, g, b)
	minc := min3(r, g, b)
	v = maxc
	delta := maxc - minc
	if maxc == 0 || delta == 0 {
		return 0, 0, v
	}
	s = delta * 255 / maxc
	switch maxc {
	case r:
		h = roundDiv(60*(g-b), delta)
	case g:
		h = 120 + roundDiv(60*(b-r), delta)
	default:
		h = 240 + roundDiv(60*(r-g), delta)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// hsvToRGB converts h in [0,360), s and v in [0,255] back to byte RGB.
func hsvToRGB(h, s, v int) (r, g, b int) {
	if s == 0 {
		return v, v, v
	}
	h %= 360
	sector := h / 60
	f := h % 60
	p := v * (255 - s) / 255
	q := v * (255*60 - s*f) / (255 * 60)
	t := v * (255*60 - s*(60-f)) / (255 * 60)
	switch sector {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// rgbToHLS converts byte RGB to h in [0,360), l and s in [0,255].
func rgbToHLS(r, g, b int) (h, l, s int) {
	maxc := max3(r, g, b)
	minc := min3(r, g, b)
	l = (maxc + minc) / 2
	delta := maxc - minc
	if delta == 0 {
		return 0, l, 0
	}
	if l < 128 {
		s = delta * 255 / (maxc + minc)
	} else {
		s = delta * 255 / (510 - maxc - minc)
	}
	switch maxc {
	case r:
		h = 60 * (g - b) / delta
	case g:
		h = 120 + 60*(b-r)/delta
	default:
		h = 240 + 60*(r-g)/delta
	}
	if h < 0 {
		h += 360
	}
	return h, l, s
}

func hlsValue(n1, n2, h int) int {
	if h >= 360 {
		h -= 360
	}
	if h < 0 {
		h += 360
	}
	switch {
	case h < 60:
		return n1 + (n2-n1)*h/60
	case h < 180:
		return n2
	case h < 240:
		return n1 + (n2-n1)*(240-h)/60
	default:
		return n1
	}
}

// hlsToRGB converts h in [0,360), l and s in [0,255] back to byte RGB.
func hlsToRGB(h, l, s int) (r, g, b int) {
	if s == 0 {
		return l, l, l
	}
	var m2 int
	if l < 128 {
		m2 = l * (255 + s) / 255
	} else {
		m2 = l + s - l*s/255
	}
	m1 := 2*l - m2
	r = hlsValue(m1, m2, h+120)
	g = hlsValue(m1, m2, h)
	b = hlsValue(m1, m2, h-120)
	return r, g, b
}

// blendHSV swaps one HSV coordinate of dst for the source's.
func blendHSV(m Mode, dst, src, out []byte) {
	dh, ds, dv := rgbToHSV(int(dst[0]), int(dst[1]), int(dst[2]))
	sh, ss, sv := rgbToHSV(int(src[0]), int(src[1]), int(src[2]))
	switch m {
	case Hue:
		// A desaturated source carries no hue information; the
		// destination passes through unchanged.
		if ss == 0 {
			copy(out[:3], dst[:3])
			return
		}
		dh = sh
	case Saturation:
		ds = ss
	case Value:
		dv = sv
	}
	r, g, b := hsvToRGB(dh, ds, dv)
	out[0], out[1], out[2] = byte(r), byte(g), byte(b)
}

// blendHLS replaces dst's hue and saturation with the source's,
// preserving destination lightness.
func blendHLS(dst, src, out []byte) {
	_, dl, _ := rgbToHLS(int(dst[0]), int(dst[1]), int(dst[2]))
	sh, _, ss := rgbToHLS(int(src[0]), int(src[1]), int(src[2]))
	r, g, b := hlsToRGB(sh, dl, ss)
	out[0], out[1], out[2] = byte(r), byte(g), byte(b)
}
