package pict

import (
	"fmt"
	"math"

	"github.com/gopaint/pict/internal/boundary"
	"github.com/gopaint/pict/internal/morph"
	"github.com/gopaint/pict/tile"
)

// Channel is a single-byte grayscale drawable covering the image's full
// extent, used as a selection mask or a saved mask. It caches its
// boundary segments, bounding box and emptiness so repeated queries stay
// cheap between mutations.
type Channel struct {
	Drawable

	color      [3]byte
	opacity    int // 0..255
	showMasked bool
	tattoo     int

	segsIn        []boundary.Seg
	segsOut       []boundary.Seg
	boundaryKnown bool

	x1, y1      int
	x2, y2      int
	boundsKnown bool
	empty       bool
}

// newChannel constructs a channel sized to the image extent given.
func newChannel(img *Image, w, h int, name string, opacity255 int, color [3]byte) (*Channel, error) {
	ch := &Channel{
		color:   color,
		opacity: opacity255,
	}
	if err := ch.initDrawable(img, KindChannel, w, h, GrayImage, name); err != nil {
		return nil, err
	}
	ch.tattoo = img.ctx.allocTattoo()
	ch.x2 = w
	ch.y2 = h
	return ch, nil
}

// Color returns the channel's compositing color.
func (ch *Channel) Color() [3]byte { return ch.color }

// SetColor sets the channel's compositing color.
func (ch *Channel) SetColor(c [3]byte) { ch.color = c }

// Opacity returns the compositing opacity, 0..255.
func (ch *Channel) Opacity() int { return ch.opacity }

// SetOpacity sets the compositing opacity, 0..255.
func (ch *Channel) SetOpacity(op int) error {
	if op < 0 || op > 255 {
		return fmt.Errorf("%w: channel opacity %d", ErrInvalidArgument, op)
	}
	ch.opacity = op
	return nil
}

// ShowMasked reports the show-masked flag.
func (ch *Channel) ShowMasked() bool { return ch.showMasked }

// SetShowMasked sets the show-masked flag.
func (ch *Channel) SetShowMasked(v bool) { ch.showMasked = v }

// Tattoo returns the channel's unique persistent identifier.
func (ch *Channel) Tattoo() int { return ch.tattoo }

// SetTattoo overrides the persistent identifier; hosts restoring a
// saved image use it to keep tattoos stable.
func (ch *Channel) SetTattoo(t int) { ch.tattoo = t }

// Copy deep-copies the channel, caches included.
func (ch *Channel) Copy() (*Channel, error) {
	dup, err := newChannel(ch.image, ch.width, ch.height, ch.name, ch.opacity, ch.color)
	if err != nil {
		return nil, err
	}
	src := ch.region(0, 0, ch.width, ch.height, false)
	dst := dup.region(0, 0, ch.width, ch.height, true)
	if err := tile.CopyRegion(src, dst); err != nil {
		return nil, err
	}
	dup.showMasked = ch.showMasked
	dup.x1, dup.y1, dup.x2, dup.y2 = ch.x1, ch.y1, ch.x2, ch.y2
	dup.boundsKnown = ch.boundsKnown
	dup.empty = ch.empty
	return dup, nil
}

// invalidateCaches drops the boundary and bounds caches.
func (ch *Channel) invalidateCaches() {
	ch.boundaryKnown = false
	ch.boundsKnown = false
	ch.previewValid = false
}

// Boundary returns the cached inside and outside boundary segments,
// recomputing them when stale. The rectangle restricts the inside
// segments; the outside segments trace the whole mask.
func (ch *Channel) Boundary(x1, y1, x2, y2 int) (segsIn, segsOut []boundary.Seg, err error) {
	if !ch.boundaryKnown {
		ch.segsIn = nil
		ch.segsOut = nil
		bx1, by1, bx2, by2, nonEmpty := ch.Bounds()
		if nonEmpty {
			ch.segsOut, err = boundary.Find(ch.tiles, boundary.IgnoreBounds, x1, y1, x2, y2)
			if err != nil {
				return nil, nil, err
			}
			ix1 := maxInt(x1, bx1)
			iy1 := maxInt(y1, by1)
			ix2 := minInt(x2, bx2)
			iy2 := minInt(y2, by2)
			if ix2 > ix1 && iy2 > iy1 {
				ch.segsIn, err = boundary.Find(ch.tiles, boundary.WithinBounds, ix1, iy1, ix2, iy2)
				if err != nil {
					return nil, nil, err
				}
			}
		}
		ch.boundaryKnown = true
	}
	return ch.segsIn, ch.segsOut, nil
}

// Value returns the mask value at (x, y), zero outside the extent.
func (ch *Channel) Value(x, y int) int {
	if ch.boundsKnown {
		if ch.empty || x < ch.x1 || x >= ch.x2 || y < ch.y1 || y >= ch.y2 {
			return 0
		}
	} else if x < 0 || x >= ch.width || y < 0 || y >= ch.height {
		return 0
	}
	var p [1]byte
	if err := ch.tiles.Pixel(x, y, p[:]); err != nil {
		return 0
	}
	return int(p[0])
}

// Bounds returns the minimum axis-aligned rectangle containing every
// nonzero pixel. The boolean is false when the channel is empty, in
// which case the full extent is returned.
func (ch *Channel) Bounds() (x1, y1, x2, y2 int, nonEmpty bool) {
	if ch.boundsKnown {
		return ch.x1, ch.y1, ch.x2, ch.y2, !ch.empty
	}

	minX, minY := ch.width, ch.height
	maxX, maxY := -1, -1

	r := ch.region(0, 0, ch.width, ch.height, false)
	it, err := tile.Iterate(r)
	if err != nil {
		return 0, 0, ch.width, ch.height, false
	}
	for it.Next() {
		d := r.Data
		for y := 0; y < r.H; y++ {
			found := false
			for x := 0; x < r.W; x++ {
				if d[x] != 0 {
					if r.X+x < minX {
						minX = r.X + x
					}
					if r.X+x > maxX {
						maxX = r.X + x
					}
					found = true
				}
			}
			if found {
				if r.Y+y < minY {
					minY = r.Y + y
				}
				if r.Y+y > maxY {
					maxY = r.Y + y
				}
			}
			if y+1 < r.H {
				d = d[r.Rowstride:]
			}
		}
	}

	if maxX < 0 {
		ch.empty = true
		ch.x1, ch.y1 = 0, 0
		ch.x2, ch.y2 = ch.width, ch.height
	} else {
		ch.empty = false
		ch.x1, ch.y1 = minX, minY
		ch.x2 = clampInt(maxX+1, 0, ch.width)
		ch.y2 = clampInt(maxY+1, 0, ch.height)
	}
	ch.boundsKnown = true
	return ch.x1, ch.y1, ch.x2, ch.y2, !ch.empty
}

// IsEmpty reports whether no pixel is selected, scanning only when the
// bounds cache is stale.
func (ch *Channel) IsEmpty() bool {
	if ch.boundsKnown {
		return ch.empty
	}
	_, _, _, _, nonEmpty := ch.Bounds()
	return !nonEmpty
}

// addSegment saturating-adds value over a horizontal pixel run.
func (ch *Channel) addSegment(x, y, width, value int) {
	ch.segmentOp(x, y, width, func(v byte) byte {
		n := int(v) + value
		if n > 255 {
			n = 255
		}
		return byte(n)
	})
}

// subSegment saturating-subtracts value over a horizontal pixel run.
func (ch *Channel) subSegment(x, y, width, value int) {
	ch.segmentOp(x, y, width, func(v byte) byte {
		n := int(v) - value
		if n < 0 {
			n = 0
		}
		return byte(n)
	})
}

// interSegment caps a horizontal pixel run at value.
func (ch *Channel) interSegment(x, y, width, value int) {
	ch.segmentOp(x, y, width, func(v byte) byte {
		if int(v) < value {
			return v
		}
		return byte(value)
	})
}

func (ch *Channel) segmentOp(x, y, width int, f func(byte) byte) {
	x2 := clampInt(x+width, 0, ch.width)
	x = clampInt(x, 0, ch.width)
	width = x2 - x
	if width == 0 || y < 0 || y >= ch.height {
		return
	}
	buf := make([]byte, width)
	if err := ch.tiles.GetRow(x, y, width, buf); err != nil {
		return
	}
	for i := range buf {
		buf[i] = f(buf[i])
	}
	_ = ch.tiles.PutRow(x, y, width, buf)
}

// expandBounds folds a combined rectangle into the bounds cache: ADD
// grows known bounds, REPLACE resets them, anything else leaves the
// cache stale.
func (ch *Channel) expandBounds(op ChannelOp, x, y, w, h int) {
	switch {
	case ch.boundsKnown && op == OpAdd && !ch.empty:
		if x < ch.x1 {
			ch.x1 = x
		}
		if y < ch.y1 {
			ch.y1 = y
		}
		if x+w > ch.x2 {
			ch.x2 = x + w
		}
		if y+h > ch.y2 {
			ch.y2 = y + h
		}
	case op == OpReplace || (ch.boundsKnown && ch.empty && op == OpAdd):
		ch.empty = false
		ch.boundsKnown = true
		ch.x1, ch.y1 = x, y
		ch.x2, ch.y2 = x+w, y+h
	default:
		ch.boundsKnown = false
	}
	ch.x1 = clampInt(ch.x1, 0, ch.width)
	ch.y1 = clampInt(ch.y1, 0, ch.height)
	ch.x2 = clampInt(ch.x2, 0, ch.width)
	ch.y2 = clampInt(ch.y2, 0, ch.height)
	ch.boundaryKnown = false
	ch.previewValid = false
}

// CombineRect combines an axis-aligned rectangle into the mask.
func (ch *Channel) CombineRect(op ChannelOp, x, y, w, h int) error {
	if !op.Valid() {
		return fmt.Errorf("%w: channel op %d", ErrInvalidArgument, int(op))
	}
	if op == OpReplace {
		if err := ch.clearPixels(); err != nil {
			return err
		}
	}
	for i := y; i < y+h; i++ {
		if i < 0 || i >= ch.height {
			continue
		}
		switch op {
		case OpAdd, OpReplace:
			ch.addSegment(x, i, w, 255)
		case OpSub:
			ch.subSegment(x, i, w, 255)
		case OpIntersect:
			ch.interSegment(x, i, w, 255)
		}
	}
	ch.expandBounds(op, x, y, w, h)
	return nil
}

// CombineEllipse combines an ellipse inscribed in the rectangle. With
// antialias, coverage at each pixel center falls off linearly across the
// boundary and is applied in runs of equal value.
func (ch *Channel) CombineEllipse(op ChannelOp, x, y, w, h int, antialias bool) error {
	if !op.Valid() {
		return fmt.Errorf("%w: channel op %d", ErrInvalidArgument, int(op))
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: ellipse %dx%d", ErrInvalidArgument, w, h)
	}
	if op == OpReplace {
		if err := ch.clearPixels(); err != nil {
			return err
		}
	}

	aSqr := float64(w) * float64(w) / 4
	bSqr := float64(h) * float64(h) / 4
	aob := aSqr / bSqr
	cx := float64(x) + float64(w)/2
	cy := float64(y) + float64(h)/2

	apply := func(rx, ry, rw, val int) {
		if rw <= 0 || val == 0 {
			return
		}
		switch op {
		case OpAdd, OpReplace:
			ch.addSegment(rx, ry, rw, val)
		case OpSub:
			ch.subSegment(rx, ry, rw, val)
		case OpIntersect:
			ch.interSegment(rx, ry, rw, val)
		}
	}

	for i := y; i < y+h; i++ {
		if i < 0 || i >= ch.height {
			continue
		}
		if !antialias {
			ySqr := (float64(i) + 0.5 - cy) * (float64(i) + 0.5 - cy)
			rad := sqrt(aSqr - aSqr*ySqr/bSqr)
			x1 := round(cx - rad)
			x2 := round(cx + rad)
			apply(x1, i, x2-x1, 255)
			continue
		}

		// Aggregate equal coverage values into runs.
		x0 := x
		last := 0
		hSqr := (float64(i) + 0.5 - cy) * (float64(i) + 0.5 - cy)
		j := x
		for ; j < x+w; j++ {
			wSqr := (float64(j) + 0.5 - cx) * (float64(j) + 0.5 - cx)
			var dist float64
			if hSqr != 0 {
				t0 := wSqr / hSqr
				t1 := aSqr / (t0 + aob)
				r := sqrt(t1 + t0*t1)
				rad := sqrt(wSqr + hSqr)
				dist = rad - r
			} else {
				dist = -1
			}
			var val int
			switch {
			case dist < -0.5:
				val = 255
			case dist < 0.5:
				val = int(255 * (1 - (dist + 0.5)))
			default:
				val = 0
			}
			if last != val && last != 0 {
				apply(x0, i, j-x0, last)
			}
			if last != val {
				x0 = j
				last = val
			}
		}
		if last != 0 {
			apply(x0, i, j-x0, last)
		}
	}

	ch.expandBounds(op, x, y, w, h)
	return nil
}

// CombineMask combines another mask pixelwise at the given offset:
// saturating add, saturating subtract, minimum, or copy.
func (ch *Channel) CombineMask(addOn *Channel, op ChannelOp, offX, offY int) error {
	if !op.Valid() {
		return fmt.Errorf("%w: channel op %d", ErrInvalidArgument, int(op))
	}
	if op == OpReplace {
		if err := ch.clearPixels(); err != nil {
			return err
		}
	}
	x1 := clampInt(offX, 0, ch.width)
	y1 := clampInt(offY, 0, ch.height)
	x2 := clampInt(offX+addOn.width, 0, ch.width)
	y2 := clampInt(offY+addOn.height, 0, ch.height)
	w, h := x2-x1, y2-y1
	if w <= 0 || h <= 0 {
		ch.boundsKnown = false
		ch.boundaryKnown = false
		return nil
	}

	src := addOn.region(x1-offX, y1-offY, w, h, false)
	dst := ch.region(x1, y1, w, h, true)
	it, err := tile.Iterate(src, dst)
	if err != nil {
		return err
	}
	for it.Next() {
		s, d := src.Data, dst.Data
		for y := 0; y < src.H; y++ {
			for x := 0; x < src.W; x++ {
				var v int
				switch op {
				case OpAdd, OpReplace:
					v = int(d[x]) + int(s[x])
					if v > 255 {
						v = 255
					}
				case OpSub:
					v = int(d[x]) - int(s[x])
					if v < 0 {
						v = 0
					}
				case OpIntersect:
					v = int(d[x])
					if int(s[x]) < v {
						v = int(s[x])
					}
				}
				d[x] = byte(v)
			}
			if y+1 < src.H {
				s = s[src.Rowstride:]
				d = d[dst.Rowstride:]
			}
		}
	}
	ch.boundsKnown = false
	ch.boundaryKnown = false
	ch.previewValid = false
	return nil
}

// Feather gaussian-blurs the mask with the given radius.
func (ch *Channel) Feather(radius float64) error {
	if radius < 0 {
		return fmt.Errorf("%w: feather radius %g", ErrInvalidArgument, radius)
	}
	x1, y1, x2, y2, nonEmpty := ch.Bounds()
	if !nonEmpty {
		return nil
	}
	grow := int(radius*3) + 1
	x1 = clampInt(x1-grow, 0, ch.width)
	y1 = clampInt(y1-grow, 0, ch.height)
	x2 = clampInt(x2+grow, 0, ch.width)
	y2 = clampInt(y2+grow, 0, ch.height)
	if err := morph.GaussianBlur(ch.tiles, x1, y1, x2-x1, y2-y1, radius); err != nil {
		return err
	}
	ch.invalidateCaches()
	return nil
}

// clearPixels zeroes the mask without touching the caches.
func (ch *Channel) clearPixels() error {
	var bg [1]byte
	if ch.boundsKnown && !ch.empty {
		r := ch.region(ch.x1, ch.y1, ch.x2-ch.x1, ch.y2-ch.y1, true)
		return tile.FillRegion(r, bg[:])
	}
	return ch.fill(bg[:])
}

// Clear empties the mask.
func (ch *Channel) Clear() error {
	if err := ch.clearPixels(); err != nil {
		return err
	}
	ch.boundsKnown = true
	ch.boundaryKnown = false
	ch.empty = true
	ch.x1, ch.y1 = 0, 0
	ch.x2, ch.y2 = ch.width, ch.height
	ch.previewValid = false
	return nil
}

// All selects every pixel.
func (ch *Channel) All() error {
	if err := ch.fill([]byte{255}); err != nil {
		return err
	}
	ch.boundsKnown = true
	ch.boundaryKnown = false
	ch.empty = false
	ch.x1, ch.y1 = 0, 0
	ch.x2, ch.y2 = ch.width, ch.height
	ch.previewValid = false
	return nil
}

// Invert replaces every value v with 255-v.
func (ch *Channel) Invert() error {
	r := ch.region(0, 0, ch.width, ch.height, true)
	it, err := tile.Iterate(r)
	if err != nil {
		return err
	}
	for it.Next() {
		d := r.Data
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				d[x] = 255 - d[x]
			}
			if y+1 < r.H {
				d = d[r.Rowstride:]
			}
		}
	}
	ch.invalidateCaches()
	return nil
}

// Sharpen hardens the mask: values above half go to 255, the rest to 0.
func (ch *Channel) Sharpen() error {
	r := ch.region(0, 0, ch.width, ch.height, true)
	it, err := tile.Iterate(r)
	if err != nil {
		return err
	}
	for it.Next() {
		d := r.Data
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				if d[x] > boundary.HalfWay {
					d[x] = 255
				} else {
					d[x] = 0
				}
			}
			if y+1 < r.H {
				d = d[r.Rowstride:]
			}
		}
	}
	ch.invalidateCaches()
	return nil
}

// Border replaces the mask with a band of the given radius centered on
// its boundary.
func (ch *Channel) Border(radius int) error {
	if radius < 0 {
		return fmt.Errorf("%w: border radius %d", ErrInvalidArgument, radius)
	}
	x1, y1, x2, y2, nonEmpty := ch.Bounds()
	if !nonEmpty {
		return nil
	}
	x1 = clampInt(x1-radius, 0, ch.width)
	y1 = clampInt(y1-radius, 0, ch.height)
	x2 = clampInt(x2+radius, 0, ch.width)
	y2 = clampInt(y2+radius, 0, ch.height)
	if err := morph.Border(ch.tiles, x1, y1, x2-x1, y2-y1, radius); err != nil {
		return err
	}
	ch.invalidateCaches()
	return nil
}

// Grow fattens the mask by a disk of the given radius. A negative
// radius shrinks instead.
func (ch *Channel) Grow(radius int) error {
	if radius < 0 {
		return ch.Shrink(-radius)
	}
	x1, y1, x2, y2, nonEmpty := ch.Bounds()
	if !nonEmpty {
		return nil
	}
	x1 = clampInt(x1-radius, 0, ch.width)
	y1 = clampInt(y1-radius, 0, ch.height)
	x2 = clampInt(x2+radius, 0, ch.width)
	y2 = clampInt(y2+radius, 0, ch.height)
	if err := morph.Fatten(ch.tiles, x1, y1, x2-x1, y2-y1, radius); err != nil {
		return err
	}
	ch.invalidateCaches()
	return nil
}

// Shrink thins the mask by a disk of the given radius. A negative
// radius is rejected here: Grow already forwards that case, so reaching
// it indicates a caller bug.
func (ch *Channel) Shrink(radius int) error {
	if radius < 0 {
		return fmt.Errorf("%w: shrink radius %d", ErrInvalidArgument, radius)
	}
	x1, y1, x2, y2, nonEmpty := ch.Bounds()
	if !nonEmpty {
		return nil
	}
	if x1 > 0 {
		x1--
	}
	if y1 > 0 {
		y1--
	}
	if x2 < ch.width {
		x2++
	}
	if y2 < ch.height {
		y2++
	}
	if err := morph.Thin(ch.tiles, x1, y1, x2-x1, y2-y1, radius); err != nil {
		return err
	}
	ch.invalidateCaches()
	return nil
}

// Translate shifts the mask contents: the kept portion is cut to a
// temporary mask, the mask cleared, and the portion pasted at the
// shifted position.
func (ch *Channel) Translate(offX, offY int) error {
	x1, y1, x2, y2, nonEmpty := ch.Bounds()
	x1 = clampInt(x1+offX, 0, ch.width)
	y1 = clampInt(y1+offY, 0, ch.height)
	x2 = clampInt(x2+offX, 0, ch.width)
	y2 = clampInt(y2+offY, 0, ch.height)
	w, h := x2-x1, y2-y1

	var tmp *tile.Manager
	if w > 0 && h > 0 {
		var err error
		tmp, err = tile.NewManager(w, h, 1)
		if err != nil {
			return err
		}
		src := ch.region(x1-offX, y1-offY, w, h, false)
		dst := tile.NewRegion(tmp, 0, 0, w, h, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return err
		}
	}

	if err := ch.fill([]byte{0}); err != nil {
		return err
	}

	if tmp != nil {
		src := tile.NewRegion(tmp, 0, 0, w, h, false)
		dst := ch.region(x1, y1, w, h, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return err
		}
	}

	ch.boundaryKnown = false
	ch.previewValid = false
	ch.boundsKnown = true
	if w <= 0 || h <= 0 || !nonEmpty {
		ch.empty = true
		ch.x1, ch.y1 = 0, 0
		ch.x2, ch.y2 = ch.width, ch.height
	} else {
		ch.empty = false
		ch.x1, ch.y1, ch.x2, ch.y2 = x1, y1, x2, y2
	}
	return nil
}

// LayerAlpha loads the mask from a layer's alpha channel over the
// layer's footprint, zero elsewhere.
func (ch *Channel) LayerAlpha(layer *Layer) error {
	if !layer.HasAlpha() {
		return fmt.Errorf("%w: layer %q has no alpha channel", ErrTypeMismatch, layer.Name())
	}
	if err := ch.fill([]byte{0}); err != nil {
		return err
	}
	x1 := clampInt(layer.offsetX, 0, ch.width)
	y1 := clampInt(layer.offsetY, 0, ch.height)
	x2 := clampInt(layer.offsetX+layer.width, 0, ch.width)
	y2 := clampInt(layer.offsetY+layer.height, 0, ch.height)
	if x2 > x1 && y2 > y1 {
		src := layer.region(x1-layer.offsetX, y1-layer.offsetY, x2-x1, y2-y1, false)
		dst := ch.region(x1, y1, x2-x1, y2-y1, true)
		if err := tile.ExtractAlphaRegion(src, nil, dst); err != nil {
			return err
		}
	}
	ch.invalidateCaches()
	return nil
}

// Load copies another channel's contents into the mask.
func (ch *Channel) Load(src *Channel) error {
	w := minInt(ch.width, src.width)
	h := minInt(ch.height, src.height)
	srcR := src.region(0, 0, w, h, false)
	dstR := ch.region(0, 0, w, h, true)
	if err := tile.CopyRegion(srcR, dstR); err != nil {
		return err
	}
	ch.invalidateCaches()
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sqrt(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

func round(v float64) int { return int(math.Floor(v + 0.5)) }
