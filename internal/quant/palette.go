package quant

import (
	"errors"
	"fmt"
)

// ErrPaletteSize is returned for custom palettes exceeding MaxColors or
// empty palettes.
var ErrPaletteSize = errors.New("quant: invalid palette size")

// WebPalette returns the fixed 216-color 6x6x6 web cube.
func WebPalette() []Color {
	cmap := make([]Color, 0, 216)
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				cmap = append(cmap, Color{
					R: byte(r * 51),
					G: byte(g * 51),
					B: byte(b * 51),
				})
			}
		}
	}
	return cmap
}

// MonoPalette returns exact black and white.
func MonoPalette() []Color {
	return []Color{{R: 0, G: 0, B: 0}, {R: 255, G: 255, B: 255}}
}

// CustomPalette validates and copies a caller-supplied palette.
func CustomPalette(colors []Color) ([]Color, error) {
	if len(colors) == 0 || len(colors) > MaxColors {
		return nil, fmt.Errorf("%w: %d entries", ErrPaletteSize, len(colors))
	}
	return append([]Color(nil), colors...), nil
}

// ExactMatcher maps colors that are known to be present in the palette,
// with a last-match memo. It backs the nondestructive fast path used
// when an image holds no more distinct colors than the palette allows.
type ExactMatcher struct {
	cmap []Color
	last Color
	idx  int
	seen bool
}

// NewExactMatcher builds a matcher over the palette.
func NewExactMatcher(cmap []Color) *ExactMatcher {
	return &ExactMatcher{cmap: cmap, idx: -1}
}

// Index returns the palette index equal to the color, or -1 when the
// color is absent (which indicates the fast path was mischosen).
func (em *ExactMatcher) Index(r, g, b byte) int {
	if em.seen && em.last.R == r && em.last.G == g && em.last.B == b {
		return em.idx
	}
	for i, c := range em.cmap {
		if c.R == r && c.G == g && c.B == b {
			em.last = Color{R: r, G: g, B: b}
			em.idx = i
			em.seen = true
			return i
		}
	}
	return -1
}
