package blend

import (
	"github.com/gopaint/pict/tile"
)

// CombineOptions controls a region composite.
type CombineOptions struct {
	// Mode is the blend mode applied to the color channels.
	Mode Mode

	// Opacity scales the source's coverage, 0..255.
	Opacity int

	// SrcHasAlpha tells whether the source's last byte is alpha.
	SrcHasAlpha bool

	// DstHasAlpha tells whether the destination's last byte is alpha.
	DstHasAlpha bool

	// PreserveAlpha freezes the destination's alpha channel; painting
	// can then only recolor already-opaque pixels.
	PreserveAlpha bool

	// Indexed switches to colormap-index compositing: coverage above
	// half replaces the index outright, anything else leaves it.
	Indexed bool
}

// CombineRegions composites src over dst through the blend pipeline.
// mask may be nil; when present it supplies a per-pixel coverage
// multiplier in lock-step. The source's color width must match the
// destination's.
func CombineRegions(src, dst, mask *tile.Region, opts CombineOptions) error {
	regions := []*tile.Region{src, dst}
	if mask != nil {
		regions = append(regions, mask)
	}
	it, err := tile.Iterate(regions...)
	if err != nil {
		return err
	}

	srcColor := src.Bytes
	if opts.SrcHasAlpha {
		srcColor--
	}
	dstColor := dst.Bytes
	if opts.DstHasAlpha {
		dstColor--
	}

	blended := make([]byte, 3)
	for it.Next() {
		s, d := src.Data, dst.Data
		var mk []byte
		if mask != nil {
			mk = mask.Data
		}
		for y := 0; y < src.H; y++ {
			si, di := 0, 0
			for x := 0; x < src.W; x++ {
				sa := 255
				if opts.SrcHasAlpha {
					sa = int(s[si+srcColor])
				}
				aEff := sa * opts.Opacity / 255
				if mk != nil {
					aEff = aEff * int(mk[x]) / 255
				}
				if opts.Mode == Dissolve {
					if int(dissolveHash(src.X+x, src.Y+y)) < aEff {
						aEff = 255
					} else {
						aEff = 0
					}
				}

				switch {
				case opts.Indexed:
					if aEff > 127 {
						d[di] = s[si]
						if opts.DstHasAlpha {
							d[di+1] = 255
						}
					}
				default:
					combinePixel(opts, s[si:si+srcColor], d[di:di+dst.Bytes],
						blended, srcColor, dstColor, aEff)
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

// combinePixel composites one source pixel over one destination pixel
// with effective coverage aEff.
func combinePixel(opts CombineOptions, sc, dp, blended []byte, srcColor, dstColor, aEff int) {
	da := 255
	if opts.DstHasAlpha {
		da = int(dp[dstColor])
	}

	if opts.Mode == Behind {
		if !opts.DstHasAlpha {
			return
		}
		// Paint behind: the destination shows through wherever it is
		// already opaque.
		na := da + (255-da)*aEff/255
		if na == 0 {
			return
		}
		hole := aEff * (255 - da) / 255
		for i := 0; i < dstColor; i++ {
			dp[i] = byte((int(dp[i])*da + int(sc[i])*hole) / na)
		}
		dp[dstColor] = byte(na)
		return
	}

	Pixels(opts.Mode, dp, sc, blended, dstColor)
	// Blend modes only see the destination where it has coverage; over
	// transparent ground the source color passes through unchanged.
	for i := 0; i < dstColor; i++ {
		blended[i] = byte((int(sc[i])*(255-da) + int(blended[i])*da) / 255)
	}

	if opts.PreserveAlpha || !opts.DstHasAlpha {
		for i := 0; i < dstColor; i++ {
			dp[i] = byte(int(dp[i]) + (int(blended[i])-int(dp[i]))*aEff/255)
		}
		return
	}

	na := aEff + da*(255-aEff)/255
	if na == 0 {
		for i := 0; i <= dstColor; i++ {
			dp[i] = 0
		}
		return
	}
	ratio := aEff * 255 / na
	for i := 0; i < dstColor; i++ {
		dp[i] = byte((int(blended[i])*ratio + int(dp[i])*(255-ratio)) / 255)
	}
	dp[dstColor] = byte(na)
}
