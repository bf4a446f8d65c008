package quant

// Inverse-colormap cache. All colors within one histogram cell map to
// the palette entry nearest the cell center. Cells are filled lazily in
// update boxes: candidate entries are pruned with the locally-sorted
// search criterion (any entry whose minimum distance to the box exceeds
// the smallest maximum distance can never win), then exact per-cell
// distances are propagated incrementally (the distance differences
// between adjacent cells themselves differ by a constant).

// Update box size in histogram cells per axis.
const (
	boxRLog = precisionR - 3
	boxGLog = precisionG - 3
	boxBLog = precisionB - 2

	boxRElems = 1 << boxRLog
	boxGElems = 1 << boxGLog
	boxBElems = 1 << boxBLog

	boxRShift = rShift + boxRLog
	boxGShift = gShift + boxGLog
	boxBShift = bShift + boxBLog

	stepR = (1 << rShift) * rScale
	stepG = (1 << gShift) * gScale
	stepB = (1 << bShift) * bScale
)

// Remapper maps source pixels to palette indices through the cell cache.
type Remapper struct {
	cmap []Color
	gray bool

	// cache holds nearest palette index + 1 per histogram cell; zero
	// means unfilled.
	cache []int32
}

// NewRemapper builds a remapper for the palette. Gray remappers key the
// cache by intensity; RGB remappers by reduced-precision cell.
func NewRemapper(cmap []Color, gray bool) *Remapper {
	size := histRElems * histGElems * histBElems
	if gray {
		size = 256
	}
	return &Remapper{
		cmap:  cmap,
		gray:  gray,
		cache: make([]int32, size),
	}
}

// Palette returns the remapper's palette.
func (rm *Remapper) Palette() []Color { return rm.cmap }

// IndexGray returns the palette index nearest the intensity.
func (rm *Remapper) IndexGray(v byte) int {
	if c := rm.cache[v]; c != 0 {
		return int(c - 1)
	}
	best, bestDist := 0, 1<<30
	for i, c := range rm.cmap {
		d := int(v) - int(c.R)
		d *= d
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	rm.cache[v] = int32(best + 1)
	return best
}

// IndexRGB returns the palette index nearest the color, filling the
// containing update box on a cache miss.
func (rm *Remapper) IndexRGB(r, g, b byte) int {
	cr := int(r) >> rShift
	cg := int(g) >> gShift
	cb := int(b) >> bShift
	i := cell(cr, cg, cb)
	if c := rm.cache[i]; c != 0 {
		return int(c - 1)
	}
	rm.fillBox(cr, cg, cb)
	return int(rm.cache[i] - 1)
}

// findNearby lists the palette entries close enough to the update box
// at (minR, minG, minB) to be candidates for some cell in it.
func (rm *Remapper) findNearby(minR, minG, minB int, colorlist []int) int {
	maxR := minR + ((1 << boxRShift) - (1 << rShift))
	centerR := (minR + maxR) >> 1
	maxG := minG + ((1 << boxGShift) - (1 << gShift))
	centerG := (minG + maxG) >> 1
	maxB := minB + ((1 << boxBShift) - (1 << bShift))
	centerB := (minB + maxB) >> 1

	var mindist [MaxColors]int
	minmaxdist := 1 << 30

	axis := func(x, min, max, center, scale int) (minD, maxD int) {
		switch {
		case x < min:
			t := (x - min) * scale
			minD = t * t
			t = (x - max) * scale
			maxD = t * t
		case x > max:
			t := (x - max) * scale
			minD = t * t
			t = (x - min) * scale
			maxD = t * t
		default:
			minD = 0
			if x <= center {
				t := (x - max) * scale
				maxD = t * t
			} else {
				t := (x - min) * scale
				maxD = t * t
			}
		}
		return minD, maxD
	}

	for i, c := range rm.cmap {
		minD, maxD := axis(int(c.R), minR, maxR, centerR, rScale)
		m2, x2 := axis(int(c.G), minG, maxG, centerG, gScale)
		minD += m2
		maxD += x2
		m2, x2 = axis(int(c.B), minB, maxB, centerB, bScale)
		minD += m2
		maxD += x2
		mindist[i] = minD
		if maxD < minmaxdist {
			minmaxdist = maxD
		}
	}

	n := 0
	for i := range rm.cmap {
		if mindist[i] <= minmaxdist {
			colorlist[n] = i
			n++
		}
	}
	return n
}

// findBest computes the nearest candidate for every cell in the update
// box using incremental distance propagation.
func (rm *Remapper) findBest(minR, minG, minB, numColors int, colorlist []int, bestcolor []int) {
	var bestdist [boxRElems * boxGElems * boxBElems]int
	for i := range bestdist {
		bestdist[i] = 1 << 30
	}

	for ci := 0; ci < numColors; ci++ {
		icolor := colorlist[ci]
		c := rm.cmap[icolor]

		inR := (minR - int(c.R)) * rScale
		dist0 := inR * inR
		inG := (minG - int(c.G)) * gScale
		dist0 += inG * inG
		inB := (minB - int(c.B)) * bScale
		dist0 += inB * inB

		inR = inR*(2*stepR) + stepR*stepR
		inG = inG*(2*stepG) + stepG*stepG
		inB = inB*(2*stepB) + stepB*stepB

		p := 0
		xx0 := inR
		for iR := 0; iR < boxRElems; iR++ {
			dist1 := dist0
			xx1 := inG
			for iG := 0; iG < boxGElems; iG++ {
				dist2 := dist1
				xx2 := inB
				for iB := 0; iB < boxBElems; iB++ {
					if dist2 < bestdist[p] {
						bestdist[p] = dist2
						bestcolor[p] = icolor
					}
					dist2 += xx2
					xx2 += 2 * stepB * stepB
					p++
				}
				dist1 += xx1
				xx1 += 2 * stepG * stepG
			}
			dist0 += xx0
			xx0 += 2 * stepR * stepR
		}
	}
}

// fillBox fills every cache cell of the update box containing cell
// (cr, cg, cb) with its nearest palette index + 1.
func (rm *Remapper) fillBox(cr, cg, cb int) {
	bR := cr >> boxRLog
	bG := cg >> boxGLog
	bB := cb >> boxBLog

	minR := (bR << boxRShift) + (1<<rShift)>>1
	minG := (bG << boxGShift) + (1<<gShift)>>1
	minB := (bB << boxBShift) + (1<<bShift)>>1

	var colorlist [MaxColors]int
	n := rm.findNearby(minR, minG, minB, colorlist[:])

	var bestcolor [boxRElems * boxGElems * boxBElems]int
	rm.findBest(minR, minG, minB, n, colorlist[:], bestcolor[:])

	baseR := bR << boxRLog
	baseG := bG << boxGLog
	baseB := bB << boxBLog
	p := 0
	for iR := 0; iR < boxRElems; iR++ {
		for iG := 0; iG < boxGElems; iG++ {
			for iB := 0; iB < boxBElems; iB++ {
				rm.cache[cell(baseR+iR, baseG+iG, baseB+iB)] = int32(bestcolor[p] + 1)
				p++
			}
		}
	}
}
