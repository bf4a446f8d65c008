package quant

// box is one partition of color space during median cut.
type box struct {
	rMin, rMax int
	gMin, gMax int
	bMin, bMax int
	volume     int
	count      int64
}

// updateBoxGray shrinks a gray box to its populated extent and
// recomputes volume and population.
func updateBoxGray(h *GrayHistogram, b *box) {
	min, max := b.rMin, b.rMax
	if max > min {
		for i := min; i <= max; i++ {
			if h[i] != 0 {
				min = i
				break
			}
		}
		b.rMin = min
	}
	if max > min {
		for i := max; i >= min; i-- {
			if h[i] != 0 {
				max = i
				break
			}
		}
		b.rMax = max
	}
	dist := max - min
	b.volume = dist * dist
	var count int64
	for i := min; i <= max; i++ {
		if h[i] != 0 {
			count++
		}
	}
	b.count = count
}

// updateBoxRGB shrinks an RGB box to its populated extent and recomputes
// the 2-norm volume (which biases splitting against long narrow boxes
// and makes a box splittable iff volume > 0) and population.
func updateBoxRGB(h RGBHistogram, b *box) {
	rMin, rMax := b.rMin, b.rMax
	gMin, gMax := b.gMin, b.gMax
	bMin, bMax := b.bMin, b.bMax

	planeUsed := func(fix, axis int) bool {
		switch axis {
		case 0:
			for g := gMin; g <= gMax; g++ {
				for bb := bMin; bb <= bMax; bb++ {
					if h[cell(fix, g, bb)] != 0 {
						return true
					}
				}
			}
		case 1:
			for r := rMin; r <= rMax; r++ {
				for bb := bMin; bb <= bMax; bb++ {
					if h[cell(r, fix, bb)] != 0 {
						return true
					}
				}
			}
		default:
			for r := rMin; r <= rMax; r++ {
				for g := gMin; g <= gMax; g++ {
					if h[cell(r, g, fix)] != 0 {
						return true
					}
				}
			}
		}
		return false
	}

	for rMax > rMin && !planeUsed(rMin, 0) {
		rMin++
	}
	for rMax > rMin && !planeUsed(rMax, 0) {
		rMax--
	}
	for gMax > gMin && !planeUsed(gMin, 1) {
		gMin++
	}
	for gMax > gMin && !planeUsed(gMax, 1) {
		gMax--
	}
	for bMax > bMin && !planeUsed(bMin, 2) {
		bMin++
	}
	for bMax > bMin && !planeUsed(bMax, 2) {
		bMax--
	}
	b.rMin, b.rMax = rMin, rMax
	b.gMin, b.gMax = gMin, gMax
	b.bMin, b.bMax = bMin, bMax

	d0 := ((rMax - rMin) << rShift) * rScale
	d1 := ((gMax - gMin) << gShift) * gScale
	d2 := ((bMax - bMin) << bShift) * bScale
	b.volume = d0*d0 + d1*d1 + d2*d2

	var count int64
	for r := rMin; r <= rMax; r++ {
		for g := gMin; g <= gMax; g++ {
			for bb := bMin; bb <= bMax; bb++ {
				if h[cell(r, g, bb)] != 0 {
					count++
				}
			}
		}
	}
	b.count = count
}

// pickBox selects the next box to split: largest population for the
// first half of the desired colors, largest volume thereafter. A box
// with more than one color is splittable.
func pickBox(boxes []box, byPopulation bool) *box {
	var best *box
	if byPopulation {
		var max int64
		for i := range boxes {
			if boxes[i].count > max && boxes[i].volume > 0 {
				best = &boxes[i]
				max = boxes[i].count
			}
		}
	} else {
		max := 0
		for i := range boxes {
			if boxes[i].volume > max {
				best = &boxes[i]
				max = boxes[i].volume
			}
		}
	}
	return best
}

// medianCutGray splits gray boxes until desired boxes exist or nothing
// is splittable, returning the final count.
func medianCutGray(h *GrayHistogram, boxes []box, numBoxes, desired int) int {
	for numBoxes < desired {
		b1 := pickBox(boxes[:numBoxes], numBoxes*2 <= desired)
		if b1 == nil {
			break
		}
		b2 := &boxes[numBoxes]
		b2.rMax = b1.rMax
		lb := (b1.rMax + b1.rMin) / 2
		b1.rMax = lb
		b2.rMin = lb + 1
		updateBoxGray(h, b1)
		updateBoxGray(h, b2)
		numBoxes++
	}
	return numBoxes
}

// medianCutRGB splits RGB boxes on their longest scaled axis until
// desired boxes exist, breaking ties in favor of green, then red.
func medianCutRGB(h RGBHistogram, boxes []box, numBoxes, desired int) int {
	for numBoxes < desired {
		b1 := pickBox(boxes[:numBoxes], numBoxes*2 <= desired)
		if b1 == nil {
			break
		}
		b2 := &boxes[numBoxes]
		*b2 = *b1

		r := ((b1.rMax - b1.rMin) << rShift) * rScale
		g := ((b1.gMax - b1.gMin) << gShift) * gScale
		bb := ((b1.bMax - b1.bMin) << bShift) * bScale
		axis := 1
		cmax := g
		if r > cmax {
			cmax = r
			axis = 0
		}
		if bb > cmax {
			axis = 2
		}

		switch axis {
		case 0:
			lb := (b1.rMax + b1.rMin) / 2
			b1.rMax = lb
			b2.rMin = lb + 1
		case 1:
			lb := (b1.gMax + b1.gMin) / 2
			b1.gMax = lb
			b2.gMin = lb + 1
		default:
			lb := (b1.bMax + b1.bMin) / 2
			b1.bMax = lb
			b2.bMin = lb + 1
		}
		updateBoxRGB(h, b1)
		updateBoxRGB(h, b2)
		numBoxes++
	}
	return numBoxes
}

// computeColorGray fills the population-weighted mean value for a box.
func computeColorGray(h *GrayHistogram, b *box) Color {
	var total, gTotal uint64
	for i := b.rMin; i <= b.rMax; i++ {
		if c := h[i]; c != 0 {
			total += c
			gTotal += uint64(i) * c
		}
	}
	if total == 0 {
		return Color{}
	}
	v := byte((gTotal + total/2) / total)
	return Color{R: v, G: v, B: v}
}

// computeColorRGB fills the population-weighted centroid for a box,
// mapping cell coordinates back to byte midpoints.
func computeColorRGB(h RGBHistogram, b *box) Color {
	var total, rT, gT, bT uint64
	for r := b.rMin; r <= b.rMax; r++ {
		for g := b.gMin; g <= b.gMax; g++ {
			for bb := b.bMin; bb <= b.bMax; bb++ {
				c := h[cell(r, g, bb)]
				if c == 0 {
					continue
				}
				total += c
				rT += uint64((r<<rShift)+(1<<rShift)/2) * c
				gT += uint64((g<<gShift)+(1<<gShift)/2) * c
				bT += uint64((bb<<bShift)+(1<<bShift)/2) * c
			}
		}
	}
	if total == 0 {
		return Color{}
	}
	return Color{
		R: byte((rT + total/2) / total),
		G: byte((gT + total/2) / total),
		B: byte((bT + total/2) / total),
	}
}

// SelectGray runs median cut over a gray histogram and returns the
// palette, at most desired entries.
func SelectGray(h *GrayHistogram, desired int) []Color {
	if desired > MaxColors {
		desired = MaxColors
	}
	boxes := make([]box, desired)
	boxes[0] = box{rMin: 0, rMax: 255}
	updateBoxGray(h, &boxes[0])
	n := medianCutGray(h, boxes, 1, desired)
	cmap := make([]Color, n)
	for i := 0; i < n; i++ {
		cmap[i] = computeColorGray(h, &boxes[i])
	}
	return cmap
}

// SelectRGB runs median cut over an RGB histogram and returns the
// palette, at most desired entries.
func SelectRGB(h RGBHistogram, desired int) []Color {
	if desired > MaxColors {
		desired = MaxColors
	}
	boxes := make([]box, desired)
	boxes[0] = box{
		rMax: histRElems - 1,
		gMax: histGElems - 1,
		bMax: histBElems - 1,
	}
	updateBoxRGB(h, &boxes[0])
	n := medianCutRGB(h, boxes, 1, desired)
	cmap := make([]Color, n)
	for i := 0; i < n; i++ {
		cmap[i] = computeColorRGB(h, &boxes[i])
	}
	return cmap
}
