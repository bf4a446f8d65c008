package pict

import "fmt"

// Guide is a positional marker on the image: a horizontal or vertical
// line at a fixed image-space position. A negative position marks a
// deleted guide kept alive only by undo references.
type Guide struct {
	id          int
	orientation Orientation
	position    int
	refCount    int
}

// ID returns the guide identifier.
func (g *Guide) ID() int { return g.id }

// Orientation returns the guide orientation.
func (g *Guide) Orientation() Orientation { return g.orientation }

// Position returns the guide position, negative when deleted.
func (g *Guide) Position() int { return g.position }

// AddHGuide adds a horizontal guide at the given y.
func (img *Image) AddHGuide(y int) (*Guide, error) {
	if y < 0 || y > img.height {
		return nil, fmt.Errorf("%w: hguide at %d on height %d", ErrOutOfRange, y, img.height)
	}
	return img.addGuide(Horizontal, y), nil
}

// AddVGuide adds a vertical guide at the given x.
func (img *Image) AddVGuide(x int) (*Guide, error) {
	if x < 0 || x > img.width {
		return nil, fmt.Errorf("%w: vguide at %d on width %d", ErrOutOfRange, x, img.width)
	}
	return img.addGuide(Vertical, x), nil
}

func (img *Image) addGuide(o Orientation, pos int) *Guide {
	img.nextGuideID++
	g := &Guide{id: img.nextGuideID, orientation: o, position: pos}
	img.guides = append(img.guides, g)
	return g
}

// GuideByID resolves a guide identifier.
func (img *Image) GuideByID(id int) (*Guide, error) {
	for _, g := range img.guides {
		if g.id == id {
			return g, nil
		}
	}
	return nil, errNotFound("guide", id)
}

// DeleteGuide marks a guide deleted. The guide object survives while
// undo records reference it.
func (img *Image) DeleteGuide(id int) error {
	g, err := img.GuideByID(id)
	if err != nil {
		return err
	}
	img.pushGuide(g)
	g.position = -1
	img.pruneGuide(g)
	return nil
}

// pruneGuide removes a deleted, unreferenced guide from the list.
func (img *Image) pruneGuide(g *Guide) {
	if g.position >= 0 || g.refCount > 0 {
		return
	}
	for i, x := range img.guides {
		if x == g {
			img.guides = append(img.guides[:i], img.guides[i+1:]...)
			return
		}
	}
}

// FindNextGuide iterates the live guides: pass 0 to seed, then the
// previous result. A zero return ends the iteration.
func (img *Image) FindNextGuide(prevID int) int {
	seen := prevID == 0
	for _, g := range img.guides {
		if g.position < 0 {
			continue
		}
		if seen {
			return g.id
		}
		if g.id == prevID {
			seen = true
		}
	}
	return 0
}
