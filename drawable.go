package pict

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/gopaint/pict/tile"
)

// Kind tags the three drawable variants.
type Kind int

// Drawable kinds.
const (
	KindLayer Kind = iota
	KindLayerMask
	KindChannel
)

// Drawable is the shared header of layers, layer masks and channels: a
// named, positioned pixel surface backed by a tile manager, with a
// cached small-resolution preview.
type Drawable struct {
	id      int
	kind    Kind
	name    string
	image   *Image
	visible bool

	offsetX int
	offsetY int
	width   int
	height  int
	dtype   ImageType

	tiles *tile.Manager

	preview      []byte
	previewW     int
	previewH     int
	previewValid bool

	parasites map[string]*Parasite
	dirty     bool
}

// AnyDrawable is satisfied by the three drawable variants.
type AnyDrawable interface {
	// Base returns the shared drawable header.
	Base() *Drawable
}

// Base returns d itself; embedding gives every variant this accessor.
func (d *Drawable) Base() *Drawable { return d }

// initDrawable fills the shared header and registers the identity.
func (d *Drawable) initDrawable(img *Image, kind Kind, w, h int, t ImageType, name string) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: drawable size %dx%d", ErrInvalidArgument, w, h)
	}
	tiles, err := tile.NewManager(w, h, t.Bytes())
	if err != nil {
		return err
	}
	d.id = img.ctx.allocDrawableID()
	d.kind = kind
	d.name = norm.NFC.String(name)
	d.image = img
	d.visible = true
	d.width = w
	d.height = h
	d.dtype = t
	d.tiles = tiles
	d.parasites = make(map[string]*Parasite)
	return nil
}

// ID returns the drawable's stable identity.
func (d *Drawable) ID() int { return d.id }

// Kind returns the drawable's variant tag.
func (d *Drawable) Kind() Kind { return d.kind }

// Name returns the drawable's name.
func (d *Drawable) Name() string { return d.name }

// SetName renames the drawable; names are NFC-normalized UTF-8.
func (d *Drawable) SetName(name string) { d.name = norm.NFC.String(name) }

// Image returns the owning image.
func (d *Drawable) Image() *Image { return d.image }

// Visible reports the visibility flag.
func (d *Drawable) Visible() bool { return d.visible }

// SetVisible sets the visibility flag.
func (d *Drawable) SetVisible(v bool) { d.visible = v }

// Width returns the drawable's width.
func (d *Drawable) Width() int { return d.width }

// Height returns the drawable's height.
func (d *Drawable) Height() int { return d.height }

// Offsets returns the drawable's position relative to the image origin.
func (d *Drawable) Offsets() (x, y int) { return d.offsetX, d.offsetY }

// Type returns the drawable's pixel type.
func (d *Drawable) Type() ImageType { return d.dtype }

// Bytes returns the drawable's pixel width in bytes.
func (d *Drawable) Bytes() int { return d.dtype.Bytes() }

// HasAlpha reports whether the drawable carries an alpha channel.
func (d *Drawable) HasAlpha() bool { return d.dtype.HasAlpha() }

// Tiles returns the drawable's tile manager. The drawable owns it
// exclusively; external holders must not outlive the drawable.
func (d *Drawable) Tiles() *tile.Manager { return d.tiles }

// Update marks a rectangle of the drawable modified: the preview is
// dropped and the drawable flagged dirty. Display refresh is the
// caller's concern.
func (d *Drawable) Update(x, y, w, h int) {
	d.previewValid = false
	d.dirty = true
}

// InvalidatePreview drops the cached preview.
func (d *Drawable) InvalidatePreview() { d.previewValid = false }

// region opens a pixel region over the drawable's own coordinates.
func (d *Drawable) region(x, y, w, h int, writable bool) *tile.Region {
	return tile.NewRegion(d.tiles, x, y, w, h, writable)
}

// fill floods the whole drawable with one pixel value.
func (d *Drawable) fill(px []byte) error {
	return tile.FillRegion(d.region(0, 0, d.width, d.height, true), px)
}

// MaskBounds intersects the image's selection with the drawable's
// footprint, returning bounds in drawable coordinates. The boolean
// reports whether a selection exists; with no selection the full extent
// is returned.
func (d *Drawable) MaskBounds() (x1, y1, x2, y2 int, nonEmpty bool) {
	sel := d.image.selection
	sx1, sy1, sx2, sy2, nonEmpty := sel.Bounds()
	if !nonEmpty {
		return 0, 0, d.width, d.height, false
	}
	sx1 -= d.offsetX
	sy1 -= d.offsetY
	sx2 -= d.offsetX
	sy2 -= d.offsetY
	x1 = clampInt(sx1, 0, d.width)
	y1 = clampInt(sy1, 0, d.height)
	x2 = clampInt(sx2, 0, d.width)
	y2 = clampInt(sy2, 0, d.height)
	return x1, y1, x2, y2, true
}
