package pict

import (
	"fmt"

	"github.com/gopaint/pict/tile"
)

// Image owns the layer and channel lists, the selection mask, the
// colormap, guides, parasites and the undo machinery. All mutating entry
// points run to completion; the core assumes a single mutating actor per
// image.
type Image struct {
	ctx *Context
	id  int

	width    int
	height   int
	baseType BaseType

	cmap    []byte // 3 bytes per entry, at most 768
	numCols int

	xres     float64
	yres     float64
	unit     Unit
	filename string

	layers   []*Layer // topmost first
	channels []*Channel

	selection     *Channel
	activeLayer   *Layer
	activeChannel *Channel
	floatingSel   *Layer
	layerStack    []*Layer // activation order, most recent first

	guides      []*Guide
	nextGuideID int

	parasites map[string]*Parasite

	qmaskState bool
	qmaskColor [3]byte

	drawables map[int]AnyDrawable

	// Cached projection; see projection.go.
	projection *tile.Manager
	projValid  bool

	// Undo state; see undo.go.
	undoStack    []*undoRecord
	redoStack    []*undoRecord
	undoBytes    int64
	undoLevels   int
	undoOn       bool
	groupCount   int
	pushingGroup UndoKind
	freezeCount  int
	dirty        int
	onUndoEvent  UndoEventFunc

	refCount int
}

// NewImage creates an image with an empty layer list and a fresh, empty
// selection channel.
func (c *Context) NewImage(w, h int, base BaseType) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrInvalidArgument, w, h)
	}
	if !base.Valid() {
		return nil, fmt.Errorf("%w: base type %d", ErrInvalidArgument, int(base))
	}
	c.nextImageID++
	img := &Image{
		ctx:        c,
		id:         c.nextImageID,
		width:      w,
		height:     h,
		baseType:   base,
		xres:       c.cfg.DefaultResolution,
		yres:       c.cfg.DefaultResolution,
		unit:       c.cfg.DefaultUnit,
		parasites:  make(map[string]*Parasite),
		drawables:  make(map[int]AnyDrawable),
		qmaskColor: c.cfg.QmaskColor,
		undoOn:     true,
		refCount:   1,
	}
	sel, err := newChannel(img, w, h, "Selection Mask", 127, [3]byte{})
	if err != nil {
		return nil, err
	}
	sel.boundsKnown = true
	sel.empty = true
	img.selection = sel
	img.registerDrawable(sel)
	c.images[img.id] = img
	return img, nil
}

// ID returns the image identifier.
func (img *Image) ID() int { return img.id }

// Width returns the image width.
func (img *Image) Width() int { return img.width }

// Height returns the image height.
func (img *Image) Height() int { return img.height }

// BaseType returns the image's color model.
func (img *Image) BaseType() BaseType { return img.baseType }

// Filename returns the display filename.
func (img *Image) Filename() string { return img.filename }

// SetFilename sets the display filename.
func (img *Image) SetFilename(name string) { img.filename = name }

// Resolution returns the image resolution in dots per unit.
func (img *Image) Resolution() (x, y float64) { return img.xres, img.yres }

// SetResolution sets the image resolution.
func (img *Image) SetResolution(x, y float64) error {
	if x <= 0 || y <= 0 {
		return fmt.Errorf("%w: resolution %gx%g", ErrInvalidArgument, x, y)
	}
	img.xres, img.yres = x, y
	return nil
}

// Unit returns the resolution unit.
func (img *Image) Unit() Unit { return img.unit }

// SetUnit sets the resolution unit.
func (img *Image) SetUnit(u Unit) { img.unit = u }

// Ref increments the image reference count.
func (img *Image) Ref() { img.refCount++ }

// Unref decrements the reference count; the final release frees all
// drawables and drains both undo stacks.
func (img *Image) Unref() {
	img.refCount--
	if img.refCount > 0 {
		return
	}
	img.UndoFree()
	delete(img.ctx.images, img.id)
	img.layers = nil
	img.channels = nil
	img.drawables = nil
}

// Colormap returns the indexed colormap, nil for non-indexed images.
func (img *Image) Colormap() ([]byte, error) {
	if img.baseType != Indexed {
		return nil, fmt.Errorf("%w: colormap on %v image", ErrTypeMismatch, img.baseType)
	}
	return img.cmap, nil
}

// SetColormap installs an indexed colormap; the size must be a multiple
// of three, at most 768 bytes.
func (img *Image) SetColormap(cmap []byte) error {
	if img.baseType != Indexed {
		return fmt.Errorf("%w: colormap on %v image", ErrTypeMismatch, img.baseType)
	}
	if len(cmap) == 0 || len(cmap)%3 != 0 || len(cmap) > 768 {
		return fmt.Errorf("%w: colormap size %d", ErrInvalidArgument, len(cmap))
	}
	img.cmap = append([]byte(nil), cmap...)
	img.numCols = len(cmap) / 3
	img.invalidateComposite()
	return nil
}

// Selection returns the image's distinguished selection channel.
func (img *Image) Selection() *Channel { return img.selection }

// FloatingSelection returns the floating-selection layer, or nil.
func (img *Image) FloatingSelection() *Layer { return img.floatingSel }

// ActiveLayer returns the active layer, or nil.
func (img *Image) ActiveLayer() *Layer { return img.activeLayer }

// ActiveChannel returns the active channel, or nil.
func (img *Image) ActiveChannel() *Channel { return img.activeChannel }

// SetActiveChannel makes a channel active.
func (img *Image) SetActiveChannel(ch *Channel) error {
	if ch != nil && img.channelIndex(ch) < 0 {
		return errNotFound("channel", ch.id)
	}
	img.activeChannel = ch
	return nil
}

// Layers returns the layer list, topmost first. The slice is shared;
// callers must not mutate it.
func (img *Image) Layers() []*Layer { return img.layers }

// Channels returns the channel list. The slice is shared; callers must
// not mutate it.
func (img *Image) Channels() []*Channel { return img.channels }

// registerDrawable records a drawable identity for lookups.
func (img *Image) registerDrawable(d AnyDrawable) {
	img.drawables[d.Base().id] = d
}

// unregisterDrawable forgets an identity once the drawable is finally
// freed (not merely removed from a list: undo may resurrect it).
func (img *Image) unregisterDrawable(id int) {
	delete(img.drawables, id)
}

// Drawable resolves a drawable identity.
func (img *Image) Drawable(id int) (AnyDrawable, error) {
	d, ok := img.drawables[id]
	if !ok {
		return nil, errNotFound("drawable", id)
	}
	return d, nil
}

// LayerByID resolves a layer identity.
func (img *Image) LayerByID(id int) (*Layer, error) {
	d, err := img.Drawable(id)
	if err != nil {
		return nil, err
	}
	l, ok := d.(*Layer)
	if !ok {
		return nil, fmt.Errorf("%w: drawable %d is not a layer", ErrTypeMismatch, id)
	}
	return l, nil
}

// ChannelByID resolves a channel identity.
func (img *Image) ChannelByID(id int) (*Channel, error) {
	d, err := img.Drawable(id)
	if err != nil {
		return nil, err
	}
	ch, ok := d.(*Channel)
	if !ok {
		return nil, fmt.Errorf("%w: drawable %d is not a channel", ErrTypeMismatch, id)
	}
	return ch, nil
}

// ChannelByName finds a channel by name, or nil.
func (img *Image) ChannelByName(name string) *Channel {
	for _, ch := range img.channels {
		if ch.name == name {
			return ch
		}
	}
	return nil
}

// NewLayer creates a detached layer compatible with the image.
func (img *Image) NewLayer(w, h int, t ImageType, name string, opacity int, mode LayerMode) (*Layer, error) {
	return newLayer(img, w, h, t, name, opacity, mode)
}

// layerIndex returns the position of a layer, or -1.
func (img *Image) layerIndex(l *Layer) int {
	for i, x := range img.layers {
		if x == l {
			return i
		}
	}
	return -1
}

// channelIndex returns the position of a channel, or -1.
func (img *Image) channelIndex(ch *Channel) int {
	for i, x := range img.channels {
		if x == ch {
			return i
		}
	}
	return -1
}

// AddLayer inserts a layer at the given position (0 is topmost) and
// makes it active. A floating selection pins position 0.
func (img *Image) AddLayer(l *Layer, position int) error {
	if l.dtype.Base() != img.baseType {
		return fmt.Errorf("%w: %v layer on %v image", ErrTypeMismatch, l.dtype, img.baseType)
	}
	if img.layerIndex(l) >= 0 {
		return fmt.Errorf("%w: layer %d already added", ErrIllegalState, l.id)
	}
	position = clampInt(position, 0, len(img.layers))
	if img.floatingSel != nil && position == 0 && img.floatingSel != l {
		position = 1
	}
	img.pushLayerAdd(l, position)
	img.insertLayer(l, position)
	img.invalidateComposite()
	return nil
}

// insertLayer splices a layer into the list and activation stack.
func (img *Image) insertLayer(l *Layer, position int) {
	position = clampInt(position, 0, len(img.layers))
	img.layers = append(img.layers, nil)
	copy(img.layers[position+1:], img.layers[position:])
	img.layers[position] = l
	img.layerStack = append([]*Layer{l}, img.layerStack...)
	img.activeLayer = l
	img.registerDrawable(l)
	if l.mask != nil {
		img.registerDrawable(l.mask)
	}
	// A re-inserted float is the floating selection again.
	if l.fs != nil {
		img.floatingSel = l
	}
}

// RemoveLayer takes a layer out of the list. The layer survives in the
// undo stack and may be reinserted by a pop.
func (img *Image) RemoveLayer(l *Layer) error {
	idx := img.layerIndex(l)
	if idx < 0 {
		return errNotFound("layer", l.id)
	}
	img.pushLayerRemove(l, idx)
	img.detachLayer(l)
	img.invalidateComposite()
	return nil
}

// detachLayer splices a layer out of the list and activation stack.
func (img *Image) detachLayer(l *Layer) {
	idx := img.layerIndex(l)
	if idx < 0 {
		return
	}
	img.layers = append(img.layers[:idx], img.layers[idx+1:]...)
	for i, x := range img.layerStack {
		if x == l {
			img.layerStack = append(img.layerStack[:i], img.layerStack[i+1:]...)
			break
		}
	}
	if img.floatingSel == l {
		img.floatingSel = nil
	}
	if img.activeLayer == l {
		if len(img.layerStack) > 0 {
			img.activeLayer = img.layerStack[0]
		} else {
			img.activeLayer = nil
		}
	}
}

// SetActiveLayer activates a member of the layer list.
func (img *Image) SetActiveLayer(l *Layer) error {
	if img.layerIndex(l) < 0 {
		return errNotFound("layer", l.id)
	}
	for i, x := range img.layerStack {
		if x == l {
			img.layerStack = append(img.layerStack[:i], img.layerStack[i+1:]...)
			break
		}
	}
	img.layerStack = append([]*Layer{l}, img.layerStack...)
	img.activeLayer = l
	return nil
}

// RaiseLayer moves a layer one step toward the top.
func (img *Image) RaiseLayer(l *Layer) error { return img.reorderLayer(l, -1) }

// LowerLayer moves a layer one step toward the bottom.
func (img *Image) LowerLayer(l *Layer) error { return img.reorderLayer(l, +1) }

// RaiseLayerToTop moves a layer to the top of the list (below a
// floating selection, which pins the top slot).
func (img *Image) RaiseLayerToTop(l *Layer) error {
	idx := img.layerIndex(l)
	if idx < 0 {
		return errNotFound("layer", l.id)
	}
	top := 0
	if img.floatingSel != nil && img.floatingSel != l {
		top = 1
	}
	img.layers = append(img.layers[:idx], img.layers[idx+1:]...)
	img.layers = append(img.layers, nil)
	copy(img.layers[top+1:], img.layers[top:])
	img.layers[top] = l
	img.invalidateComposite()
	return nil
}

// LowerLayerToBottom moves a layer to the bottom of the list.
func (img *Image) LowerLayerToBottom(l *Layer) error {
	idx := img.layerIndex(l)
	if idx < 0 {
		return errNotFound("layer", l.id)
	}
	img.layers = append(img.layers[:idx], img.layers[idx+1:]...)
	img.layers = append(img.layers, l)
	img.invalidateComposite()
	return nil
}

func (img *Image) reorderLayer(l *Layer, dir int) error {
	idx := img.layerIndex(l)
	if idx < 0 {
		return errNotFound("layer", l.id)
	}
	to := idx + dir
	if to < 0 || to >= len(img.layers) {
		return fmt.Errorf("%w: layer %d cannot move further", ErrIllegalState, l.id)
	}
	img.layers[idx], img.layers[to] = img.layers[to], img.layers[idx]
	img.invalidateComposite()
	return nil
}

// NewChannel creates a channel and adds it to the channel list.
// Opacity is given on the user scale 0..100.
func (img *Image) NewChannel(w, h int, name string, opacity int, color [3]byte) (*Channel, error) {
	if opacity < 0 || opacity > 100 {
		return nil, fmt.Errorf("%w: channel opacity %d", ErrInvalidArgument, opacity)
	}
	if w != img.width || h != img.height {
		return nil, fmt.Errorf("%w: channel %dx%d on %dx%d image", ErrInvalidArgument,
			w, h, img.width, img.height)
	}
	ch, err := newChannel(img, w, h, name, opacity*255/100, color)
	if err != nil {
		return nil, err
	}
	if err := img.AddChannel(ch, 0); err != nil {
		return nil, err
	}
	return ch, nil
}

// AddChannel inserts a channel at the given position and makes it
// active.
func (img *Image) AddChannel(ch *Channel, position int) error {
	if img.channelIndex(ch) >= 0 {
		return fmt.Errorf("%w: channel %d already added", ErrIllegalState, ch.id)
	}
	img.pushChannelAdd(ch, position)
	img.insertChannel(ch, position)
	return nil
}

func (img *Image) insertChannel(ch *Channel, position int) {
	position = clampInt(position, 0, len(img.channels))
	img.channels = append(img.channels, nil)
	copy(img.channels[position+1:], img.channels[position:])
	img.channels[position] = ch
	img.activeChannel = ch
	img.registerDrawable(ch)
}

// RemoveChannel takes a channel out of the list.
func (img *Image) RemoveChannel(ch *Channel) error {
	idx := img.channelIndex(ch)
	if idx < 0 {
		return errNotFound("channel", ch.id)
	}
	img.pushChannelRemove(ch, idx)
	img.detachChannel(ch)
	return nil
}

func (img *Image) detachChannel(ch *Channel) {
	idx := img.channelIndex(ch)
	if idx < 0 {
		return
	}
	img.channels = append(img.channels[:idx], img.channels[idx+1:]...)
	if img.activeChannel == ch {
		if len(img.channels) > 0 {
			img.activeChannel = img.channels[0]
		} else {
			img.activeChannel = nil
		}
	}
}

// invalidateComposite drops the cached projection after a visible
// change; it is recomputed on demand.
func (img *Image) invalidateComposite() {
	img.projValid = false
	img.projection = nil
}

// CleanAll resets the dirty counter: the image matches its stored copy.
func (img *Image) CleanAll() { img.dirty = 0 }

// Dirty reports the dirty counter.
func (img *Image) Dirty() int { return img.dirty }

// markDirty advances the dirty counter.
func (img *Image) markDirty() { img.dirty++ }

// markClean retreats the dirty counter after an undo.
func (img *Image) markClean() { img.dirty-- }

// Resize grows or crops the image canvas; layers keep their contents
// and shift by the offset, the selection and channels resize with the
// canvas.
func (img *Image) Resize(newW, newH, offX, offY int) error {
	if newW <= 0 || newH <= 0 {
		return fmt.Errorf("%w: resize to %dx%d", ErrInvalidArgument, newW, newH)
	}
	img.PushGroupStart(UndoGroupImageResize)
	defer img.PushGroupEnd()

	if img.floatingSel != nil {
		img.floatingSel.fs.relax(img.floatingSel, true)
	}

	img.pushImageMod()
	img.width, img.height = newW, newH

	for _, ch := range img.channels {
		img.pushChannelMod(ch)
		if err := ch.resizeToImage(offX, offY); err != nil {
			return err
		}
	}
	img.pushChannelMod(img.selection)
	if err := img.selection.resizeToImage(offX, offY); err != nil {
		return err
	}

	for _, l := range img.layers {
		img.pushLayerDisplace(l)
		l.translateRaw(offX, offY)
	}

	if img.floatingSel != nil {
		img.floatingSel.fs.rigor(img.floatingSel, true)
	}
	img.invalidateComposite()
	return nil
}

// resizeToImage rebuilds a channel at the image extent, shifting the
// old content by the offset.
func (ch *Channel) resizeToImage(offX, offY int) error {
	img := ch.image
	tiles, err := resizeManager(ch.tiles, 1, img.width, img.height, offX, offY)
	if err != nil {
		return err
	}
	ch.tiles = tiles
	ch.width, ch.height = img.width, img.height
	ch.invalidateCaches()
	return nil
}

// Scale resamples the whole image: every layer, every channel and the
// selection, preserving relative layer positions.
func (img *Image) Scale(newW, newH int) error {
	if newW <= 0 || newH <= 0 {
		return fmt.Errorf("%w: scale to %dx%d", ErrInvalidArgument, newW, newH)
	}
	img.PushGroupStart(UndoGroupImageScale)
	defer img.PushGroupEnd()

	if img.floatingSel != nil {
		img.floatingSel.fs.relax(img.floatingSel, true)
	}

	oldW, oldH := img.width, img.height
	img.pushImageMod()
	img.width, img.height = newW, newH

	for _, ch := range img.channels {
		img.pushChannelMod(ch)
		if err := ch.scaleToImage(); err != nil {
			return err
		}
	}
	img.pushChannelMod(img.selection)
	if err := img.selection.scaleToImage(); err != nil {
		return err
	}

	for _, l := range img.layers {
		img.pushLayerDisplace(l)
		oldX, oldY := l.offsetX, l.offsetY
		lw := scaleDim(l.width, newW, oldW)
		lh := scaleDim(l.height, newH, oldH)
		if err := l.Scale(lw, lh, false); err != nil {
			return err
		}
		l.offsetX = oldX * newW / oldW
		l.offsetY = oldY * newH / oldH
		if l.mask != nil {
			l.mask.offsetX, l.mask.offsetY = l.offsetX, l.offsetY
		}
	}

	if img.floatingSel != nil {
		img.floatingSel.fs.rigor(img.floatingSel, true)
	}
	img.invalidateComposite()
	return nil
}

func scaleDim(v, newT, oldT int) int {
	n := v * newT / oldT
	if n < 1 {
		n = 1
	}
	return n
}

// scaleToImage resamples a channel to the image extent.
func (ch *Channel) scaleToImage() error {
	img := ch.image
	tiles, err := resampleManager(ch.tiles, GrayImage, nil, img.width, img.height)
	if err != nil {
		return err
	}
	ch.tiles = tiles
	ch.width, ch.height = img.width, img.height
	ch.invalidateCaches()
	return nil
}

// Duplicate deep-copies the image: drawables, selection, colormap,
// guides, parasites and active pointers. Undo history does not travel.
func (img *Image) Duplicate() (*Image, error) {
	dup, err := img.ctx.NewImage(img.width, img.height, img.baseType)
	if err != nil {
		return nil, err
	}
	dup.xres, dup.yres, dup.unit = img.xres, img.yres, img.unit
	if img.cmap != nil {
		dup.cmap = append([]byte(nil), img.cmap...)
		dup.numCols = img.numCols
	}

	dup.undoOn = false
	var dupFloat *Layer
	for i := len(img.layers) - 1; i >= 0; i-- {
		l := img.layers[i]
		cp, cErr := l.copyInto(dup)
		if cErr != nil {
			return nil, cErr
		}
		dup.insertLayer(cp, 0)
		if img.activeLayer == l {
			dup.activeLayer = cp
		}
		if img.floatingSel == l {
			dupFloat = cp
		}
	}
	for i := len(img.channels) - 1; i >= 0; i-- {
		ch := img.channels[i]
		cp, cErr := ch.copyInto(dup)
		if cErr != nil {
			return nil, cErr
		}
		dup.insertChannel(cp, 0)
		if img.activeChannel == ch {
			dup.activeChannel = cp
		}
	}
	selCopy, err := img.selection.copyInto(dup)
	if err != nil {
		return nil, err
	}
	dup.selection = selCopy
	dup.registerDrawable(selCopy)
	dup.floatingSel = dupFloat
	if dupFloat != nil && dupFloat.fs != nil {
		// Re-point the float's target into the duplicate.
		switch target := img.floatingSel.fs.target.(type) {
		case *Layer:
			if idx := img.layerIndex(target); idx >= 0 {
				dupFloat.fs.target = dup.layers[idx]
			}
		case *LayerMask:
			if idx := img.layerIndex(target.layer); idx >= 0 && dup.layers[idx].mask != nil {
				dupFloat.fs.target = dup.layers[idx].mask
			}
		case *Channel:
			if target == img.selection {
				dupFloat.fs.target = dup.selection
			} else if idx := img.channelIndex(target); idx >= 0 {
				dupFloat.fs.target = dup.channels[idx]
			}
		}
	}

	for _, g := range img.guides {
		dup.nextGuideID++
		dup.guides = append(dup.guides, &Guide{
			id:          dup.nextGuideID,
			orientation: g.orientation,
			position:    g.position,
		})
	}
	for name, p := range img.parasites {
		dup.parasites[name] = p.clone()
	}
	dup.undoOn = true
	return dup, nil
}

// copyInto duplicates a layer into another image.
func (l *Layer) copyInto(dst *Image) (*Layer, error) {
	cp, err := newLayer(dst, l.width, l.height, l.dtype, l.name, l.opacity, l.mode)
	if err != nil {
		return nil, err
	}
	cp.offsetX, cp.offsetY = l.offsetX, l.offsetY
	cp.linked, cp.preserveAlpha = l.linked, l.preserveAlpha
	if err := copyManager(l.tiles, cp.tiles); err != nil {
		return nil, err
	}
	if l.mask != nil {
		mask, mErr := l.mask.copyFor(cp)
		if mErr != nil {
			return nil, mErr
		}
		cp.mask = mask
		cp.applyMask, cp.editMask, cp.showMask = l.applyMask, l.editMask, l.showMask
	}
	if l.fs != nil {
		cp.fs = &FloatingSel{initial: l.fs.initial}
		if l.fs.backingStore != nil {
			bs := l.fs.backingStore
			cpStore, bErr := cloneManager(bs)
			if bErr != nil {
				return nil, bErr
			}
			cp.fs.backingStore = cpStore
		}
	}
	return cp, nil
}

// copyInto duplicates a channel into another image.
func (ch *Channel) copyInto(dst *Image) (*Channel, error) {
	cp, err := newChannel(dst, ch.width, ch.height, ch.name, ch.opacity, ch.color)
	if err != nil {
		return nil, err
	}
	cp.showMasked = ch.showMasked
	if err := copyManager(ch.tiles, cp.tiles); err != nil {
		return nil, err
	}
	cp.x1, cp.y1, cp.x2, cp.y2 = ch.x1, ch.y1, ch.x2, ch.y2
	cp.boundsKnown, cp.empty = ch.boundsKnown, ch.empty
	return cp, nil
}
