package pict

import (
	"github.com/gopaint/pict/tile"
)

// Typed undo records. Every payload's pop function swaps its fields in
// place so that a second pop restores the first state.

// imageUndo is a rectangular pixel patch of one drawable. The dense
// form swaps pixels region-by-region; the sparse form swaps tile
// identities between the drawable and the payload manager.
type imageUndo struct {
	drawableID int
	x1, y1     int
	x2, y2     int
	tiles      *tile.Manager
	sparse     bool
}

// PushImageUndo snapshots a drawable rectangle ahead of a pixel
// mutation.
func (img *Image) PushImageUndo(d AnyDrawable, x1, y1, x2, y2 int) bool {
	base := d.Base()
	base.dirty = true

	x1 = clampInt(x1, 0, base.width)
	y1 = clampInt(y1, 0, base.height)
	x2 = clampInt(x2, 0, base.width)
	y2 = clampInt(y2, 0, base.height)
	if x2 <= x1 || y2 <= y1 {
		img.markDirty()
		return false
	}

	size := int64(x2-x1) * int64(y2-y1) * int64(base.Bytes())
	tiles, err := tile.NewManager(x2-x1, y2-y1, base.Bytes())
	if err != nil {
		img.markDirty()
		return false
	}
	src := tile.NewRegion(base.tiles, x1, y1, x2-x1, y2-y1, false)
	dst := tile.NewRegion(tiles, 0, 0, x2-x1, y2-y1, true)
	if err := tile.CopyRegion(src, dst); err != nil {
		img.markDirty()
		return false
	}

	payload := &imageUndo{
		drawableID: base.id,
		x1:         x1, y1: y1, x2: x2, y2: y2,
		tiles: tiles,
	}
	return img.push(UndoImage, size, payload, popImageUndo, nil, true) != nil
}

// PushImageModUndo adopts a caller-built snapshot manager, dense or
// sparse. Sparse managers cover the drawable's full extent with tiles
// demanded only where pixels changed.
func (img *Image) PushImageModUndo(d AnyDrawable, x1, y1, x2, y2 int, tiles *tile.Manager, sparse bool) bool {
	base := d.Base()
	base.dirty = true
	if tiles == nil {
		img.markDirty()
		return false
	}
	x1 = clampInt(x1, 0, base.width)
	y1 = clampInt(y1, 0, base.height)
	x2 = clampInt(x2, 0, base.width)
	y2 = clampInt(y2, 0, base.height)

	size := int64(tiles.Width()) * int64(tiles.Height()) * int64(tiles.Bpp())
	payload := &imageUndo{
		drawableID: base.id,
		x1:         x1, y1: y1, x2: x2, y2: y2,
		tiles:  tiles,
		sparse: sparse,
	}
	return img.push(UndoImageMod, size, payload, popImageUndo, nil, true) != nil
}

func popImageUndo(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*imageUndo)
	d, err := img.Drawable(u.drawableID)
	if err != nil {
		return false
	}
	base := d.Base()

	if !u.sparse {
		w, h := u.tiles.Width(), u.tiles.Height()
		a := tile.NewRegion(u.tiles, 0, 0, w, h, true)
		b := tile.NewRegion(base.tiles, u.x1, u.y1, w, h, true)
		if err := tile.SwapRegion(a, b); err != nil {
			return false
		}
	} else {
		// Tile identity moves between the managers; pixels stay put.
		for y := u.y1; y < u.y2; y += tile.Height - y%tile.Height {
			for x := u.x1; x < u.x2; x += tile.Width - x%tile.Width {
				t := u.tiles.PeekTile(x, y)
				if t == nil || !t.Valid() {
					continue
				}
				moved, err := base.tiles.MapTile(x, y, t)
				if err != nil {
					return false
				}
				if _, err := u.tiles.MapTile(x, y, moved); err != nil {
					return false
				}
			}
		}
	}

	base.Update(u.x1, u.y1, u.x2-u.x1, u.y2-u.y1)
	img.invalidateComposite()
	return true
}

// maskUndo holds the previous selection content of a channel plus its
// bounding rectangle.
type maskUndo struct {
	channelID int
	tiles     *tile.Manager // nil when the mask was empty
	x, y      int
}

// PushMaskUndo snapshots a channel's selected area.
func (img *Image) PushMaskUndo(ch *Channel) bool {
	payload := &maskUndo{channelID: ch.id}
	var size int64
	if x1, y1, x2, y2, nonEmpty := ch.Bounds(); nonEmpty {
		tiles, err := tile.NewManager(x2-x1, y2-y1, 1)
		if err != nil {
			return false
		}
		src := ch.region(x1, y1, x2-x1, y2-y1, false)
		dst := tile.NewRegion(tiles, 0, 0, x2-x1, y2-y1, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return false
		}
		payload.tiles = tiles
		payload.x, payload.y = x1, y1
		size = int64(x2-x1) * int64(y2-y1)
	}
	return img.push(UndoMask, size, payload, popMaskUndo, nil, false) != nil
}

func popMaskUndo(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*maskUndo)
	ch, err := img.ChannelByID(u.channelID)
	if err != nil {
		return false
	}

	// Save the current contents, clear, then paste the stored ones; the
	// payload swaps to the saved state for the counter-pop.
	var newTiles *tile.Manager
	var newX, newY int
	if x1, y1, x2, y2, nonEmpty := ch.Bounds(); nonEmpty {
		var cErr error
		newTiles, cErr = tile.NewManager(x2-x1, y2-y1, 1)
		if cErr != nil {
			return false
		}
		src := ch.region(x1, y1, x2-x1, y2-y1, false)
		dst := tile.NewRegion(newTiles, 0, 0, x2-x1, y2-y1, true)
		if cErr := tile.CopyRegion(src, dst); cErr != nil {
			return false
		}
		newX, newY = x1, y1
		if cErr := tile.FillRegion(ch.region(x1, y1, x2-x1, y2-y1, true), []byte{0}); cErr != nil {
			return false
		}
	}

	if u.tiles != nil {
		w, h := u.tiles.Width(), u.tiles.Height()
		src := tile.NewRegion(u.tiles, 0, 0, w, h, false)
		dst := ch.region(u.x, u.y, w, h, true)
		if err := tile.CopyRegion(src, dst); err != nil {
			return false
		}
		ch.empty = false
		ch.x1, ch.y1 = u.x, u.y
		ch.x2 = clampInt(u.x+w, 0, ch.width)
		ch.y2 = clampInt(u.y+h, 0, ch.height)
	} else {
		ch.empty = true
		ch.x1, ch.y1 = 0, 0
		ch.x2, ch.y2 = ch.width, ch.height
	}
	ch.boundsKnown = true
	ch.boundaryKnown = false
	ch.previewValid = false

	u.tiles = newTiles
	u.x, u.y = newX, newY
	return true
}

// layerDisplace is a layer identity plus its former offsets.
type layerDisplace struct {
	layerID int
	x, y    int
}

// pushLayerDisplace records a layer's offsets ahead of a move.
func (img *Image) pushLayerDisplace(l *Layer) bool {
	payload := &layerDisplace{layerID: l.id, x: l.offsetX, y: l.offsetY}
	return img.push(UndoLayerDisplace, 12, payload, popLayerDisplace, nil, true) != nil
}

// PushLayerDisplaceUndo is the exported displacement push for tool
// layers driving a drag.
func (img *Image) PushLayerDisplaceUndo(l *Layer) bool { return img.pushLayerDisplace(l) }

func popLayerDisplace(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerDisplace)
	l, err := img.LayerByID(u.layerID)
	if err != nil {
		return false
	}
	oldX, oldY := l.offsetX, l.offsetY
	l.offsetX, l.offsetY = u.x, u.y
	if l.mask != nil {
		l.mask.offsetX, l.mask.offsetY = u.x, u.y
	}
	l.invalidateBoundary()
	img.invalidateComposite()
	u.x, u.y = oldX, oldY
	return true
}

// layerMod swaps a layer's whole pixel store and type.
type layerMod struct {
	layerID int
	tiles   *tile.Manager
	dtype   ImageType
}

// pushLayerMod snapshots a layer's tile manager ahead of a structural
// rewrite (scale, resize, type change).
func (img *Image) pushLayerMod(l *Layer) bool {
	tiles, err := cloneManager(l.tiles)
	if err != nil {
		return false
	}
	payload := &layerMod{layerID: l.id, tiles: tiles, dtype: l.dtype}
	size := int64(l.width) * int64(l.height) * int64(l.Bytes())
	return img.push(UndoLayerMod, size, payload, popLayerMod, nil, true) != nil
}

func popLayerMod(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerMod)
	l, err := img.LayerByID(u.layerID)
	if err != nil {
		return false
	}
	oldTiles, oldType := l.tiles, l.dtype
	l.tiles = u.tiles
	l.dtype = u.dtype
	l.width = u.tiles.Width()
	l.height = u.tiles.Height()
	l.previewValid = false
	l.invalidateBoundary()
	img.invalidateComposite()
	u.tiles, u.dtype = oldTiles, oldType
	return true
}

// layerMaskRef pairs a layer with a mask for the add/remove records.
type layerMaskRef struct {
	layer *Layer
	mask  *LayerMask
	mode  MaskApplyMode
	apply bool
	edit  bool
	show  bool
}

func (img *Image) pushLayerMaskAdd(l *Layer, m *LayerMask) bool {
	payload := &layerMaskRef{layer: l, mask: m}
	return img.push(UndoLayerMaskAdd, int64(m.width)*int64(m.height), payload, popLayerMaskAdd, freeLayerMask, true) != nil
}

func popLayerMaskAdd(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerMaskRef)
	if dir == DirUndo {
		u.apply, u.edit, u.show = u.layer.applyMask, u.layer.editMask, u.layer.showMask
		u.layer.mask = nil
		u.layer.applyMask = false
		u.layer.editMask = false
		u.layer.showMask = false
	} else {
		u.layer.mask = u.mask
		u.layer.applyMask, u.layer.editMask, u.layer.showMask = u.apply, u.edit, u.show
	}
	u.layer.Update(0, 0, u.layer.width, u.layer.height)
	img.invalidateComposite()
	return true
}

func (img *Image) pushLayerMaskRemove(l *Layer, m *LayerMask, mode MaskApplyMode) bool {
	payload := &layerMaskRef{layer: l, mask: m, mode: mode, apply: true, edit: true}
	return img.push(UndoLayerMaskRemove, int64(m.width)*int64(m.height), payload, popLayerMaskRemove, freeLayerMask, true) != nil
}

func popLayerMaskRemove(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerMaskRef)
	if dir == DirUndo {
		u.layer.mask = u.mask
		u.layer.applyMask, u.layer.editMask, u.layer.showMask = u.apply, u.edit, u.show
	} else {
		u.layer.mask = nil
		u.layer.applyMask = false
		u.layer.editMask = false
		u.layer.showMask = false
	}
	u.layer.Update(0, 0, u.layer.width, u.layer.height)
	img.invalidateComposite()
	return true
}

func freeLayerMask(img *Image, dir UndoDir, payload any) {
	u := payload.(*layerMaskRef)
	if u.layer.mask != u.mask {
		img.unregisterDrawable(u.mask.id)
	}
}

// layerListChange is the payload for layer add/remove records.
type layerListChange struct {
	layer      *Layer
	position   int
	prevActive *Layer
}

func (img *Image) pushLayerAdd(l *Layer, position int) bool {
	payload := &layerListChange{layer: l, position: position, prevActive: img.activeLayer}
	return img.push(UndoLayerAdd, layerSize(l), payload, popLayerAdd, freeLayerRecord, true) != nil
}

func popLayerAdd(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerListChange)
	if dir == DirUndo {
		img.detachLayer(u.layer)
		if u.prevActive != nil && img.layerIndex(u.prevActive) >= 0 {
			img.activeLayer = u.prevActive
		}
	} else {
		img.insertLayer(u.layer, u.position)
	}
	img.invalidateComposite()
	return true
}

func (img *Image) pushLayerRemove(l *Layer, position int) bool {
	payload := &layerListChange{layer: l, position: position, prevActive: img.activeLayer}
	return img.push(UndoLayerRemove, layerSize(l), payload, popLayerRemove, freeLayerRecord, true) != nil
}

func popLayerRemove(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerListChange)
	if dir == DirUndo {
		img.insertLayer(u.layer, u.position)
	} else {
		img.detachLayer(u.layer)
		if u.prevActive != nil && img.layerIndex(u.prevActive) >= 0 {
			img.activeLayer = u.prevActive
		}
	}
	img.invalidateComposite()
	return true
}

// freeLayerRecord forgets the layer identity when the record dies with
// the layer out of the image.
func freeLayerRecord(img *Image, dir UndoDir, payload any) {
	u := payload.(*layerListChange)
	if img.layerIndex(u.layer) < 0 {
		img.unregisterDrawable(u.layer.id)
		if u.layer.mask != nil {
			img.unregisterDrawable(u.layer.mask.id)
		}
	}
}

func layerSize(l *Layer) int64 {
	size := int64(l.width)*int64(l.height)*int64(l.Bytes()) + int64(len(l.name))
	if l.mask != nil {
		size += int64(l.mask.width) * int64(l.mask.height)
	}
	return size
}

// channelListChange is the payload for channel add/remove records.
type channelListChange struct {
	channel    *Channel
	position   int
	prevActive *Channel
}

func (img *Image) pushChannelAdd(ch *Channel, position int) bool {
	payload := &channelListChange{channel: ch, position: position, prevActive: img.activeChannel}
	size := int64(ch.width) * int64(ch.height)
	return img.push(UndoChannelAdd, size, payload, popChannelAdd, freeChannelRecord, true) != nil
}

func popChannelAdd(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*channelListChange)
	if dir == DirUndo {
		img.detachChannel(u.channel)
		if u.prevActive != nil && img.channelIndex(u.prevActive) >= 0 {
			img.activeChannel = u.prevActive
		}
	} else {
		img.insertChannel(u.channel, u.position)
	}
	return true
}

func (img *Image) pushChannelRemove(ch *Channel, position int) bool {
	payload := &channelListChange{channel: ch, position: position, prevActive: img.activeChannel}
	size := int64(ch.width) * int64(ch.height)
	return img.push(UndoChannelRemove, size, payload, popChannelRemove, freeChannelRecord, true) != nil
}

func popChannelRemove(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*channelListChange)
	if dir == DirUndo {
		img.insertChannel(u.channel, u.position)
	} else {
		img.detachChannel(u.channel)
		if u.prevActive != nil && img.channelIndex(u.prevActive) >= 0 {
			img.activeChannel = u.prevActive
		}
	}
	return true
}

func freeChannelRecord(img *Image, dir UndoDir, payload any) {
	u := payload.(*channelListChange)
	if img.channelIndex(u.channel) < 0 && u.channel != img.selection {
		img.unregisterDrawable(u.channel.id)
	}
}

// channelMod swaps a channel's pixel store.
type channelMod struct {
	channelID int
	tiles     *tile.Manager
}

func (img *Image) pushChannelMod(ch *Channel) bool {
	tiles, err := cloneManager(ch.tiles)
	if err != nil {
		return false
	}
	payload := &channelMod{channelID: ch.id, tiles: tiles}
	size := int64(ch.width) * int64(ch.height)
	return img.push(UndoChannelMod, size, payload, popChannelMod, nil, true) != nil
}

func popChannelMod(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*channelMod)
	ch, err := img.ChannelByID(u.channelID)
	if err != nil {
		return false
	}
	old := ch.tiles
	ch.tiles = u.tiles
	ch.width = u.tiles.Width()
	ch.height = u.tiles.Height()
	ch.invalidateCaches()
	u.tiles = old
	return true
}

// fsToLayer records a float's promotion to an ordinary layer.
type fsToLayer struct {
	layerID  int
	targetID int
	fs       *FloatingSel
}

func (img *Image) pushFSToLayer(l *Layer, target AnyDrawable, fs *FloatingSel) bool {
	payload := &fsToLayer{layerID: l.id, targetID: target.Base().id, fs: fs}
	return img.push(UndoFSToLayer, 64, payload, popFSToLayer, nil, false) != nil
}

func popFSToLayer(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*fsToLayer)
	l, err := img.LayerByID(u.layerID)
	if err != nil {
		return false
	}
	target, err := img.Drawable(u.targetID)
	if err != nil {
		return false
	}
	if dir == DirUndo {
		u.fs.target = target
		l.fs = u.fs
		img.floatingSel = l
		u.fs.store(l, l.offsetX, l.offsetY, l.width, l.height)
		u.fs.initial = true
	} else {
		l.fs = nil
		img.floatingSel = nil
	}
	img.selection.invalidateCaches()
	img.invalidateComposite()
	return true
}

// fsState flips a float between rigored and relaxed.
type fsState struct {
	layerID int
}

func (img *Image) pushFSRigor(l *Layer) bool {
	return img.push(UndoFSRigor, 8, &fsState{layerID: l.id}, popFSRigor, nil, false) != nil
}

func popFSRigor(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*fsState)
	l, err := img.LayerByID(u.layerID)
	if err != nil || l.fs == nil {
		return false
	}
	if dir == DirUndo {
		l.fs.relax(l, false)
	} else {
		l.fs.rigor(l, false)
	}
	return true
}

func (img *Image) pushFSRelax(l *Layer) bool {
	return img.push(UndoFSRelax, 8, &fsState{layerID: l.id}, popFSRelax, nil, false) != nil
}

func popFSRelax(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*fsState)
	l, err := img.LayerByID(u.layerID)
	if err != nil || l.fs == nil {
		return false
	}
	if dir == DirUndo {
		l.fs.rigor(l, false)
	} else {
		l.fs.relax(l, false)
	}
	return true
}

// imageMod swaps the image's extent, base type and colormap.
type imageMod struct {
	width    int
	height   int
	baseType BaseType
	cmap     []byte
	numCols  int
}

func (img *Image) pushImageMod() bool {
	payload := &imageMod{
		width:    img.width,
		height:   img.height,
		baseType: img.baseType,
		cmap:     append([]byte(nil), img.cmap...),
		numCols:  img.numCols,
	}
	return img.push(UndoGimageMod, 32+int64(len(payload.cmap)), payload, popImageMod, nil, true) != nil
}

func popImageMod(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*imageMod)
	u.width, img.width = img.width, u.width
	u.height, img.height = img.height, u.height
	u.baseType, img.baseType = img.baseType, u.baseType
	u.cmap, img.cmap = img.cmap, u.cmap
	u.numCols, img.numCols = img.numCols, u.numCols
	img.invalidateComposite()
	return true
}

// guideUndo swaps a guide's state in place. The record holds a
// reference so a deleted guide survives until the record dies.
type guideUndo struct {
	guide       *Guide
	position    int
	orientation Orientation
}

func (img *Image) pushGuide(g *Guide) bool {
	payload := &guideUndo{guide: g, position: g.position, orientation: g.orientation}
	rec := img.push(UndoGuide, 16, payload, popGuide, freeGuide, true)
	if rec != nil {
		g.refCount++
	}
	return rec != nil
}

func popGuide(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*guideUndo)
	g := u.guide
	u.position, g.position = g.position, u.position
	u.orientation, g.orientation = g.orientation, u.orientation
	if g.position >= 0 {
		// Resurrected: make sure it is back on the list.
		if _, err := img.GuideByID(g.id); err != nil {
			img.guides = append(img.guides, g)
		}
	}
	return true
}

func freeGuide(img *Image, dir UndoDir, payload any) {
	u := payload.(*guideUndo)
	u.guide.refCount--
	img.pruneGuide(u.guide)
}

// resolutionUndo swaps resolution and unit.
type resolutionUndo struct {
	xres, yres float64
	unit       Unit
}

// PushResolutionUndo records the current resolution ahead of a change.
func (img *Image) PushResolutionUndo() bool {
	payload := &resolutionUndo{xres: img.xres, yres: img.yres, unit: img.unit}
	return img.push(UndoResolution, 24, payload, popResolution, nil, true) != nil
}

func popResolution(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*resolutionUndo)
	u.xres, img.xres = img.xres, u.xres
	u.yres, img.yres = img.yres, u.yres
	u.unit, img.unit = img.unit, u.unit
	return true
}

// qmaskUndo swaps the quick-mask flag.
type qmaskUndo struct {
	state bool
}

func (img *Image) pushQmask() bool {
	payload := &qmaskUndo{state: img.qmaskState}
	return img.push(UndoQmask, 8, payload, popQmask, nil, false) != nil
}

func popQmask(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*qmaskUndo)
	u.state, img.qmaskState = img.qmaskState, u.state
	return true
}

// Parasite attachment levels.
type parasiteLevel int

const (
	parasiteImage parasiteLevel = iota
	parasiteDrawable
)

// parasiteUndo swaps a named parasite blob.
type parasiteUndo struct {
	level    parasiteLevel
	name     string
	parasite *Parasite // previous value, nil for "absent"
	drawable *Drawable
}

func (img *Image) pushParasite(level parasiteLevel, name string, prev *Parasite, d *Drawable) bool {
	payload := &parasiteUndo{level: level, name: name, parasite: prev.clone(), drawable: d}
	var size int64 = 32
	if prev != nil {
		size += int64(len(prev.Data))
	}
	return img.push(UndoParasite, size, payload, popParasite, nil, false) != nil
}

func popParasite(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*parasiteUndo)
	var bag map[string]*Parasite
	switch u.level {
	case parasiteDrawable:
		if u.drawable == nil {
			return false
		}
		bag = u.drawable.parasites
	default:
		bag = img.parasites
	}
	current := bag[u.name]
	if u.parasite != nil {
		bag[u.name] = u.parasite
	} else {
		delete(bag, u.name)
	}
	u.parasite = current
	return true
}

// layerRename swaps a layer's name.
type layerRename struct {
	layerID int
	name    string
}

// PushLayerRenameUndo records a layer's name ahead of a rename.
func (img *Image) PushLayerRenameUndo(l *Layer) bool {
	payload := &layerRename{layerID: l.id, name: l.name}
	return img.push(UndoLayerRename, int64(len(l.name)), payload, popLayerRename, nil, true) != nil
}

func popLayerRename(img *Image, dir UndoDir, payload any) bool {
	u := payload.(*layerRename)
	l, err := img.LayerByID(u.layerID)
	if err != nil {
		return false
	}
	u.name, l.name = l.name, u.name
	return true
}

// PushCantundo records a placeholder for an operation whose undo is
// not implemented: undoing it resets the image to clean, redoing it
// re-dirties.
func (img *Image) PushCantundo() bool {
	return img.push(UndoCantundo, 8, nil, popCantundo, nil, true) != nil
}

func popCantundo(img *Image, dir UndoDir, payload any) bool {
	if dir == DirUndo {
		// The pop loop decrements once more for the dirties flag; land
		// on exactly clean.
		img.dirty = 1
	}
	return true
}
