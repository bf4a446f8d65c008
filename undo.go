package pict

import "fmt"

// UndoDir is the direction a record is popped in.
type UndoDir int

// Pop directions.
const (
	DirUndo UndoDir = iota
	DirRedo
)

// UndoEvent identifies a notification fired synchronously from the undo
// primitives so display layers can refresh. Observers may inspect the
// exact state the engine just produced; no other mutator runs in
// between.
type UndoEvent int

// Undo events.
const (
	UndoEventPushed UndoEvent = iota
	UndoEventExpired
	UndoEventPopped
	UndoEventRedo
	UndoEventFree
)

// UndoEventFunc observes undo activity on an image.
type UndoEventFunc func(img *Image, ev UndoEvent)

// UndoKind labels a record or group for bookkeeping and UI naming.
type UndoKind int

// Undo record and group kinds.
const (
	UndoNone UndoKind = iota
	UndoImage
	UndoImageMod
	UndoMask
	UndoLayerDisplace
	UndoLayerMod
	UndoLayerMaskAdd
	UndoLayerMaskRemove
	UndoLayerAdd
	UndoLayerRemove
	UndoLayerRename
	UndoChannelAdd
	UndoChannelRemove
	UndoChannelMod
	UndoFSToLayer
	UndoFSRigor
	UndoFSRelax
	UndoGimageMod
	UndoGuide
	UndoResolution
	UndoQmask
	UndoParasite
	UndoCantundo

	UndoGroupMisc
	UndoGroupFloatMask
	UndoGroupFSAnchor
	UndoGroupFSFloat
	UndoGroupQmask
	UndoGroupImageResize
	UndoGroupImageScale
	UndoGroupImageConvert
	UndoGroupLayerApplyMask
	UndoGroupEditPaste
	UndoGroupEditCut
	UndoGroupTransform
)

// String returns the user-facing action name for UI labels.
func (k UndoKind) String() string {
	switch k {
	case UndoImage, UndoImageMod:
		return "image"
	case UndoMask:
		return "mask"
	case UndoLayerDisplace:
		return "move layer"
	case UndoLayerMod:
		return "layer change"
	case UndoLayerMaskAdd:
		return "add layer mask"
	case UndoLayerMaskRemove:
		return "delete layer mask"
	case UndoLayerAdd:
		return "new layer"
	case UndoLayerRemove:
		return "delete layer"
	case UndoLayerRename:
		return "rename layer"
	case UndoChannelAdd:
		return "new channel"
	case UndoChannelRemove:
		return "delete channel"
	case UndoChannelMod:
		return "channel change"
	case UndoFSToLayer:
		return "float to layer"
	case UndoFSRigor:
		return "rigor floating selection"
	case UndoFSRelax:
		return "relax floating selection"
	case UndoGimageMod:
		return "image change"
	case UndoGuide:
		return "guide"
	case UndoResolution:
		return "resolution"
	case UndoQmask:
		return "quick mask"
	case UndoParasite:
		return "parasite"
	case UndoCantundo:
		return "can't undo"
	case UndoGroupMisc:
		return "misc"
	case UndoGroupFloatMask:
		return "float selection"
	case UndoGroupFSAnchor:
		return "anchor floating selection"
	case UndoGroupFSFloat:
		return "float selection"
	case UndoGroupQmask:
		return "quick mask"
	case UndoGroupImageResize:
		return "resize image"
	case UndoGroupImageScale:
		return "scale image"
	case UndoGroupImageConvert:
		return "convert image"
	case UndoGroupLayerApplyMask:
		return "apply layer mask"
	case UndoGroupEditPaste:
		return "paste"
	case UndoGroupEditCut:
		return "cut"
	case UndoGroupTransform:
		return "transform"
	default:
		return ""
	}
}

// popFunc reverses or replays a record; a false return degrades to a
// silent no-op and the pop loop advances.
type popFunc func(img *Image, dir UndoDir, payload any) bool

// freeFunc releases a record's payload. dir tells which stack the
// record died on, which decides payload ownership for add/remove pairs.
type freeFunc func(img *Image, dir UndoDir, payload any)

// undoRecord is one entry on an undo or redo stack. Group boundaries
// are sentinel records carrying no payload but bearing the group's kind
// for UI labeling.
type undoRecord struct {
	kind          UndoKind
	payload       any
	bytes         int64
	dirtiesImage  bool
	groupBoundary bool
	pop           popFunc
	free          freeFunc
}

// dirtySentinel marks an image that can no longer be made clean by undo
// alone: its redo path back to the saved state was discarded.
const dirtySentinel = 10000

// SetUndoEventHandler installs the undo observability callback.
func (img *Image) SetUndoEventHandler(fn UndoEventFunc) { img.onUndoEvent = fn }

func (img *Image) fireUndoEvent(ev UndoEvent) {
	if img.onUndoEvent != nil {
		img.onUndoEvent(img, ev)
	}
}

// EnableUndo opens the undo gate.
func (img *Image) EnableUndo() { img.undoOn = true }

// DisableUndo closes the undo gate and drains both stacks.
func (img *Image) DisableUndo() {
	img.UndoFree()
	img.undoOn = false
}

// UndoFreeze suspends pushes without turning undo off; the dirty
// counter still advances. Mutators that rewrite the image repeatedly in
// a drag loop freeze around the intermediate steps.
func (img *Image) UndoFreeze() { img.freezeCount++ }

// UndoThaw resumes pushes after UndoFreeze.
func (img *Image) UndoThaw() {
	if img.freezeCount > 0 {
		img.freezeCount--
	}
}

// UndoLevels returns the logical action count on the undo stack.
func (img *Image) UndoLevels() int { return img.undoLevels }

// UndoBytes returns the byte cost of all records on both stacks.
func (img *Image) UndoBytes() int64 { return img.undoBytes }

// UndoName returns the label of the next action an undo would revert,
// or "" with false when the undo stack is empty.
func (img *Image) UndoName() (string, bool) {
	if len(img.undoStack) == 0 {
		return "", false
	}
	return img.undoStack[len(img.undoStack)-1].kind.String(), true
}

// RedoName returns the label of the next action a redo would replay.
func (img *Image) RedoName() (string, bool) {
	if len(img.redoStack) == 0 {
		return "", false
	}
	return img.redoStack[len(img.redoStack)-1].kind.String(), true
}

// freeRecords releases a record list in stack order.
func (img *Image) freeRecords(dir UndoDir, recs []*undoRecord) {
	for _, rec := range recs {
		if rec.free != nil {
			rec.free(img, dir, rec.payload)
		}
		img.undoBytes -= rec.bytes
	}
}

// dropRedo frees the redo stack ahead of a new push. Discarding a redo
// path that had reached cleanliness leaves the image permanently dirty.
func (img *Image) dropRedo(priorDirty int) {
	if len(img.redoStack) == 0 {
		return
	}
	img.freeRecords(DirRedo, img.redoStack)
	img.redoStack = nil
	if priorDirty < 0 {
		img.dirty = dirtySentinel
	}
}

// evictBottom removes one logical action from the stack bottom: a
// single entry, or an entire group as a unit.
func (img *Image) evictBottom() {
	if len(img.undoStack) == 0 {
		return
	}
	end := 1
	if img.undoStack[0].groupBoundary {
		depth := 1
		for end < len(img.undoStack) && depth > 0 {
			if img.undoStack[end].groupBoundary {
				depth--
			}
			end++
		}
	}
	img.freeRecords(DirUndo, img.undoStack[:end])
	img.undoStack = append([]*undoRecord(nil), img.undoStack[end:]...)
	img.undoLevels--
	img.fireUndoEvent(UndoEventExpired)
}

// freeUpSpace evicts whole actions from the bottom until the level
// bound holds. With a zero bound there is no room at all.
func (img *Image) freeUpSpace() bool {
	max := img.ctx.cfg.MaxUndoLevels
	if max == 0 {
		return false
	}
	for img.undoLevels >= max {
		img.evictBottom()
	}
	return true
}

// push allocates and stacks a record. Returning nil means the push was
// rejected; the mutation still proceeds and, when dirties is set, the
// image is already marked dirty.
func (img *Image) push(kind UndoKind, size int64, payload any, pop popFunc, free freeFunc, dirties bool) *undoRecord {
	priorDirty := img.dirty
	if dirties {
		img.markDirty()
	}
	if !img.undoOn || img.freezeCount > 0 {
		return nil
	}

	img.dropRedo(priorDirty)

	if img.groupCount == 0 {
		if !img.freeUpSpace() {
			return nil
		}
	}

	rec := &undoRecord{
		kind:         kind,
		payload:      payload,
		bytes:        size,
		dirtiesImage: dirties,
		pop:          pop,
		free:         free,
	}
	if img.groupCount > 0 {
		rec.kind = img.pushingGroup
	} else {
		img.undoLevels++
	}
	img.undoStack = append(img.undoStack, rec)
	img.undoBytes += size

	if img.groupCount == 0 {
		img.fireUndoEvent(UndoEventPushed)
	}
	return rec
}

// PushGroupStart opens a grouped transaction of the given kind. Nested
// starts only deepen the nesting counter.
func (img *Image) PushGroupStart(kind UndoKind) bool {
	if !img.undoOn || img.freezeCount > 0 {
		return false
	}
	img.groupCount++
	if img.groupCount > 1 {
		return true
	}

	img.dropRedo(img.dirty)
	if !img.freeUpSpace() {
		img.groupCount--
		return false
	}
	img.pushingGroup = kind
	img.undoStack = append(img.undoStack, &undoRecord{kind: kind, groupBoundary: true})
	img.undoLevels++
	return true
}

// PushGroupEnd closes a grouped transaction; the outer close pushes the
// matching end sentinel and fires a single pushed event.
func (img *Image) PushGroupEnd() bool {
	if !img.undoOn || img.freezeCount > 0 {
		return false
	}
	if img.groupCount == 0 {
		return false
	}
	img.groupCount--
	if img.groupCount == 0 {
		kind := img.pushingGroup
		img.pushingGroup = UndoNone
		img.undoStack = append(img.undoStack, &undoRecord{kind: kind, groupBoundary: true})
		img.fireUndoEvent(UndoEventPushed)
	}
	return true
}

// popStack reverts (or replays) one logical action from one stack onto
// the other. Records pop until a standalone entry or a balanced group
// completes.
func (img *Image) popStack(from, to *[]*undoRecord, dir UndoDir) (bool, error) {
	if img.groupCount != 0 {
		return false, fmt.Errorf("%w: undo pop inside an open group", ErrIllegalState)
	}

	inGroup := false
	status := false
	for len(*from) > 0 {
		rec := (*from)[len(*from)-1]
		*from = (*from)[:len(*from)-1]
		*to = append(*to, rec)

		if rec.groupBoundary {
			inGroup = !inGroup
			if inGroup {
				if dir == DirUndo {
					img.undoLevels--
				} else {
					img.undoLevels++
				}
			}
			if status && !inGroup {
				img.finishPop(dir)
				return true, nil
			}
			status = false
			continue
		}

		ok := rec.pop(img, dir, rec.payload)
		if ok && rec.dirtiesImage {
			if dir == DirUndo {
				img.markClean()
			} else {
				img.markDirty()
			}
		}
		if !inGroup {
			if dir == DirUndo {
				img.undoLevels--
			} else {
				img.undoLevels++
			}
		}
		status = ok || inGroup
		if ok && !inGroup {
			img.finishPop(dir)
			return true, nil
		}
	}
	return false, nil
}

// finishPop fires the post-pop notification.
func (img *Image) finishPop(dir UndoDir) {
	if dir == DirUndo {
		img.fireUndoEvent(UndoEventPopped)
	} else {
		img.fireUndoEvent(UndoEventRedo)
	}
}

// Undo reverts the most recent action. It reports whether anything was
// reverted; popping inside an open group is an error.
func (img *Image) Undo() (bool, error) {
	return img.popStack(&img.undoStack, &img.redoStack, DirUndo)
}

// Redo replays the most recently undone action.
func (img *Image) Redo() (bool, error) {
	return img.popStack(&img.redoStack, &img.undoStack, DirRedo)
}

// UndoFree drains both stacks and resets the counters.
func (img *Image) UndoFree() {
	img.freeRecords(DirUndo, img.undoStack)
	img.freeRecords(DirRedo, img.redoStack)
	img.undoStack = nil
	img.redoStack = nil
	img.undoBytes = 0
	img.undoLevels = 0
	img.fireUndoEvent(UndoEventFree)
}
