package pict

// Quick-mask: the selection exposed as an editable channel named
// "Qmask" and rendered by display layers as a semi-transparent color
// overlay while active.

// QmaskName is the reserved channel name the quick-mask lives under.
const QmaskName = "Qmask"

// QmaskState reports whether the quick-mask is active.
func (img *Image) QmaskState() bool { return img.qmaskState }

// QmaskColor returns the overlay color.
func (img *Image) QmaskColor() [3]byte { return img.qmaskColor }

// SetQmaskColor sets the overlay color.
func (img *Image) SetQmaskColor(c [3]byte) { img.qmaskColor = c }

// QmaskOn enters quick-mask mode: the selection becomes an editable
// channel at the top of the channel list. An empty selection yields a
// full-white Qmask; painting black carves pixels out of the eventual
// selection. A floating selection is promoted to a layer first so its
// coverage participates.
func (img *Image) QmaskOn() error {
	if img.qmaskState {
		return nil
	}
	if img.ChannelByName(QmaskName) != nil {
		// The user built their own; adopt it.
		img.qmaskState = true
		return nil
	}

	img.PushGroupStart(UndoGroupQmask)
	defer img.PushGroupEnd()

	if img.MaskIsEmpty() {
		if img.floatingSel != nil {
			if err := img.FloatingSelToLayer(img.floatingSel); err != nil {
				return err
			}
		}
		mask, err := newChannel(img, img.width, img.height, QmaskName, img.ctx.cfg.QmaskOpacity*255/100, img.qmaskColor)
		if err != nil {
			return err
		}
		if err := mask.All(); err != nil {
			return err
		}
		if err := img.AddChannel(mask, 0); err != nil {
			return err
		}
	} else {
		mask, err := img.selection.Copy()
		if err != nil {
			return err
		}
		mask.SetName(QmaskName)
		mask.SetColor(img.qmaskColor)
		if err := img.AddChannel(mask, 0); err != nil {
			return err
		}
		if err := img.MaskNone(); err != nil {
			return err
		}
	}

	img.pushQmask()
	img.qmaskState = true
	return nil
}

// QmaskOff leaves quick-mask mode: the selection loads from the Qmask
// channel and the channel is removed.
func (img *Image) QmaskOff() error {
	if !img.qmaskState {
		return nil
	}
	mask := img.ChannelByName(QmaskName)
	if mask != nil {
		img.PushGroupStart(UndoGroupQmask)
		img.pushQmask()
		err := img.MaskLoad(mask)
		if err == nil {
			err = img.RemoveChannel(mask)
		}
		img.PushGroupEnd()
		if err != nil {
			return err
		}
	}
	img.qmaskState = false
	return nil
}
