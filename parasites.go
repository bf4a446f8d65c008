package pict

// Parasite is a named, versioned, typed byte-blob annotation attached
// to an image, a drawable, or the global context. The core stores it
// opaquely; persistence choices belong to the host.
type Parasite struct {
	Name  string
	Flags uint32
	Data  []byte
}

// clone deep-copies a parasite.
func (p *Parasite) clone() *Parasite {
	if p == nil {
		return nil
	}
	return &Parasite{
		Name:  p.Name,
		Flags: p.Flags,
		Data:  append([]byte(nil), p.Data...),
	}
}

// FindParasite looks up an image-level parasite.
func (img *Image) FindParasite(name string) *Parasite { return img.parasites[name] }

// AttachParasite attaches an image-level parasite, replacing any
// previous blob of the same name. The replaced value is recorded for
// undo.
func (img *Image) AttachParasite(p *Parasite) {
	img.pushParasite(parasiteImage, p.Name, img.parasites[p.Name], nil)
	img.parasites[p.Name] = p.clone()
}

// DetachParasite removes an image-level parasite.
func (img *Image) DetachParasite(name string) {
	if _, ok := img.parasites[name]; !ok {
		return
	}
	img.pushParasite(parasiteImage, name, img.parasites[name], nil)
	delete(img.parasites, name)
}

// FindParasite looks up a drawable-level parasite.
func (d *Drawable) FindParasite(name string) *Parasite { return d.parasites[name] }

// AttachParasite attaches a drawable-level parasite.
func (d *Drawable) AttachParasite(p *Parasite) {
	d.image.pushParasite(parasiteDrawable, p.Name, d.parasites[p.Name], d)
	d.parasites[p.Name] = p.clone()
}

// DetachParasite removes a drawable-level parasite.
func (d *Drawable) DetachParasite(name string) {
	if _, ok := d.parasites[name]; !ok {
		return
	}
	d.image.pushParasite(parasiteDrawable, name, d.parasites[name], d)
	delete(d.parasites, name)
}

// FindParasite looks up a global parasite on the context.
func (c *Context) FindParasite(name string) *Parasite { return c.parasites[name] }

// AttachParasite attaches a global parasite. Global parasites are not
// undoable: no image owns them.
func (c *Context) AttachParasite(p *Parasite) { c.parasites[p.Name] = p.clone() }

// DetachParasite removes a global parasite.
func (c *Context) DetachParasite(name string) { delete(c.parasites, name) }
