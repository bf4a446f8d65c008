package pict

// Config carries the process-wide knobs the core consults. Tool layers
// construct one explicitly and hand it to NewContext; the core keeps no
// package-level state.
type Config struct {
	// MaxUndoLevels bounds the number of logical undo actions kept per
	// image. Zero disables eviction headroom entirely, rejecting every
	// push.
	MaxUndoLevels int

	// Background is the fill used where alpha-less drawables gain
	// uncovered area, RGB order.
	Background [3]byte

	// QmaskColor and QmaskOpacity describe the quick-mask overlay.
	QmaskColor   [3]byte
	QmaskOpacity int

	// DefaultResolution is applied to new images, in dots per unit.
	DefaultResolution float64
	DefaultUnit       Unit
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		MaxUndoLevels:     32,
		Background:        [3]byte{255, 255, 255},
		QmaskColor:        [3]byte{255, 0, 0},
		QmaskOpacity:      50,
		DefaultResolution: 72,
		DefaultUnit:       UnitInch,
	}
}

// Context owns the image table, the drawable identity allocator and the
// global parasite bag. Identifiers are never reissued within a context.
type Context struct {
	cfg Config

	nextImageID    int
	nextDrawableID int
	nextTattoo     int
	images         map[int]*Image

	parasites map[string]*Parasite
}

// NewContext creates an empty context with the given configuration.
func NewContext(cfg Config) *Context {
	return &Context{
		cfg:       cfg,
		images:    make(map[int]*Image),
		parasites: make(map[string]*Parasite),
	}
}

// Config returns the context's configuration.
func (c *Context) Config() Config { return c.cfg }

// Image resolves an image identifier.
func (c *Context) Image(id int) (*Image, error) {
	img, ok := c.images[id]
	if !ok {
		return nil, errNotFound("image", id)
	}
	return img, nil
}

// allocDrawableID hands out the next drawable identity.
func (c *Context) allocDrawableID() int {
	c.nextDrawableID++
	return c.nextDrawableID
}

// allocTattoo hands out the next channel tattoo.
func (c *Context) allocTattoo() int {
	c.nextTattoo++
	return c.nextTattoo
}
