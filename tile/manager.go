package tile

import (
	"errors"
	"fmt"
)

// Common errors for the tile store.
var (
	// ErrInvalidDimensions is returned when width, height or bpp is
	// non-positive.
	ErrInvalidDimensions = errors.New("tile: invalid dimensions")

	// ErrOutOfRange is returned when pixel coordinates lie outside
	// [0, width) x [0, height).
	ErrOutOfRange = errors.New("tile: coordinates out of range")
)

// ValidateFunc fills a freshly demanded tile with its initial contents.
// The buffer is cleared to TransparentOpacity before the validator runs.
type ValidateFunc func(m *Manager, t *Tile, x, y int)

// Manager owns the pixel memory of one drawable: a sparse two-dimensional
// grid of tiles. A tile slot stays empty until some region demands it or a
// write creates it.
type Manager struct {
	width  int
	height int
	bpp    int

	tilesX int
	tilesY int
	tiles  []*Tile // row-major, may hold nil slots

	validator ValidateFunc

	// Auxiliary origin offsets, carried when the manager is used as an
	// undo payload or an extraction buffer.
	originX int
	originY int
}

// NewManager creates a tile manager covering width x height pixels at
// bpp bytes per pixel. No tiles are allocated until demanded.
func NewManager(width, height, bpp int) (*Manager, error) {
	if width <= 0 || height <= 0 || bpp <= 0 {
		return nil, fmt.Errorf("%w: %dx%d bpp=%d", ErrInvalidDimensions, width, height, bpp)
	}
	tilesX := (width + Width - 1) / Width
	tilesY := (height + Height - 1) / Height
	return &Manager{
		width:  width,
		height: height,
		bpp:    bpp,
		tilesX: tilesX,
		tilesY: tilesY,
		tiles:  make([]*Tile, tilesX*tilesY),
	}, nil
}

// Width returns the managed extent's width in pixels.
func (m *Manager) Width() int { return m.width }

// Height returns the managed extent's height in pixels.
func (m *Manager) Height() int { return m.height }

// Bpp returns the uniform bytes-per-pixel of the managed pixels.
func (m *Manager) Bpp() int { return m.bpp }

// SetValidator installs a fill procedure applied to newly demanded tiles.
func (m *Manager) SetValidator(fn ValidateFunc) { m.validator = fn }

// Validator returns the installed fill procedure, or nil.
func (m *Manager) Validator() ValidateFunc { return m.validator }

// SetOrigin records auxiliary image-space origin offsets on the manager.
func (m *Manager) SetOrigin(x, y int) {
	m.originX = x
	m.originY = y
}

// Origin returns the auxiliary origin offsets.
func (m *Manager) Origin() (x, y int) { return m.originX, m.originY }

// tileIndex returns the slot index for pixel (x, y).
func (m *Manager) tileIndex(x, y int) int {
	return (y/Height)*m.tilesX + (x / Width)
}

// tileExtent returns the effective size of the tile containing (x, y).
func (m *Manager) tileExtent(x, y int) (ew, eh int) {
	ew = Width
	if tx := (x / Width) * Width; tx+Width > m.width {
		ew = m.width - tx
	}
	eh = Height
	if ty := (y / Height) * Height; ty+Height > m.height {
		eh = m.height - ty
	}
	return ew, eh
}

// GetTile demands the tile containing pixel (x, y).
//
// When the tile's buffer is absent it is allocated, cleared to
// TransparentOpacity and, if a validator is installed, passed to it before
// any reader sees it. The returned handle pins the tile until ReleaseTile.
// A read-only demand may share the tile with other live handles; a
// writable demand marks the tile valid (dirty demands are writes that will
// fully overwrite the contents, so the validator is skipped for them).
func (m *Manager) GetTile(x, y int, writable, dirty bool) (*Tile, error) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, x, y, m.width, m.height)
	}
	i := m.tileIndex(x, y)
	t := m.tiles[i]
	if t == nil {
		ew, eh := m.tileExtent(x, y)
		t = &Tile{ewidth: ew, eheight: eh, bpp: m.bpp}
		m.tiles[i] = t
	}
	if !t.valid {
		t.alloc()
		if !dirty {
			if m.validator != nil {
				m.validator(m, t, (x/Width)*Width, (y/Height)*Height)
			}
		}
		t.valid = true
	}
	if writable || dirty {
		t.valid = true
	}
	t.refCount++
	return t, nil
}

// ReleaseTile releases a handle obtained from GetTile. The written flag
// records whether the holder modified the buffer.
func (m *Manager) ReleaseTile(t *Tile, written bool) {
	if t == nil {
		return
	}
	if t.refCount > 0 {
		t.refCount--
	}
	if written {
		t.valid = true
	}
}

// MapTile swaps the tile slot containing pixel (x, y) with replacement and
// returns the displaced tile (which may be nil). The replacement must have
// matching bytes-per-pixel; identity, not contents, moves between managers.
// This is the sparse-undo path: a pop exchanges tile ownership between the
// drawable's manager and the undo payload without copying pixels.
func (m *Manager) MapTile(x, y int, replacement *Tile) (*Tile, error) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, x, y, m.width, m.height)
	}
	if replacement != nil && replacement.bpp != m.bpp {
		return nil, fmt.Errorf("%w: replacement bpp %d != %d", ErrInvalidDimensions, replacement.bpp, m.bpp)
	}
	i := m.tileIndex(x, y)
	old := m.tiles[i]
	m.tiles[i] = replacement
	return old, nil
}

// Invalidate drops the buffers of all tiles with no outstanding handles.
// Dropped tiles will be re-created by the validator on next demand.
func (m *Manager) Invalidate() {
	for i, t := range m.tiles {
		if t != nil && t.refCount == 0 {
			m.tiles[i] = nil
		}
	}
}

// PeekTile returns the tile containing (x, y) without demanding or pinning
// it. The result is nil for an empty slot.
func (m *Manager) PeekTile(x, y int) *Tile {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return nil
	}
	return m.tiles[m.tileIndex(x, y)]
}

// Pixel reads the pixel at (x, y) into p, demanding the tile read-only.
func (m *Manager) Pixel(x, y int, p []byte) error {
	t, err := m.GetTile(x, y, false, false)
	if err != nil {
		return err
	}
	off := ((y%Height)*t.ewidth + (x % Width)) * m.bpp
	copy(p, t.data[off:off+m.bpp])
	m.ReleaseTile(t, false)
	return nil
}

// PutPixel writes p to the pixel at (x, y), demanding the tile writable.
func (m *Manager) PutPixel(x, y int, p []byte) error {
	t, err := m.GetTile(x, y, true, false)
	if err != nil {
		return err
	}
	off := ((y%Height)*t.ewidth + (x % Width)) * m.bpp
	copy(t.data[off:off+m.bpp], p[:m.bpp])
	m.ReleaseTile(t, true)
	return nil
}
