// Package pict implements the core of a raster image-editing engine:
// a layered pixel model with non-destructive, undoable editing.
//
// # Overview
//
// Three subsystems make up the core:
//
//   - the tiled pixel store (package tile): sparse grids of 64x64 pixel
//     tiles with demand validation, reference-counted pinning and
//     lock-step region iteration;
//   - the composition model: Image, Layer, LayerMask, Channel, the
//     distinguished selection mask, and the floating-selection
//     protocol that pastes a layer over another drawable while
//     preserving the pixels it obscures;
//   - the undo engine: typed records with in-place state swapping,
//     per-image undo/redo stacks, grouped transactions, size-bounded
//     eviction and synchronous event notification.
//
// Everything else — tools, display, file formats, scripting — consumes
// the core through these types but lives outside it.
//
// # Concurrency
//
// The core is single-threaded cooperative: it assumes one mutating
// actor per image and runs every entry point to completion. Parallel
// hosts must serialize access externally, for example with a per-image
// actor.
//
// # Errors
//
// Failures surface as wrapped sentinel errors (ErrInvalidArgument,
// ErrNotFound, ErrTypeMismatch, ErrIllegalState, ErrEmptyRegion,
// ErrOutOfRange) discriminated with errors.Is. The core never retries
// internally and never panics across its API boundary.
package pict
