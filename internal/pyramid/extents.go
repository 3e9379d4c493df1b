package pyramid

import (
	"sync"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// Limits is the tile-column/row bounding box of committed tiles at one
// zoom level, written to the archive's metadata as the per-zoom "limits"
// row (spec.md §4.8/§6).
type Limits struct {
	MinX, MaxX uint32
	MinY, MaxY uint32
}

// Extents tracks, per zoom level, the bounding box of every non-empty
// tile the processor has finished, across all workers.
type Extents struct {
	mu     sync.Mutex
	byZoom map[uint8]Limits
}

// NewExtents creates an empty extents tracker.
func NewExtents() *Extents {
	return &Extents{byZoom: make(map[uint8]Limits)}
}

// Update folds t into its zoom level's running bounding box.
func (e *Extents) Update(t tilecoord.Tile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.byZoom[t.Zoom]
	if !ok {
		e.byZoom[t.Zoom] = Limits{MinX: t.X, MaxX: t.X, MinY: t.Y, MaxY: t.Y}
		return
	}
	if t.X < l.MinX {
		l.MinX = t.X
	}
	if t.X > l.MaxX {
		l.MaxX = t.X
	}
	if t.Y < l.MinY {
		l.MinY = t.Y
	}
	if t.Y > l.MaxY {
		l.MaxY = t.Y
	}
	e.byZoom[t.Zoom] = l
}

// Snapshot returns a copy of the current per-zoom limits, safe to read
// after the worker pool has quiesced (or concurrently, for progress
// reporting).
func (e *Extents) Snapshot() map[uint8]Limits {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[uint8]Limits, len(e.byZoom))
	for k, v := range e.byZoom {
		out[k] = v
	}
	return out
}
