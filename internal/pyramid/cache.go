package pyramid

import (
	"sync"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// Buffer is a decoded pixel buffer: height*width*bandCount bytes, row-major,
// y outer (spec.md §3 "Pixel buffer").
type Buffer struct {
	Pix       []byte
	Side      int
	BandCount int
}

// ChildCache is the ephemeral map from Tile to decoded pixel buffer
// described in spec.md §3: a child's buffer is present only after that
// child completes, and is removed exactly once, when its parent composes
// it.
type ChildCache struct {
	mu   sync.Mutex
	bufs map[tilecoord.Tile]Buffer
}

// NewChildCache creates an empty decoded child cache.
func NewChildCache() *ChildCache {
	return &ChildCache{bufs: make(map[tilecoord.Tile]Buffer)}
}

// Insert stores t's decoded buffer. Called once per non-empty completed
// tile.
func (c *ChildCache) Insert(t tilecoord.Tile, buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bufs[t] = buf
}

// Take atomically removes and returns t's buffer, reporting whether one
// was present. A missing buffer means the child declared itself empty.
func (c *ChildCache) Take(t tilecoord.Tile) (Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.bufs[t]
	if ok {
		delete(c.bufs, t)
	}
	return buf, ok
}

// Evict removes t's buffer without returning it, discarding it unread.
// Used by resume mode: when a parent is found already-committed, its
// children's cached buffers (if any were populated by a prior pass in this
// run) are no longer needed.
func (c *ChildCache) Evict(t tilecoord.Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bufs, t)
}

// Len reports the number of buffers currently held, for telemetry.
func (c *ChildCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bufs)
}
