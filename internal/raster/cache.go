package raster

import (
	"image"
	"sync"
)

// tileKey identifies a decoded source tile within a specific reader and
// overview level.
type tileKey struct {
	readerID int
	level    int
	col      int
	row      int
}

// TileCache is a bounded cache of decoded source tiles, shared across the
// workers warping a single megatile. It exists purely to avoid re-reading
// and re-decoding the same source tile when several output pixels land in
// it — distinct from the pyramid package's decoded child cache, which holds
// whole *output* tile buffers between composition stages.
type TileCache struct {
	mu      sync.Mutex
	entries map[tileKey]image.Image
	order   []tileKey
	max     int
}

// NewTileCache creates a cache holding at most maxEntries decoded tiles.
func NewTileCache(maxEntries int) *TileCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &TileCache{
		entries: make(map[tileKey]image.Image, maxEntries),
		order:   make([]tileKey, 0, maxEntries),
		max:     maxEntries,
	}
}

// Get returns the decoded tile, or nil if not cached.
func (c *TileCache) Get(readerID, level, col, row int) image.Image {
	key := tileKey{readerID, level, col, row}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// Put stores a decoded tile, evicting the oldest entry once full.
func (c *TileCache) Put(readerID, level, col, row int, img image.Image) {
	key := tileKey{readerID, level, col, row}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.entries) >= c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = img
	c.order = append(c.order, key)
}

// readTileCached reads a decoded source tile via the cache, populating it
// on a miss.
func readTileCached(r *Reader, level, col, row int, cache *TileCache) (image.Image, error) {
	if cache != nil {
		if img := cache.Get(r.ID(), level, col, row); img != nil {
			return img, nil
		}
	}
	img, err := r.ReadTile(level, col, row)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(r.ID(), level, col, row, img)
	}
	return img, nil
}
