package pyramid

import (
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func TestChildCacheTakeRemovesEntry(t *testing.T) {
	c := NewChildCache()
	tile := tilecoord.Tile{Zoom: 3, X: 1, Y: 1}
	c.Insert(tile, Buffer{Side: 4, BandCount: 4})

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	buf, ok := c.Take(tile)
	if !ok {
		t.Fatal("Take reported missing buffer after Insert")
	}
	if buf.Side != 4 {
		t.Fatalf("buf.Side = %d, want 4", buf.Side)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Take, want 0", c.Len())
	}

	if _, ok := c.Take(tile); ok {
		t.Fatal("second Take found a buffer that should already be gone")
	}
}

func TestChildCacheEvictDiscardsWithoutReturning(t *testing.T) {
	c := NewChildCache()
	tile := tilecoord.Tile{Zoom: 3, X: 1, Y: 1}
	c.Insert(tile, Buffer{Side: 4, BandCount: 4})
	c.Evict(tile)
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Evict, want 0", c.Len())
	}
	if _, ok := c.Take(tile); ok {
		t.Fatal("Take found a buffer after Evict")
	}
}

func TestChildCacheMissingBufferMeansEmptyTile(t *testing.T) {
	c := NewChildCache()
	if _, ok := c.Take(tilecoord.Tile{Zoom: 1, X: 0, Y: 0}); ok {
		t.Fatal("Take reported a buffer for a tile that was never inserted")
	}
}
