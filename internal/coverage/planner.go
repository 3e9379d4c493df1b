// Package coverage enumerates the max-zoom tiles intersecting a source
// footprint, optionally restricted by a clipping polygon, and computes the
// transitive closure of their ancestors up to zoom 0.
package coverage

import (
	"fmt"
	"sort"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// TilePlan is the planner's output: the Morton-sorted max-zoom leaves to feed
// into the worker pool, and the full pending set (leaves + every distinct
// ancestor up to zoom 0) that the scheduler tracks for parent release.
type TilePlan struct {
	Leaves  []tilecoord.Tile
	Pending map[tilecoord.Tile]struct{}
}

// Plan enumerates every tile at zoom maxZoom whose bounds intersect
// footprint (and, if clip is non-nil, the clipping polygon), sorts them by
// Morton code, and walks parents from each down to zoom 0 to build the
// closure recorded in Pending.
func Plan(footprint tilecoord.BBox, maxZoom, tileSize int, clip *ClipPolygon) (TilePlan, error) {
	if maxZoom < 0 {
		return TilePlan{}, fmt.Errorf("coverage: max zoom must be >= 0, got %d", maxZoom)
	}

	tileSpan := (2 * tilecoord.WebMercatorExtent) / exp2(maxZoom)

	minTX := tileIndex(footprint.MinX+tilecoord.WebMercatorExtent, tileSpan, false)
	maxTX := tileIndex(footprint.MaxX+tilecoord.WebMercatorExtent, tileSpan, true)
	minTY := tileIndex(tilecoord.WebMercatorExtent-footprint.MaxY, tileSpan, false)
	maxTY := tileIndex(tilecoord.WebMercatorExtent-footprint.MinY, tileSpan, true)

	maxIdx := uint32(1)<<uint(maxZoom) - 1
	minTX, maxTX = clampIdx(minTX, maxIdx), clampIdx(maxTX, maxIdx)
	minTY, maxTY = clampIdx(minTY, maxIdx), clampIdx(maxTY, maxIdx)

	var leaves []tilecoord.Tile
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			tile := tilecoord.Tile{Zoom: uint8(maxZoom), X: tx, Y: ty}
			if clip != nil && !clip.IntersectsBounds(tile.Bounds(tileSize)) {
				continue
			}
			leaves = append(leaves, tile)
		}
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Morton() < leaves[j].Morton() })

	pending := make(map[tilecoord.Tile]struct{}, len(leaves)*2)
	for _, leaf := range leaves {
		cur := leaf
		for {
			if _, seen := pending[cur]; seen {
				break
			}
			pending[cur] = struct{}{}
			parent, ok := cur.Parent()
			if !ok {
				break
			}
			cur = parent
		}
	}

	return TilePlan{Leaves: leaves, Pending: pending}, nil
}

func exp2(z int) float64 {
	e := 1.0
	for i := 0; i < z; i++ {
		e *= 2
	}
	return e
}

// tileIndex converts a mercator-space offset into a tile index, rounding
// down (floor) or up (ceil, minus one, to make the range inclusive).
func tileIndex(offset, span float64, ceil bool) uint32 {
	q := offset / span
	if ceil {
		i := int64(q)
		if q > float64(i) {
			i++
		}
		i--
		if i < 0 {
			i = 0
		}
		return uint32(i)
	}
	i := int64(q)
	if i < 0 {
		i = 0
	}
	return uint32(i)
}

func clampIdx(v, max uint32) uint32 {
	if v > max {
		return max
	}
	return v
}
