package pyramid

import (
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func TestExtentsTracksPerZoomBoundingBox(t *testing.T) {
	e := NewExtents()
	tiles := []tilecoord.Tile{
		{Zoom: 2, X: 1, Y: 1},
		{Zoom: 2, X: 3, Y: 0},
		{Zoom: 2, X: 2, Y: 2},
		{Zoom: 3, X: 5, Y: 5},
	}
	for _, t := range tiles {
		e.Update(t)
	}

	snap := e.Snapshot()
	z2 := snap[2]
	if z2.MinX != 1 || z2.MaxX != 3 || z2.MinY != 0 || z2.MaxY != 2 {
		t.Fatalf("zoom 2 limits = %+v, want {MinX:1 MaxX:3 MinY:0 MaxY:2}", z2)
	}

	z3 := snap[3]
	if z3 != (Limits{MinX: 5, MaxX: 5, MinY: 5, MaxY: 5}) {
		t.Fatalf("zoom 3 limits = %+v, want a single-tile box", z3)
	}

	if _, ok := snap[7]; ok {
		t.Fatal("snapshot reported limits for a zoom that was never updated")
	}
}

func TestExtentsSnapshotIsACopy(t *testing.T) {
	e := NewExtents()
	e.Update(tilecoord.Tile{Zoom: 0, X: 0, Y: 0})
	snap := e.Snapshot()
	snap[0] = Limits{MinX: 99, MaxX: 99, MinY: 99, MaxY: 99}

	snap2 := e.Snapshot()
	if snap2[0] == (Limits{MinX: 99, MaxX: 99, MinY: 99, MaxY: 99}) {
		t.Fatal("mutating a returned snapshot leaked back into Extents state")
	}
}
