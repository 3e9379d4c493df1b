package coverage

import (
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func worldFootprint() tilecoord.BBox {
	return tilecoord.BBox{
		MinX: -tilecoord.WebMercatorExtent,
		MinY: -tilecoord.WebMercatorExtent,
		MaxX: tilecoord.WebMercatorExtent,
		MaxY: tilecoord.WebMercatorExtent,
	}
}

func TestPlanCoversWholeWorldAtMaxZoom(t *testing.T) {
	const maxZoom = 2
	plan, err := Plan(worldFootprint(), maxZoom, 256, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := 1 << (maxZoom * 2) // 4^maxZoom tiles span the whole world
	if len(plan.Leaves) != want {
		t.Fatalf("len(Leaves) = %d, want %d", len(plan.Leaves), want)
	}
}

func TestPlanLeavesAreMortonSorted(t *testing.T) {
	plan, err := Plan(worldFootprint(), 3, 256, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i := 1; i < len(plan.Leaves); i++ {
		if plan.Leaves[i-1].Morton() > plan.Leaves[i].Morton() {
			t.Fatalf("leaves not Morton-sorted at index %d", i)
		}
	}
}

func TestPlanPendingIncludesFullAncestorClosure(t *testing.T) {
	plan, err := Plan(worldFootprint(), 2, 256, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, leaf := range plan.Leaves {
		cur := leaf
		for {
			if _, ok := plan.Pending[cur]; !ok {
				t.Fatalf("ancestor %+v of leaf %+v missing from Pending", cur, leaf)
			}
			parent, ok := cur.Parent()
			if !ok {
				break
			}
			cur = parent
		}
	}
	if _, ok := plan.Pending[tilecoord.Tile{Zoom: 0, X: 0, Y: 0}]; !ok {
		t.Fatal("Pending missing the zoom-0 root")
	}
}

func TestPlanRestrictsToSmallFootprint(t *testing.T) {
	const maxZoom = 4
	tileSize := 256
	tile := tilecoord.Tile{Zoom: maxZoom, X: 3, Y: 3}
	b := tile.Bounds(tileSize)

	plan, err := Plan(b, maxZoom, tileSize, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Leaves) != 1 || plan.Leaves[0] != tile {
		t.Fatalf("Leaves = %+v, want exactly [%+v]", plan.Leaves, tile)
	}
}

func TestPlanRejectsNegativeMaxZoom(t *testing.T) {
	if _, err := Plan(worldFootprint(), -1, 256, nil); err == nil {
		t.Fatal("expected an error for a negative max zoom")
	}
}
