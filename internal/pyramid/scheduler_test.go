package pyramid

import (
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func TestProcessedReleasesParentOnlyWhenAllChildrenDone(t *testing.T) {
	parent := tilecoord.Tile{Zoom: 2, X: 1, Y: 1}
	kids := parent.Children()

	pending := make(map[tilecoord.Tile]struct{}, 5)
	pending[parent] = struct{}{}
	for _, c := range kids {
		pending[c] = struct{}{}
	}

	s := NewState(pending, 3, 1)
	for i := 0; i < 3; i++ {
		s.Processed(kids[i])
		if _, ok := s.Next(); ok {
			t.Fatalf("parent released after only %d of 4 children processed", i+1)
		}
	}

	s.Processed(kids[3])
	batch, ok := s.Next()
	if !ok {
		t.Fatal("expected parent to be ready after its 4th child was processed")
	}
	if len(batch) != 1 || batch[0] != parent {
		t.Fatalf("Next() = %+v, want [%+v]", batch, parent)
	}
}

func TestSeedGroupsMaxZoomSiblingsSharingWarpAncestor(t *testing.T) {
	maxZoom := uint8(4)
	warpZoom := 2
	ancestor := tilecoord.Tile{Zoom: maxZoom - uint8(warpZoom), X: 0, Y: 0}

	var leaves []tilecoord.Tile
	cur := []tilecoord.Tile{ancestor}
	for z := 0; z < warpZoom; z++ {
		var next []tilecoord.Tile
		for _, t := range cur {
			next = append(next, t.Children()[:]...)
		}
		cur = next
	}
	leaves = cur

	pending := make(map[tilecoord.Tile]struct{}, len(leaves))
	for _, l := range leaves {
		pending[l] = struct{}{}
	}

	s := NewState(pending, maxZoom, warpZoom)
	groups := SeedGroups(leaves, warpZoom)
	if len(groups) != 1 {
		t.Fatalf("SeedGroups produced %d groups, want 1 (all share ancestor %+v)", len(groups), ancestor)
	}

	assigned := s.Seed(groups, 1)
	if len(assigned[0]) != len(leaves) {
		t.Fatalf("worker 0 seeded with %d tiles, want %d", len(assigned[0]), len(leaves))
	}
}

func TestSeedSplitsAcrossWorkersAndQueuesRemainder(t *testing.T) {
	leaves := []tilecoord.Tile{
		{Zoom: 1, X: 0, Y: 0},
		{Zoom: 1, X: 1, Y: 0},
		{Zoom: 1, X: 0, Y: 1},
		{Zoom: 1, X: 1, Y: 1},
	}
	groups := [][]tilecoord.Tile{
		{leaves[0]}, {leaves[1]}, {leaves[2]}, {leaves[3]},
	}

	pending := make(map[tilecoord.Tile]struct{}, 4)
	for _, l := range leaves {
		pending[l] = struct{}{}
	}

	s := NewState(pending, 1, 0)
	assigned := s.Seed(groups, 2)
	if len(assigned) != 2 || len(assigned[0]) != 1 || len(assigned[1]) != 1 {
		t.Fatalf("assigned = %+v, want 2 workers with 1 group each", assigned)
	}

	var drained []tilecoord.Tile
	for {
		b, ok := s.Next()
		if !ok {
			break
		}
		drained = append(drained, b...)
	}
	if len(drained) != 2 {
		t.Fatalf("remaining stack drained %d tiles, want 2", len(drained))
	}
}

func TestDoneReportsFalseUntilEveryTileProcessed(t *testing.T) {
	pending := map[tilecoord.Tile]struct{}{
		{Zoom: 0, X: 0, Y: 0}: {},
	}
	s := NewState(pending, 0, 0)
	if s.Done() {
		t.Fatal("Done() true before any tile processed")
	}
	s.Processed(tilecoord.Tile{Zoom: 0, X: 0, Y: 0})
	if !s.Done() {
		t.Fatal("Done() false after the only pending tile was processed")
	}
}
