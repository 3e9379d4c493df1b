package tilecoord

import (
	"math/rand"
	"sort"
	"testing"
)

func TestParentChildRoundTrip(t *testing.T) {
	tile := Tile{Zoom: 5, X: 10, Y: 20}
	children := tile.Children()
	for i, c := range children {
		p, ok := c.Parent()
		if !ok || p != tile {
			t.Fatalf("child %d: parent = %+v, want %+v", i, p, tile)
		}
	}
}

func TestParentAtZoomZero(t *testing.T) {
	if _, ok := (Tile{Zoom: 0}).Parent(); ok {
		t.Fatal("expected no parent at zoom 0")
	}
}

func TestAncestorUndefinedPastRoot(t *testing.T) {
	tile := Tile{Zoom: 2, X: 1, Y: 1}
	if _, ok := tile.Ancestor(3); ok {
		t.Fatal("expected ancestor(3) of a zoom-2 tile to be undefined")
	}
	a, ok := tile.Ancestor(2)
	if !ok || a != (Tile{Zoom: 0, X: 0, Y: 0}) {
		t.Fatalf("ancestor(2) = %+v, %v", a, ok)
	}
}

func TestSectorInAncestor(t *testing.T) {
	tile := Tile{Zoom: 5, X: 13, Y: 9}
	sx, sy := tile.SectorInAncestor(3)
	if sx != 13%8 || sy != 9%8 {
		t.Fatalf("sector = (%d,%d)", sx, sy)
	}
}

func TestBoundsCenterRoundTrip(t *testing.T) {
	for _, tile := range []Tile{{Zoom: 0}, {Zoom: 3, X: 2, Y: 5}, {Zoom: 10, X: 511, Y: 200}} {
		b := tile.Bounds(256)
		cx, cy := (b.MinX+b.MaxX)/2, (b.MinY+b.MaxY)/2
		pixelSize := (b.MaxX - b.MinX) / 256
		x := uint32((cx + WebMercatorExtent) / (pixelSize * 256))
		y := uint32((WebMercatorExtent - cy) / (pixelSize * 256))
		if x != tile.X || y != tile.Y {
			t.Fatalf("tile %+v: recovered (%d,%d)", tile, x, y)
		}
	}
}

func referenceInterleave(v uint32) uint64 {
	var out uint64
	for i := 0; i < 32; i++ {
		if v&(1<<uint(i)) != 0 {
			out |= 1 << uint(2*i)
		}
	}
	return out
}

func TestMortonMatchesReferenceInterleave(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		x := uint32(r.Intn(1 << 20))
		y := uint32(r.Intn(1 << 20))
		tile := Tile{X: x, Y: y}
		want := referenceInterleave(x) | (referenceInterleave(y) << 1)
		if got := tile.Morton(); got != want {
			t.Fatalf("Morton(%d,%d) = %d, want %d", x, y, got, want)
		}
	}
}

func TestMortonSortStableAcrossPermutations(t *testing.T) {
	base := make([]Tile, 0, 64)
	for x := uint32(0); x < 8; x++ {
		for y := uint32(0); y < 8; y++ {
			base = append(base, Tile{Zoom: 3, X: x, Y: y})
		}
	}

	sortByMorton := func(tiles []Tile) {
		sort.Slice(tiles, func(i, j int) bool { return tiles[i].Morton() < tiles[j].Morton() })
	}

	want := append([]Tile(nil), base...)
	sortByMorton(want)

	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]Tile(nil), base...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		sortByMorton(shuffled)
		for i := range want {
			if shuffled[i] != want[i] {
				t.Fatalf("trial %d: order mismatch at %d: got %+v, want %+v", trial, i, shuffled[i], want[i])
			}
		}
	}
}
