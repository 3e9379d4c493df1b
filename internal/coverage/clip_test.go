package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

const squareGeoJSON = `{
  "type": "Feature",
  "geometry": {
    "type": "Polygon",
    "coordinates": [[[-10, -10], [10, -10], [10, 10], [-10, 10], [-10, -10]]]
  },
  "properties": {}
}`

func writeClipFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.geojson")
	if err := os.WriteFile(path, []byte(squareGeoJSON), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadClipPolygonAcceptsAFeature(t *testing.T) {
	path := writeClipFixture(t)
	clip, err := LoadClipPolygon(path)
	if err != nil {
		t.Fatalf("LoadClipPolygon: %v", err)
	}
	if len(clip.polygons) != 1 {
		t.Fatalf("len(polygons) = %d, want 1", len(clip.polygons))
	}
}

func TestClipPolygonIntersectsBoundsInsideVsFarAway(t *testing.T) {
	path := writeClipFixture(t)
	clip, err := LoadClipPolygon(path)
	if err != nil {
		t.Fatalf("LoadClipPolygon: %v", err)
	}

	origin := tilecoord.BBox{MinX: -1000, MinY: -1000, MaxX: 1000, MaxY: 1000}
	if !clip.IntersectsBounds(origin) {
		t.Fatal("expected the origin-centered bbox to intersect a square spanning [-10,10] degrees of mercator meters")
	}

	farAway := tilecoord.BBox{
		MinX: tilecoord.WebMercatorExtent / 2, MinY: tilecoord.WebMercatorExtent / 2,
		MaxX: tilecoord.WebMercatorExtent/2 + 1000, MaxY: tilecoord.WebMercatorExtent/2 + 1000,
	}
	if clip.IntersectsBounds(farAway) {
		t.Fatal("expected a bbox far from the origin not to intersect")
	}
}
