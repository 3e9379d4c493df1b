package raster

import (
	"math"
	"testing"
)

func TestWebMercatorRoundTrip(t *testing.T) {
	proj := &WebMercatorProj{}
	cases := []struct{ lon, lat float64 }{
		{0, 0}, {-122.4194, 37.7749}, {151.2093, -33.8688}, {-179.9, 85},
	}
	for _, c := range cases {
		x, y := proj.FromWGS84(c.lon, c.lat)
		lon, lat := proj.ToWGS84(x, y)
		if math.Abs(lon-c.lon) > 1e-6 || math.Abs(lat-c.lat) > 1e-6 {
			t.Fatalf("round trip (%v,%v) -> (%v,%v) -> (%v,%v)", c.lon, c.lat, x, y, lon, lat)
		}
	}
}

func TestWebMercatorEPSGCode(t *testing.T) {
	if got := (&WebMercatorProj{}).EPSG(); got != 3857 {
		t.Fatalf("EPSG() = %d, want 3857", got)
	}
}

func TestResolutionHalvesPerZoomLevel(t *testing.T) {
	for z := 0; z < 10; z++ {
		r0 := ResolutionAtLat(0, z)
		r1 := ResolutionAtLat(0, z+1)
		if math.Abs(r0/2-r1) > 1e-9 {
			t.Fatalf("resolution at zoom %d = %v, zoom %d = %v; want exactly half", z, r0, z+1, r1)
		}
	}
}

func TestMaxZoomForResolutionFinerPixelGivesHigherZoom(t *testing.T) {
	coarse := MaxZoomForResolution(100, 0)
	fine := MaxZoomForResolution(1, 0)
	if fine <= coarse {
		t.Fatalf("MaxZoomForResolution(1) = %d, want > MaxZoomForResolution(100) = %d", fine, coarse)
	}
}
