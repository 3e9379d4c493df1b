package coverage

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// ClipPolygon is an optional clipping region, read from a GeoJSON
// Feature/FeatureCollection/Geometry in EPSG:4326 and reprojected once to
// EPSG:3857 for use against tile bounds.
type ClipPolygon struct {
	polygons orb.MultiPolygon
	bound    orb.Bound
}

// LoadClipPolygon reads a GeoJSON file (Feature, FeatureCollection, or bare
// Geometry) in WGS84 and reprojects every polygon/multipolygon it contains
// to Web Mercator.
func LoadClipPolygon(path string) (*ClipPolygon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clip polygon %s: %w", path, err)
	}

	geoms, err := extractGeometries(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing clip polygon %s: %w", path, err)
	}
	if len(geoms) == 0 {
		return nil, fmt.Errorf("clip polygon %s: no polygon geometry found", path)
	}

	var merged orb.MultiPolygon
	for _, g := range geoms {
		projected := project.Geometry(g, project.WGS84ToMercator)
		switch p := projected.(type) {
		case orb.Polygon:
			merged = append(merged, p)
		case orb.MultiPolygon:
			merged = append(merged, p...)
		default:
			return nil, fmt.Errorf("clip polygon %s: unsupported geometry type %T", path, g)
		}
	}

	bound := merged.Bound()
	return &ClipPolygon{polygons: merged, bound: bound}, nil
}

// extractGeometries pulls every Polygon/MultiPolygon out of a GeoJSON
// payload, regardless of whether it's a bare Geometry, a Feature, or a
// FeatureCollection.
func extractGeometries(raw []byte) ([]orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil {
		var out []orb.Geometry
		for _, f := range fc.Features {
			out = append(out, f.Geometry)
		}
		return out, nil
	}

	if f, err := geojson.UnmarshalFeature(raw); err == nil {
		return []orb.Geometry{f.Geometry}, nil
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return []orb.Geometry{g.Geometry()}, nil
}

// IntersectsBounds reports whether the clip polygon overlaps the given
// Mercator tile bounds. This is an approximate intersection test — exact
// for the common cases (a tile corner inside the polygon, a polygon vertex
// inside the tile, one fully containing the other) but does not perform a
// full segment-sweep, matching spec.md's loose "bbox intersects the
// polygon" wording.
func (c *ClipPolygon) IntersectsBounds(b tilecoord.BBox) bool {
	tb := orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
	if !tb.Intersects(c.bound) {
		return false
	}

	corners := []orb.Point{
		{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MinX, b.MaxY}, {b.MaxX, b.MaxY},
	}
	for _, poly := range c.polygons {
		for _, corner := range corners {
			if planar.PolygonContains(poly, corner) {
				return true
			}
		}
		for _, ring := range poly {
			for _, v := range ring {
				if tb.Contains(v) {
					return true
				}
			}
		}
	}
	return false
}
