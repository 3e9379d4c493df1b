package raster

// Projection converts between a source CRS and WGS84 longitude/latitude.
// Every source raster this package opens ends up tagged with an EPSG code
// (embedded, from a TFW sidecar, or inferred); ForEPSG turns that code into
// the concrete math needed to place the raster on a WGS84 tile grid.
type Projection interface {
	ToWGS84(x, y float64) (lon, lat float64)
	FromWGS84(lon, lat float64) (x, y float64)
	EPSG() int
}

// registeredProjections holds one instance per supported EPSG code; each
// implementation is stateless, so sharing them across callers is safe.
var registeredProjections = map[int]Projection{
	2056: &SwissLV95{},
	3857: &WebMercatorProj{},
	4326: &WGS84Identity{},
}

// ForEPSG returns the Projection for epsg, or nil if it isn't one of the
// CRSes this package knows how to place on a map.
func ForEPSG(epsg int) Projection {
	return registeredProjections[epsg]
}

// WGS84Identity is a pass-through projection for sources already in
// EPSG:4326, so callers never need to special-case "no reprojection".
type WGS84Identity struct{}

func (w *WGS84Identity) EPSG() int                                 { return 4326 }
func (w *WGS84Identity) ToWGS84(x, y float64) (lon, lat float64)   { return x, y }
func (w *WGS84Identity) FromWGS84(lon, lat float64) (x, y float64) { return lon, lat }
