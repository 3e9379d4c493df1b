package raster

import "math"

// GeoKey IDs from the GeoTIFF spec's key directory (tag 34735). Only the
// handful needed to recover an EPSG code are named; the rest of the
// directory is skipped.
const (
	geoKeyGeographicType  = 2048
	geoKeyProjectedCSType = 3072
)

// GeoInfo is the georeferencing this package actually needs downstream:
// an origin and pixel size in source-CRS units, plus (when available) the
// EPSG code identifying that CRS.
type GeoInfo struct {
	EPSG       int
	OriginX    float64 // source-CRS X of the upper-left pixel's outer corner
	OriginY    float64 // source-CRS Y of the upper-left pixel's outer corner
	PixelSizeX float64
	PixelSizeY float64
}

// parseGeoInfo recovers GeoInfo from a directory's GeoTIFF tags (model
// tiepoint + pixel scale + GeoKey directory). Callers fall back to a TFW
// sidecar or EPSG inference when the result is the zero value.
func parseGeoInfo(d *directory) GeoInfo {
	var info GeoInfo

	if len(d.ModelPixelScale) >= 2 {
		info.PixelSizeX = d.ModelPixelScale[0]
		info.PixelSizeY = d.ModelPixelScale[1]
	}

	// ModelTiepoint is [rasterI, rasterJ, rasterK, modelX, modelY, modelZ]:
	// pixel (rasterI, rasterJ) maps to CRS coordinate (modelX, modelY).
	// Virtually every COG ties down pixel (0,0), so the general affine
	// offset collapses to a direct origin computation.
	if len(d.ModelTiepoint) >= 6 {
		info.OriginX = d.ModelTiepoint[3] - d.ModelTiepoint[0]*info.PixelSizeX
		info.OriginY = d.ModelTiepoint[4] + d.ModelTiepoint[1]*info.PixelSizeY
	}

	info.EPSG = geoKeyEPSG(d.GeoKeys)
	return info
}

// geoKeyEPSG scans a GeoKey directory for a projected or geographic CRS
// code. Returns 0 when neither key is present (a "user-defined" CRS, or
// georeferencing that came from a TFW sidecar instead).
func geoKeyEPSG(keys []uint16) int {
	if len(keys) < 4 {
		return 0
	}

	// Directory header: [KeyDirectoryVersion, KeyRevision, MinorRevision,
	// NumberOfKeys], followed by NumberOfKeys 4-uint16 key records.
	n := int(keys[3])
	for i := 0; i < n; i++ {
		base := 4 + i*4
		if base+3 >= len(keys) {
			break
		}
		id := keys[base]
		value := keys[base+3]
		switch id {
		case geoKeyProjectedCSType, geoKeyGeographicType:
			if value > 0 {
				return int(value)
			}
		}
	}
	return 0
}

// inferEPSG guesses a CRS for georeferencing that carried no EPSG code
// (typically a TFW sidecar), from the plausible coordinate range of the
// image's footprint. Falls back to WGS84 when nothing more specific fits.
func inferEPSG(info GeoInfo, width, height uint32) int {
	maxX := info.OriginX + float64(width)*info.PixelSizeX
	minY := info.OriginY - float64(height)*info.PixelSizeY

	if info.OriginX >= -180 && maxX <= 360 && minY >= -90 && info.OriginY <= 90 {
		return 4326
	}

	if math.Abs(info.OriginX) > 100_000 || math.Abs(info.OriginY) > 100_000 {
		if info.OriginX >= 2_400_000 && info.OriginX <= 2_900_000 &&
			info.OriginY >= 1_000_000 && info.OriginY <= 1_400_000 {
			return 2056 // Swiss LV95
		}
		if math.Abs(info.OriginX) <= 20_037_508.34 && math.Abs(info.OriginY) <= 20_048_966.10 {
			return 3857 // Web Mercator
		}
	}

	return 4326
}
