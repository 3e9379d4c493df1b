package raster

import (
	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// warpSource pairs a Reader with its CRS bounds and geo-metadata, resolved
// once up front so the per-pixel sampling loop never has to recompute them.
type warpSource struct {
	reader  *Reader
	proj    Projection
	minCRSX float64
	minCRSY float64
	maxCRSX float64
	maxCRSY float64
	geo     GeoInfo
}

func buildWarpSources(readers []*Reader, transform Transform) ([]warpSource, error) {
	out := make([]warpSource, len(readers))
	for i, r := range readers {
		proj := ForEPSG(r.EPSG())
		if proj == nil {
			proj = &WebMercatorProj{}
		}
		minX, minY, maxX, maxY := r.BoundsInCRS()
		out[i] = warpSource{
			reader:  r,
			proj:    proj,
			minCRSX: minX,
			minCRSY: minY,
			maxCRSX: maxX,
			maxCRSY: maxY,
			geo:     r.GeoInfo(),
		}
	}
	return out, nil
}

// Warp takes a set of source-dataset handles, a target side length and
// band count, a target geo-transform implied by bounds (the megatile's
// Mercator bbox, or a single tile's bbox outside the max-zoom regime), and
// a transform descriptor. It performs per-output-pixel inverse projection
// into each source's native CRS and Lanczos-resamples, with the
// inverse-projection and convolution loop implemented directly in Go
// rather than shelled out to a C warping library. The transform descriptor
// is not applied: each source's projection is ForEPSG of its own EPSG code,
// or Web Mercator when that code is not registered. Returns an interleaved
// row-major buffer of side*side*bandCount bytes.
func Warp(readers []*Reader, bounds tilecoord.BBox, side, bandCount int, transform Transform, cache *TileCache) ([]byte, error) {
	sources, err := buildWarpSources(readers, transform)
	if err != nil {
		return nil, err
	}

	out := make([]byte, side*side*bandCount)
	target := &WebMercatorProj{}

	pixelSizeX := (bounds.MaxX - bounds.MinX) / float64(side)
	pixelSizeY := (bounds.MaxY - bounds.MinY) / float64(side)

	for py := 0; py < side; py++ {
		// Mercator Y decreases as pixel row increases (north at the top).
		my := bounds.MaxY - (float64(py)+0.5)*pixelSizeY
		for px := 0; px < side; px++ {
			mx := bounds.MinX + (float64(px)+0.5)*pixelSizeX

			lon, lat := target.ToWGS84(mx, my)

			rgba, found := sampleSources(sources, lon, lat, cache)
			if !found {
				continue
			}

			idx := (py*side + px) * bandCount
			switch bandCount {
			case 2:
				out[idx] = rgba[0]
				out[idx+1] = rgba[3]
			default:
				out[idx] = rgba[0]
				if bandCount > 1 {
					out[idx+1] = rgba[1]
				}
				if bandCount > 2 {
					out[idx+2] = rgba[2]
				}
				if bandCount > 3 {
					out[idx+3] = rgba[3]
				}
			}
		}
	}

	return out, nil
}

// sampleSources finds the first source covering (lon, lat) and
// Lanczos-samples it at an appropriate overview level.
func sampleSources(sources []warpSource, lon, lat float64, cache *TileCache) ([4]uint8, bool) {
	for i := range sources {
		s := &sources[i]
		srcX, srcY := s.proj.FromWGS84(lon, lat)
		if srcX < s.minCRSX || srcX > s.maxCRSX || srcY < s.minCRSY || srcY > s.maxCRSY {
			continue
		}

		level := bestOverview(s)
		pixelSize := s.reader.IFDPixelSize(level)
		imgW := s.reader.IFDWidth(level)
		imgH := s.reader.IFDHeight(level)

		fx := (srcX - s.geo.OriginX) / pixelSize
		fy := (s.geo.OriginY - srcY) / pixelSize
		if fx < 0 || fx >= float64(imgW) || fy < 0 || fy >= float64(imgH) {
			continue
		}

		ps := pixelSource{reader: s.reader, level: level, imgW: imgW, imgH: imgH}
		rgba, err := lanczosSample(ps, fx, fy, cache)
		if err != nil {
			continue
		}
		return rgba, true
	}
	return [4]uint8{}, false
}

// bestOverview picks the finest overview whose resolution does not exceed
// what the source's own full-resolution pixel size provides; a single
// source raster here has no separate target zoom to aim for, so the
// full-resolution level (0) is the correct and only sensible choice for
// the megatile warp — the effective "zoom" is fully determined by the
// megatile's own side length relative to its Mercator bounds.
func bestOverview(s *warpSource) int {
	return s.reader.OverviewForZoom(0)
}
