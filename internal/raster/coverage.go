package raster

import "math"

// CoverageGap is a rectangular hole, in source-CRS coordinates, within the
// merged bounding box of a set of sources that no source actually covers.
type CoverageGap struct {
	MinX, MinY, MaxX, MaxY float64
}

// CheckCoverageGaps grids the merged footprint of sources and flood-fills
// the cells no source's bounding box touches, returning one CoverageGap
// per contiguous hole. A single source trivially has no gaps.
func CheckCoverageGaps(sources []*Reader) []CoverageGap {
	if len(sources) <= 1 {
		return nil
	}

	type bbox struct{ minX, minY, maxX, maxY float64 }
	boxes := make([]bbox, len(sources))
	mergedMinX, mergedMinY := math.MaxFloat64, math.MaxFloat64
	mergedMaxX, mergedMaxY := -math.MaxFloat64, -math.MaxFloat64
	var totalW, totalH float64

	for i, src := range sources {
		minX, minY, maxX, maxY := src.BoundsInCRS()
		boxes[i] = bbox{minX, minY, maxX, maxY}
		mergedMinX, mergedMinY = math.Min(mergedMinX, minX), math.Min(mergedMinY, minY)
		mergedMaxX, mergedMaxY = math.Max(mergedMaxX, maxX), math.Max(mergedMaxY, maxY)
		totalW += maxX - minX
		totalH += maxY - minY
	}

	avgW, avgH := totalW/float64(len(sources)), totalH/float64(len(sources))
	if avgW <= 0 || avgH <= 0 {
		return nil
	}

	// Grid at half the average source's extent: fine enough to spot a
	// single-file-sized hole without making the flood-fill expensive.
	cellW, cellH := avgW/2, avgH/2
	nx := int(math.Ceil((mergedMaxX - mergedMinX) / cellW))
	ny := int(math.Ceil((mergedMaxY - mergedMinY) / cellH))

	const maxGrid = 2000
	if nx > maxGrid {
		cellW = (mergedMaxX - mergedMinX) / maxGrid
		nx = maxGrid
	}
	if ny > maxGrid {
		cellH = (mergedMaxY - mergedMinY) / maxGrid
		ny = maxGrid
	}
	if nx <= 0 || ny <= 0 {
		return nil
	}

	covered := make([]bool, nx*ny)
	for iy := 0; iy < ny; iy++ {
		cy := mergedMinY + (float64(iy)+0.5)*cellH
		for ix := 0; ix < nx; ix++ {
			cx := mergedMinX + (float64(ix)+0.5)*cellW
			for _, b := range boxes {
				if cx >= b.minX && cx <= b.maxX && cy >= b.minY && cy <= b.maxY {
					covered[iy*nx+ix] = true
					break
				}
			}
		}
	}

	visited := make([]bool, nx*ny)
	var gaps []CoverageGap
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			idx := iy*nx + ix
			if covered[idx] || visited[idx] {
				continue
			}

			gapMinX, gapMinY := math.MaxFloat64, math.MaxFloat64
			gapMaxX, gapMaxY := -math.MaxFloat64, -math.MaxFloat64
			queue := [][2]int{{ix, iy}}
			visited[idx] = true

			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				cx, cy := cur[0], cur[1]

				cellMinX := mergedMinX + float64(cx)*cellW
				cellMinY := mergedMinY + float64(cy)*cellH
				gapMinX, gapMinY = math.Min(gapMinX, cellMinX), math.Min(gapMinY, cellMinY)
				gapMaxX, gapMaxY = math.Max(gapMaxX, cellMinX+cellW), math.Max(gapMaxY, cellMinY+cellH)

				for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx2, ny2 := cx+d[0], cy+d[1]
					if nx2 >= 0 && nx2 < nx && ny2 >= 0 && ny2 < ny {
						if nIdx := ny2*nx + nx2; !covered[nIdx] && !visited[nIdx] {
							visited[nIdx] = true
							queue = append(queue, [2]int{nx2, ny2})
						}
					}
				}
			}
			gaps = append(gaps, CoverageGap{gapMinX, gapMinY, gapMaxX, gapMaxY})
		}
	}
	return gaps
}

// MergedBoundsWGS84 reprojects every source's footprint corners to WGS84
// through the shared Projection registry and returns their union.
func MergedBoundsWGS84(sources []*Reader) Bounds {
	if len(sources) == 0 {
		return Bounds{}
	}

	merged := Bounds{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90}
	for _, src := range sources {
		minX, minY, maxX, maxY := src.BoundsInCRS()
		proj := ForEPSG(src.EPSG())
		if proj == nil {
			proj = &WGS84Identity{} // unrecognized CRS: assume coordinates are already WGS84
		}

		corners := [4][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}}
		for _, c := range corners {
			lon, lat := proj.ToWGS84(c[0], c[1])
			merged.MinLon = math.Min(merged.MinLon, lon)
			merged.MaxLon = math.Max(merged.MaxLon, lon)
			merged.MinLat = math.Min(merged.MinLat, lat)
			merged.MaxLat = math.Max(merged.MaxLat, lat)
		}
	}
	return merged
}
