package raster

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// worldFile holds the six affine parameters of a TIFF World File (.tfw),
// the de facto sidecar format for georeferencing a TIFF that carries no
// GeoTIFF tags of its own. Each value is one line of the file:
//
//	1: pixel width              4: pixel height (negative, north-up)
//	2: row rotation (unsupported, must be 0)
//	3: column rotation (unsupported, must be 0)
//	5: X of the upper-left pixel's center
//	6: Y of the upper-left pixel's center
type worldFile struct {
	pixelSizeX float64
	rotationRow float64
	rotationCol float64
	pixelSizeY  float64
	centerX     float64
	centerY     float64
}

// parseWorldFile reads and validates a TFW sidecar at path.
func parseWorldFile(path string) (*worldFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("raster: reading world file %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 6 {
		return nil, fmt.Errorf("raster: world file %s has %d lines, want 6", path, len(lines))
	}

	var vals [6]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("raster: world file %s line %d: %w", path, i+1, err)
		}
		vals[i] = v
	}

	wf := &worldFile{
		pixelSizeX:  vals[0],
		rotationRow: vals[1],
		rotationCol: vals[2],
		pixelSizeY:  vals[3],
		centerX:     vals[4],
		centerY:     vals[5],
	}
	if wf.rotationRow != 0 || wf.rotationCol != 0 {
		return nil, fmt.Errorf("raster: world file %s: rotated grids are not supported (rotation %g, %g)",
			path, wf.rotationRow, wf.rotationCol)
	}
	return wf, nil
}

// findWorldFile looks for a sidecar next to tiffPath, trying the usual
// .tfw/.tifw spelling variants in order.
func findWorldFile(tiffPath string) string {
	ext := filepath.Ext(tiffPath)
	base := tiffPath[:len(tiffPath)-len(ext)]

	for _, candidate := range []string{".tfw", ".TFW", ".tifw", ".TIFW"} {
		p := base + candidate
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// toGeoInfo converts the world file's affine parameters into a GeoInfo.
// TFW ties down pixel *centers*; the rest of the pipeline works from pixel
// *corners*, so the origin is shifted half a pixel out.
func (wf *worldFile) toGeoInfo() GeoInfo {
	px := math.Abs(wf.pixelSizeX)
	py := math.Abs(wf.pixelSizeY)
	return GeoInfo{
		PixelSizeX: px,
		PixelSizeY: py,
		OriginX:    wf.centerX - px/2,
		OriginY:    wf.centerY + py/2,
	}
}
