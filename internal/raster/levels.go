package raster

import (
	"fmt"
	"math"
)

// OverviewForZoom picks the IFD level whose ground sample distance is
// closest to outputPixelSizeCRS, which must be in the same units as the
// source CRS (meters for metric projections, degrees for EPSG:4326).
func (r *Reader) OverviewForZoom(outputPixelSizeCRS float64) int {
	best, bestRatio := 0, math.Inf(1)
	for i, d := range r.ifds {
		levelPixelSize := r.geo.PixelSizeX * float64(r.ifds[0].Width) / float64(d.Width)
		if ratio := math.Abs(levelPixelSize/outputPixelSizeCRS - 1); ratio < bestRatio {
			bestRatio, best = ratio, i
		}
	}
	return best
}

// IFDPixelSize is the ground sample distance of the given level, derived
// from the full-resolution pixel size by the level's downsampling ratio.
func (r *Reader) IFDPixelSize(level int) float64 {
	return r.geo.PixelSizeX * float64(r.ifds[0].Width) / float64(r.ifds[level].Width)
}

func (r *Reader) IFDWidth(level int) int  { return int(r.ifds[level].Width) }
func (r *Reader) IFDHeight(level int) int { return int(r.ifds[level].Height) }

// IFDTileSize returns [tileWidth, tileHeight] for the given level.
func (r *Reader) IFDTileSize(level int) [2]int {
	return [2]int{int(r.ifds[level].TileWidth), int(r.ifds[level].TileHeight)}
}

// FormatDescription is a short human-readable summary of the source's
// pixel format, e.g. "LZW, 3x uint8" or "Deflate, 1x float32" — used in
// progress and diagnostic output, not parsed by anything.
func (r *Reader) FormatDescription() string {
	d := &r.ifds[0]

	comp := "unknown"
	switch d.Compression {
	case compNone:
		comp = "uncompressed"
	case compLZW:
		comp = "LZW"
	case compJPEG:
		comp = "JPEG"
	case compDeflate, compAdobeDeflate:
		comp = "Deflate"
	}

	bps := 8
	if len(d.BitsPerSample) > 0 {
		bps = int(d.BitsPerSample[0])
	}
	sampleType := "uint"
	if r.IsFloat() {
		sampleType = "float"
	}
	return fmt.Sprintf("%s, %dx %s%d", comp, d.SamplesPerPixel, sampleType, bps)
}

// IsFloat reports whether the source stores IEEE float samples (elevation
// rasters) rather than integer ones.
func (r *Reader) IsFloat() bool {
	d := &r.ifds[0]
	return len(d.SampleFormat) > 0 && d.SampleFormat[0] == 3
}

// NoData returns the source's GDAL_NODATA string, or "" if it carries none.
func (r *Reader) NoData() string { return r.ifds[0].NoData }

// Directory exposes the parsed IFD for the given level, for callers (tests,
// diagnostics) that need to inspect tag values directly rather than through
// one of the narrower accessors above.
func (r *Reader) Directory(level int) directory { return r.ifds[level] }

// RawBytes copies n bytes out of the memory mapping starting at offset,
// clamped to the file's actual size.
func (r *Reader) RawBytes(offset uint64, n int) []byte {
	end := offset + uint64(n)
	if end > uint64(len(r.data)) {
		end = uint64(len(r.data))
	}
	out := make([]byte, end-offset)
	copy(out, r.data[offset:end])
	return out
}
