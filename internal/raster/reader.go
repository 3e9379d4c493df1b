package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Bounds is a geographic extent in WGS84 degrees, the common currency the
// rest of the pipeline (coverage planning, archive metadata) uses once a
// source's native-CRS footprint has been reprojected.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// CenterLat returns the midpoint latitude.
func (b Bounds) CenterLat() float64 {
	return (b.MinLat + b.MaxLat) / 2
}

// Reader is a memory-mapped handle onto one source raster: a (Geo)TIFF,
// tiled or strip-organized, optionally JPEG/LZW/Deflate-compressed, with
// georeferencing from either embedded GeoTIFF tags or a TFW sidecar. The
// mapping makes concurrent tile reads from many warp workers lock-free.
type Reader struct {
	data []byte
	bo   binary.ByteOrder
	ifds []directory
	geo  GeoInfo
	path string
	id   int // cache key assigned by OpenAll; cheaper than hashing path

	strips *stripSet // non-nil when the source was strip- rather than tile-organized
}

// stripSet remembers a strip-organized TIFF's original layout after its
// rows have been regrouped into virtual tiles (see promoteStrips), so tile
// reads can still locate and reassemble the underlying strips.
type stripSet struct {
	offsets      []uint64
	byteCounts   []uint64
	rowsPerStrip uint32
	perTile      int // strips combined into each virtual tile row
}

// Open memory-maps path and parses its TIFF directory structure. A TFW
// sidecar supplies georeferencing when the file carries no GeoTIFF tags;
// strip-organized files are regrouped into virtual tiles so the warp
// pipeline only ever has to think in tiles.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("raster: stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("raster: %s is empty", path)
	}

	data, err := mmapFile(f.Fd(), int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("raster: mmap %s: %w", path, err)
	}

	ifds, bo, err := parseIFDs(bytes.NewReader(data))
	if err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("raster: parse %s: %w", path, err)
	}
	if len(ifds) == 0 {
		munmapFile(data)
		return nil, fmt.Errorf("raster: %s has no image directories", path)
	}

	root := &ifds[0]

	var strips *stripSet
	if root.TileWidth == 0 || root.TileHeight == 0 {
		if len(root.StripOffsets) == 0 {
			munmapFile(data)
			return nil, fmt.Errorf("raster: %s has neither a tile nor a strip layout", path)
		}
		strips = promoteStrips(root)
	}

	switch root.Compression {
	case compNone, compLZW, compJPEG, compDeflate, compAdobeDeflate:
	default:
		munmapFile(data)
		return nil, fmt.Errorf("raster: %s: unsupported compression %d", path, root.Compression)
	}

	geo := parseGeoInfo(root)
	if geo.PixelSizeX == 0 && geo.PixelSizeY == 0 {
		if sidecar := findWorldFile(path); sidecar != "" {
			wf, err := parseWorldFile(sidecar)
			if err != nil {
				munmapFile(data)
				return nil, err
			}
			geo = wf.toGeoInfo()
		}
	}
	if geo.EPSG == 0 && geo.PixelSizeX > 0 {
		geo.EPSG = inferEPSG(geo, root.Width, root.Height)
	}

	return &Reader{data: data, bo: bo, ifds: ifds, geo: geo, path: path, strips: strips}, nil
}

// promoteStrips converts a strip-organized root IFD into a virtual tile
// grid: groups of consecutive strips are treated as one tile, grouped
// large enough (>= minVirtualTileRows rows) that a Lanczos-3 kernel's
// support never has to span more than two virtual tiles. The original
// strip offsets are kept in the returned stripSet so readStripTile can
// still find and reassemble them.
func promoteStrips(root *directory) *stripSet {
	rowsPerStrip := root.RowsPerStrip
	if rowsPerStrip == 0 {
		rowsPerStrip = root.Height
	}

	const minVirtualTileRows = 256
	perTile := 1
	if rowsPerStrip < minVirtualTileRows {
		perTile = int((minVirtualTileRows + rowsPerStrip - 1) / rowsPerStrip)
	}

	totalStrips := len(root.StripOffsets)
	numTiles := (totalStrips + perTile - 1) / perTile

	tileOffsets := make([]uint64, numTiles)
	tileByteCounts := make([]uint64, numTiles)
	for i := 0; i < numTiles; i++ {
		start := i * perTile
		end := start + perTile
		if end > totalStrips {
			end = totalStrips
		}
		tileOffsets[i] = root.StripOffsets[start]
		var n uint64
		for s := start; s < end; s++ {
			n += root.StripByteCounts[s]
		}
		tileByteCounts[i] = n
	}

	ss := &stripSet{
		offsets:      root.StripOffsets,
		byteCounts:   root.StripByteCounts,
		rowsPerStrip: rowsPerStrip,
		perTile:      perTile,
	}

	root.TileWidth = root.Width
	root.TileHeight = rowsPerStrip * uint32(perTile)
	root.TileOffsets = tileOffsets
	root.TileByteCounts = tileByteCounts

	return ss
}

// Close releases the memory mapping. Safe to call more than once.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := munmapFile(r.data)
	r.data = nil
	return err
}

func (r *Reader) Path() string { return r.path }

// ID is the small integer cache key OpenAll assigned this reader, cheaper
// to hash than its path in the hot per-pixel tile cache lookup.
func (r *Reader) ID() int { return r.id }

func (r *Reader) GeoInfo() GeoInfo { return r.geo }

func (r *Reader) Width() int  { return int(r.ifds[0].Width) }
func (r *Reader) Height() int { return int(r.ifds[0].Height) }

// PixelSize is the ground sample distance of the full-resolution level, in
// source-CRS units.
func (r *Reader) PixelSize() float64 { return r.geo.PixelSizeX }

func (r *Reader) NumOverviews() int { return len(r.ifds) - 1 }
func (r *Reader) IFDCount() int     { return len(r.ifds) }

// BoundsInCRS returns the full-resolution image's bounding box in its own
// source CRS (not WGS84 — see MergedBoundsWGS84 for that).
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	root := &r.ifds[0]
	minX = r.geo.OriginX
	maxY = r.geo.OriginY
	maxX = minX + float64(root.Width)*r.geo.PixelSizeX
	minY = maxY - float64(root.Height)*r.geo.PixelSizeY
	return
}

func (r *Reader) EPSG() int { return r.geo.EPSG }

// OpenAll opens every path in paths, assigning each a stable cache ID.
// Every path is statted up front so a single typo or missing file is
// reported together with any others, rather than aborting mid-batch after
// some files have already been mapped.
func OpenAll(paths []string) ([]*Reader, error) {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("raster: %d of %d input file(s) cannot be accessed:\n", len(missing), len(paths))
		for _, p := range missing {
			msg += fmt.Sprintf("  - %s\n", p)
		}
		msg += "aborting before opening any, to avoid holes in the output"
		return nil, fmt.Errorf("%s", msg)
	}

	readers := make([]*Reader, 0, len(paths))
	for i, p := range paths {
		r, err := Open(p)
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return nil, fmt.Errorf("raster: opening %s: %w", p, err)
		}
		r.id = i
		readers = append(readers, r)
	}
	return readers, nil
}
