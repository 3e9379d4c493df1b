package raster

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"strconv"
	"strings"
)

// readTileRaw locates a tile's bytes in the mapping, decompresses them, and
// reverses horizontal differencing, but stops short of interpreting the
// samples as pixels — callers that want float32 elevation data and callers
// that want RGBA diverge from here.
func (r *Reader) readTileRaw(level, col, row int) ([]byte, *directory, error) {
	if level < 0 || level >= len(r.ifds) {
		return nil, nil, fmt.Errorf("raster: level %d out of range (have %d)", level, len(r.ifds))
	}

	d := &r.ifds[level]
	across, down := d.TilesAcross(), d.TilesDown()
	if col < 0 || col >= across || row < 0 || row >= down {
		return nil, nil, fmt.Errorf("raster: tile (%d,%d) out of range (%dx%d)", col, row, across, down)
	}

	if r.strips != nil && level == 0 {
		return r.readStripTileRaw(d, row)
	}

	idx := row*across + col
	if idx >= len(d.TileOffsets) || idx >= len(d.TileByteCounts) {
		return nil, nil, fmt.Errorf("raster: tile index %d out of range", idx)
	}

	offset, size := d.TileOffsets[idx], d.TileByteCounts[idx]
	if size == 0 {
		return nil, d, nil
	}
	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, nil, fmt.Errorf("raster: tile bytes [%d:%d] exceed file size %d", offset, end, len(r.data))
	}
	raw := r.data[offset:end]

	if d.Compression == compJPEG {
		return raw, d, nil // caller decodes JPEG directly; no predictor on DCT data
	}

	decompressed, err := decompressByScheme(d.Compression, raw)
	if err != nil {
		return nil, nil, err
	}
	if d.Predictor == predictorHorizontal {
		undoHorizontalDifferencing(decompressed, int(d.TileWidth), int(d.SamplesPerPixel))
	}
	return decompressed, d, nil
}

// readStripTileRaw reassembles the strips that make up one virtual tile row
// (see promoteStrips) into a single decompressed buffer.
func (r *Reader) readStripTileRaw(d *directory, tileRow int) ([]byte, *directory, error) {
	ss := r.strips
	start := tileRow * ss.perTile
	end := start + ss.perTile
	if end > len(ss.offsets) {
		end = len(ss.offsets)
	}

	var combined []byte
	for s := start; s < end; s++ {
		offset, size := ss.offsets[s], ss.byteCounts[s]
		if size == 0 {
			continue
		}
		stripEnd := offset + size
		if stripEnd > uint64(len(r.data)) {
			return nil, nil, fmt.Errorf("raster: strip %d bytes [%d:%d] exceed file size %d", s, offset, stripEnd, len(r.data))
		}
		chunk := r.data[offset:stripEnd]

		if d.Compression == compJPEG {
			combined = append(combined, chunk...)
			continue
		}
		dec, err := decompressByScheme(d.Compression, chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("raster: strip %d: %w", s, err)
		}
		combined = append(combined, dec...)
	}

	if len(combined) == 0 {
		return nil, d, nil
	}
	if d.Predictor == predictorHorizontal {
		undoHorizontalDifferencing(combined, int(d.Width), int(d.SamplesPerPixel))
	}
	return combined, d, nil
}

func decompressByScheme(compression uint16, data []byte) ([]byte, error) {
	switch compression {
	case compNone:
		return data, nil
	case compDeflate, compAdobeDeflate:
		dec, err := decompressDeflate(data)
		if err != nil {
			return nil, fmt.Errorf("raster: deflate: %w", err)
		}
		return dec, nil
	case compLZW:
		dec, err := decompressTIFFLZW(data)
		if err != nil {
			return nil, fmt.Errorf("raster: lzw: %w", err)
		}
		return dec, nil
	default:
		return nil, fmt.Errorf("raster: unsupported compression %d", compression)
	}
}

// decompressDeflate handles both the zlib-wrapped stream TIFF compression 8
// actually writes and the bare deflate stream a few encoders emit instead.
func decompressDeflate(data []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return io.ReadAll(fr)
}

// undoHorizontalDifferencing reverses predictor=2: each sample was stored
// as the delta from the previous sample in its row, so recovering the
// original values is a running sum across each row.
func undoHorizontalDifferencing(data []byte, width, samplesPerPixel int) {
	rowBytes := width * samplesPerPixel
	for off := 0; off+rowBytes <= len(data); off += rowBytes {
		row := data[off : off+rowBytes]
		for x := samplesPerPixel; x < rowBytes; x++ {
			row[x] += row[x-samplesPerPixel]
		}
	}
}

// ReadFloatTile reads one float32 elevation tile, taking only the first
// band when the source carries more than one sample per pixel. A nil
// result with no error means the tile is sparse (never written).
func (r *Reader) ReadFloatTile(level, col, row int) ([]float32, int, int, error) {
	data, d, err := r.readTileRaw(level, col, row)
	if err != nil {
		return nil, 0, 0, err
	}
	w, h := int(d.TileWidth), int(d.TileHeight)
	if data == nil {
		return nil, w, h, nil
	}
	return r.decodeRawFloat32Tile(d, data)
}

func (r *Reader) decodeRawFloat32Tile(d *directory, data []byte) ([]float32, int, int, error) {
	w, h := int(d.TileWidth), int(d.TileHeight)
	spp := int(d.SamplesPerPixel)
	pixelCount := w * h

	bps := 32
	if len(d.BitsPerSample) > 0 {
		bps = int(d.BitsPerSample[0])
	}
	bytesPerSample := bps / 8
	want := pixelCount * spp * bytesPerSample
	if len(data) < want {
		return nil, 0, 0, fmt.Errorf("raster: float tile has %d bytes, want %d", len(data), want)
	}

	out := make([]float32, pixelCount)
	for i := 0; i < pixelCount; i++ {
		off := i * spp * bytesPerSample
		switch bps {
		case 32:
			out[i] = math.Float32frombits(r.bo.Uint32(data[off : off+4]))
		case 64:
			out[i] = float32(math.Float64frombits(r.bo.Uint64(data[off : off+8])))
		default:
			return nil, 0, 0, fmt.Errorf("raster: unsupported float sample width %d bits", bps)
		}
	}
	return out, w, h, nil
}

// ReadTile decodes one tile at (col, row) of the given IFD level (0 is
// full resolution, higher levels are overviews) into an RGBA image. Safe
// for concurrent use: the mapping is read-only and each call touches only
// its own slice of it.
func (r *Reader) ReadTile(level, col, row int) (image.Image, error) {
	if level < 0 || level >= len(r.ifds) {
		return nil, fmt.Errorf("raster: level %d out of range (have %d)", level, len(r.ifds))
	}
	d := &r.ifds[level]
	across, down := d.TilesAcross(), d.TilesDown()
	if col < 0 || col >= across || row < 0 || row >= down {
		return nil, fmt.Errorf("raster: tile (%d,%d) out of range (%dx%d)", col, row, across, down)
	}

	if r.strips != nil && level == 0 {
		data, _, err := r.readStripTileRaw(d, row)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return image.NewRGBA(image.Rect(0, 0, int(d.TileWidth), int(d.TileHeight))), nil
		}
		return r.decodeRawTile(d, data)
	}

	idx := row*across + col
	if idx >= len(d.TileOffsets) || idx >= len(d.TileByteCounts) {
		return nil, fmt.Errorf("raster: tile index %d out of range", idx)
	}
	offset, size := d.TileOffsets[idx], d.TileByteCounts[idx]
	if size == 0 {
		return image.NewRGBA(image.Rect(0, 0, int(d.TileWidth), int(d.TileHeight))), nil
	}
	end := offset + size
	if end > uint64(len(r.data)) {
		return nil, fmt.Errorf("raster: tile bytes [%d:%d] exceed file size %d", offset, end, len(r.data))
	}
	raw := r.data[offset:end]

	if d.Compression == compJPEG {
		return r.decodeJPEGTile(d, raw)
	}

	decompressed, err := decompressByScheme(d.Compression, raw)
	if err != nil {
		return nil, err
	}
	if d.Compression == compNone {
		// decompressByScheme returns uncompressed data as the mapped
		// slice itself; copy before mutating it in place.
		buf := make([]byte, len(decompressed))
		copy(buf, decompressed)
		decompressed = buf
	}
	if d.Predictor == predictorHorizontal {
		undoHorizontalDifferencing(decompressed, int(d.TileWidth), int(d.SamplesPerPixel))
	}
	return r.decodeRawTile(d, decompressed)
}

// decodeJPEGTile decodes a JPEG-compressed tile, prepending the shared
// JPEG tables (quantization/Huffman) the directory carries once for every
// tile rather than duplicating them per tile.
func (r *Reader) decodeJPEGTile(d *directory, data []byte) (image.Image, error) {
	jpegData := data
	if len(d.JPEGTables) > 0 {
		tables := d.JPEGTables
		if len(tables) >= 2 && tables[len(tables)-2] == 0xFF && tables[len(tables)-1] == 0xD9 {
			tables = tables[:len(tables)-2] // drop the tables' own EOI marker
		}
		tileData := data
		if len(tileData) >= 2 && tileData[0] == 0xFF && tileData[1] == 0xD8 {
			tileData = tileData[2:] // drop the tile's own SOI marker
		}
		jpegData = make([]byte, len(tables)+len(tileData))
		copy(jpegData, tables)
		copy(jpegData[len(tables):], tileData)
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("raster: decoding JPEG tile: %w", err)
	}
	return img, nil
}

// decodeRawTile interprets already-decompressed, predictor-reversed bytes
// as pixels. A single- or two-band source is treated as grayscale(+alpha);
// a pixel whose first band matches the source's GDAL nodata value is
// zeroed across every band rather than left to fall through as an opaque
// black pixel.
func (r *Reader) decodeRawTile(d *directory, data []byte) (image.Image, error) {
	w, h := int(d.TileWidth), int(d.TileHeight)
	spp := int(d.SamplesPerPixel)

	var nodataVal uint8
	var hasNodata bool
	if spp <= 2 {
		if nd := r.ifds[0].NoData; nd != "" {
			if v, err := strconv.ParseFloat(strings.TrimSpace(nd), 64); err == nil && v >= 0 && v <= 255 && v == math.Floor(v) {
				nodataVal, hasNodata = uint8(v), true
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := (y*w + x) * spp
			if idx+spp > len(data) {
				break
			}
			var c color.RGBA
			switch spp {
			case 1:
				v := data[idx]
				c.R, c.G, c.B = v, v, v
				if hasNodata && v == nodataVal {
					c = color.RGBA{}
				} else {
					c.A = 255
				}
			case 2:
				v, a := data[idx], data[idx+1]
				c.R, c.G, c.B = v, v, v
				if hasNodata && v == nodataVal {
					c = color.RGBA{}
				} else {
					c.A = a
				}
			default:
				c.R = data[idx]
				if spp > 1 {
					c.G = data[idx+1]
				}
				if spp > 2 {
					c.B = data[idx+2]
				}
				if spp > 3 {
					c.A = data[idx+3]
				} else {
					c.A = 255
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}
