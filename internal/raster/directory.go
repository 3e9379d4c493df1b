package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tag IDs this reader understands. Anything else is skipped silently
// while walking a directory, per the TIFF baseline rule that unknown tags
// are ignorable.
const (
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagPhotometric        = 262
	tagStripOffsets       = 273
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripByteCounts    = 279
	tagPlanarConfig       = 284
	tagPredictor          = 317
	tagTileWidth          = 322
	tagTileLength         = 323
	tagTileOffsets        = 324
	tagTileByteCounts     = 325
	tagSampleFormat       = 339
	tagJPEGTables         = 347
	tagModelPixelScaleTag = 33550
	tagModelTiepointTag   = 33922
	tagGeoKeyDirectoryTag = 34735
	tagGeoDoubleParamsTag = 34736
	tagGeoAsciiParamsTag  = 34737
	tagGDALNoData         = 42113
)

// TIFF field data types (TIFF 6.0 §2, plus the BigTIFF 64-bit additions).
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18

	// Compression field values this package can decode.
	compNone         = 1
	compLZW          = 5
	compJPEG         = 7
	compDeflate      = 8
	compAdobeDeflate = 32946

	predictorHorizontal = 2
)

// directory is one parsed TIFF Image File Directory: either the
// full-resolution level or one overview. Tile geometry, compression, and
// the handful of GeoTIFF/GDAL tags the warp pipeline needs all collapse
// into this one struct regardless of which IFD they came from.
type directory struct {
	Width, Height     uint32
	TileWidth         uint32
	TileHeight        uint32
	BitsPerSample     []uint16
	SampleFormat      []uint16 // 1=uint, 2=int, 3=IEEE float
	SamplesPerPixel   uint16
	Compression       uint16
	Photometric       uint16
	PlanarConfig      uint16
	Predictor         uint16
	TileOffsets       []uint64
	TileByteCounts    []uint64
	StripOffsets      []uint64
	StripByteCounts   []uint64
	RowsPerStrip      uint32
	JPEGTables        []byte
	NoData            string // GDAL_NODATA ASCII tag, e.g. "-9999"
	ModelTiepoint     []float64
	ModelPixelScale   []float64
	GeoKeys           []uint16
	GeoDoubleParams   []float64
	GeoAsciiParams    string
}

// TilesAcross is the number of tile columns covering the full image width.
func (d *directory) TilesAcross() int {
	return int((d.Width + d.TileWidth - 1) / d.TileWidth)
}

// TilesDown is the number of tile rows covering the full image height.
func (d *directory) TilesDown() int {
	return int((d.Height + d.TileHeight - 1) / d.TileHeight)
}

// rawEntry is one still-unresolved TIFF directory entry: the 12 (classic)
// or 20 (BigTIFF) byte on-disk record, with its value either inline or
// (after resolveEntry) fetched from its external offset.
type rawEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte
}

// parseIFDs walks the linked list of IFDs starting at the file header's
// first-IFD offset, resolving every entry's value along the way.
func parseIFDs(r io.ReadSeeker) ([]directory, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("unrecognized byte-order marker %x", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	bigTIFF := magic == 43
	if magic != 42 && !bigTIFF {
		return nil, nil, fmt.Errorf("unrecognized magic number %d", magic)
	}

	var offset uint64
	if bigTIFF {
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		offset = bo.Uint64(ext[:])
	} else {
		offset = uint64(bo.Uint32(header[4:8]))
	}

	var dirs []directory
	for offset != 0 {
		d, next, err := parseOneDirectory(r, bo, offset, bigTIFF)
		if err != nil {
			return nil, nil, fmt.Errorf("directory at offset %d: %w", offset, err)
		}
		dirs = append(dirs, d)
		offset = next
	}
	return dirs, bo, nil
}

func parseOneDirectory(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) (directory, uint64, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return directory{}, 0, err
	}

	var count uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return directory{}, 0, err
		}
		count = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return directory{}, 0, err
		}
		count = uint64(bo.Uint16(buf[:]))
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]rawEntry, count)
	buf := make([]byte, entrySize)
	for i := range entries {
		if _, err := io.ReadFull(r, buf); err != nil {
			return directory{}, 0, err
		}
		entries[i] = decodeRawEntry(buf, bo, bigTIFF)
	}

	var next uint64
	if bigTIFF {
		var nb [8]byte
		if _, err := io.ReadFull(r, nb[:]); err != nil {
			return directory{}, 0, err
		}
		next = bo.Uint64(nb[:])
	} else {
		var nb [4]byte
		if _, err := io.ReadFull(r, nb[:]); err != nil {
			return directory{}, 0, err
		}
		next = uint64(bo.Uint32(nb[:]))
	}

	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF); err != nil {
			return directory{}, 0, fmt.Errorf("entry tag %d: %w", entries[i].Tag, err)
		}
	}

	return buildDirectory(entries, bo), next, nil
}

func decodeRawEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) rawEntry {
	tag := bo.Uint16(buf[0:2])
	dt := bo.Uint16(buf[2:4])

	var count uint64
	var value []byte
	if bigTIFF {
		count = bo.Uint64(buf[4:12])
		value = append([]byte(nil), buf[12:20]...)
	} else {
		count = uint64(bo.Uint32(buf[4:8]))
		value = append([]byte(nil), buf[8:12]...)
	}
	return rawEntry{Tag: tag, DataType: dt, Count: count, Value: value}
}

func tiffTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

// resolveEntry fetches an entry's value from its external offset when it
// doesn't fit in the 4 (classic) or 8 (BigTIFF) inline value bytes.
func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *rawEntry, bigTIFF bool) error {
	total := int(e.Count) * tiffTypeSize(e.DataType)

	inline := 4
	if bigTIFF {
		inline = 8
	}
	if total <= inline {
		return nil
	}

	var off uint64
	if bigTIFF {
		off = bo.Uint64(e.Value)
	} else {
		off = uint64(bo.Uint32(e.Value))
	}

	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func buildDirectory(entries []rawEntry, bo binary.ByteOrder) directory {
	d := directory{SamplesPerPixel: 1, PlanarConfig: 1}

	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			d.Width = entryUint32(e, bo)
		case tagImageLength:
			d.Height = entryUint32(e, bo)
		case tagTileWidth:
			d.TileWidth = entryUint32(e, bo)
		case tagTileLength:
			d.TileHeight = entryUint32(e, bo)
		case tagBitsPerSample:
			d.BitsPerSample = entryUint16Slice(e, bo)
		case tagSampleFormat:
			d.SampleFormat = entryUint16Slice(e, bo)
		case tagSamplesPerPixel:
			d.SamplesPerPixel = entryUint16(e, bo)
		case tagCompression:
			d.Compression = entryUint16(e, bo)
		case tagPhotometric:
			d.Photometric = entryUint16(e, bo)
		case tagPlanarConfig:
			d.PlanarConfig = entryUint16(e, bo)
		case tagPredictor:
			d.Predictor = entryUint16(e, bo)
		case tagTileOffsets:
			d.TileOffsets = entryUint64Slice(e, bo)
		case tagTileByteCounts:
			d.TileByteCounts = entryUint64Slice(e, bo)
		case tagStripOffsets:
			d.StripOffsets = entryUint64Slice(e, bo)
		case tagStripByteCounts:
			d.StripByteCounts = entryUint64Slice(e, bo)
		case tagRowsPerStrip:
			d.RowsPerStrip = entryUint32(e, bo)
		case tagJPEGTables:
			d.JPEGTables = append([]byte(nil), e.Value...)
		case tagGDALNoData:
			d.NoData = string(e.Value[:e.Count])
		case tagModelTiepointTag:
			d.ModelTiepoint = entryFloat64Slice(e, bo)
		case tagModelPixelScaleTag:
			d.ModelPixelScale = entryFloat64Slice(e, bo)
		case tagGeoKeyDirectoryTag:
			d.GeoKeys = entryUint16Slice(e, bo)
		case tagGeoDoubleParamsTag:
			d.GeoDoubleParams = entryFloat64Slice(e, bo)
		case tagGeoAsciiParamsTag:
			d.GeoAsciiParams = string(e.Value[:e.Count])
		}
	}

	return d
}

func entryUint16(e rawEntry, bo binary.ByteOrder) uint16 {
	switch e.DataType {
	case dtShort:
		return bo.Uint16(e.Value)
	case dtLong:
		return uint16(bo.Uint32(e.Value))
	default:
		return uint16(e.Value[0])
	}
}

func entryUint32(e rawEntry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong:
		return bo.Uint32(e.Value)
	case dtLong8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func entryUint16Slice(e rawEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.Count)
	out := make([]uint16, n)
	for i := range out {
		out[i] = bo.Uint16(e.Value[i*2 : i*2+2])
	}
	return out
}

func entryUint64Slice(e rawEntry, bo binary.ByteOrder) []uint64 {
	n := int(e.Count)
	out := make([]uint64, n)
	switch e.DataType {
	case dtLong:
		for i := range out {
			out[i] = uint64(bo.Uint32(e.Value[i*4 : i*4+4]))
		}
	case dtLong8:
		for i := range out {
			out[i] = bo.Uint64(e.Value[i*8 : i*8+8])
		}
	case dtShort:
		for i := range out {
			out[i] = uint64(bo.Uint16(e.Value[i*2 : i*2+2]))
		}
	}
	return out
}

func entryFloat64Slice(e rawEntry, bo binary.ByteOrder) []float64 {
	n := int(e.Count)
	out := make([]float64, n)
	size := tiffTypeSize(e.DataType)
	for i := range out {
		off := i * size
		switch e.DataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.Value[off : off+8]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.Value[off : off+4])))
		}
	}
	return out
}
