package encode

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/tilekiln/mbtiler/internal/pyramid"
)

// PNGCodec implements the PNG archive schema: the whole buffer, including
// alpha, is PNG-encoded as a single blob with no separate alpha column
// (spec.md §4.7).
type PNGCodec struct{}

func (c *PNGCodec) HasAlphaColumn() bool { return false }

func (c *PNGCodec) Encode(buf pyramid.Buffer) (main, alpha []byte, err error) {
	img := bufferToImage(buf)
	var out bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&out, img); err != nil {
		return nil, nil, fmt.Errorf("encode: png encode: %w", err)
	}
	return out.Bytes(), nil, nil
}

func (c *PNGCodec) Decode(main, alpha []byte, bandCount, side int) (pyramid.Buffer, error) {
	img, err := png.Decode(bytes.NewReader(main))
	if err != nil {
		return pyramid.Buffer{}, fmt.Errorf("encode: png decode: %w", err)
	}
	return imageToBuffer(img, bandCount), nil
}
