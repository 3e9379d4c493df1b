package encode

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/klauspost/compress/zstd"
	"github.com/tilekiln/mbtiler/internal/pyramid"
)

// JPEGCodec implements the JPEG archive schema (spec.md §4.7/§9): opaque
// channels JPEG-encoded at Quality, alpha separately zstd-entropy-coded and
// stored only when the tile is not fully opaque.
type JPEGCodec struct {
	Quality int // 1-100, default 85
}

func (c *JPEGCodec) HasAlphaColumn() bool { return true }

func (c *JPEGCodec) Encode(buf pyramid.Buffer) (main, alpha []byte, err error) {
	quality := c.Quality
	if quality <= 0 {
		quality = 85
	}

	img, alphaBytes := bufferToOpaqueAndAlpha(buf)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, nil, fmt.Errorf("encode: jpeg encode: %w", err)
	}

	if isFullyOpaque(alphaBytes) {
		return out.Bytes(), []byte{}, nil
	}

	alphaEnc, err := encodeZstd(alphaBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode: alpha zstd: %w", err)
	}
	return out.Bytes(), alphaEnc, nil
}

// Decode reverses Encode for resume mode: a zero-length alpha blob means
// the tile was fully opaque (spec.md §9), so alpha is reconstructed as all
// 255 without touching zstd.
func (c *JPEGCodec) Decode(main, alpha []byte, bandCount, side int) (pyramid.Buffer, error) {
	img, err := jpeg.Decode(bytes.NewReader(main))
	if err != nil {
		return pyramid.Buffer{}, fmt.Errorf("encode: jpeg decode: %w", err)
	}

	n := side * side
	var alphaBytes []byte
	if len(alpha) == 0 {
		alphaBytes = make([]byte, n)
		for i := range alphaBytes {
			alphaBytes[i] = 255
		}
	} else {
		alphaBytes, err = decodeZstd(alpha, n)
		if err != nil {
			return pyramid.Buffer{}, fmt.Errorf("encode: alpha zstd: %w", err)
		}
	}

	return opaqueAndAlphaToBuffer(img, alphaBytes, bandCount), nil
}

func encodeZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decodeZstd(data []byte, expectedLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, make([]byte, 0, expectedLen))
}
