// Package encode implements the two archive tile schemas of spec.md §4.7:
// JPEG (opaque channels JPEG-encoded, alpha separately zstd-compressed and
// stored only when not fully opaque) and PNG (whole buffer, no alpha
// column). Both satisfy pyramid.Encoder for the forward path and also
// decode stored blobs back to a pyramid.Buffer for resume mode.
package encode

import (
	"image"
	"image/color"

	"github.com/tilekiln/mbtiler/internal/pyramid"
)

// Codec is implemented by both tile schemas.
type Codec interface {
	pyramid.Encoder
	// Decode reverses Encode. side is the tile's pixel side length, needed
	// to size the alpha plane when alpha is the zstd-compressed form;
	// implementations that don't use it (PNG) ignore it.
	Decode(main, alpha []byte, bandCount, side int) (pyramid.Buffer, error)
}

// NewCodec builds the Codec for the named archive format ("jpeg"/"jpg" or
// "png"), per spec.md §6's FORMAT option.
func NewCodec(format string, quality int) Codec {
	switch format {
	case "png":
		return &PNGCodec{}
	default:
		return &JPEGCodec{Quality: quality}
	}
}

// bufferToImage expands a gray+alpha (2-band) or RGBA (4-band) Buffer into
// a straight-alpha *image.NRGBA, for the PNG schema's whole-buffer encode.
func bufferToImage(buf pyramid.Buffer) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Side, buf.Side))
	n := buf.Side * buf.Side
	switch buf.BandCount {
	case 2:
		for i := 0; i < n; i++ {
			g, a := buf.Pix[i*2], buf.Pix[i*2+1]
			o := i * 4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = g, g, g, a
		}
	default:
		copy(img.Pix, buf.Pix)
	}
	return img
}

// imageToBuffer collapses a decoded image (with its own alpha channel,
// e.g. from PNG) back into the pyramid's native buffer layout.
func imageToBuffer(img image.Image, bandCount int) pyramid.Buffer {
	b := img.Bounds()
	side := b.Dx()
	n := side * side
	pix := make([]byte, n*bandCount)
	for i := 0; i < n; i++ {
		x, y := i%side, i/side
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		switch bandCount {
		case 2:
			pix[i*2] = c.R
			pix[i*2+1] = c.A
		default:
			o := i * 4
			pix[o], pix[o+1], pix[o+2], pix[o+3] = c.R, c.G, c.B, c.A
		}
	}
	return pyramid.Buffer{Pix: pix, Side: side, BandCount: bandCount}
}

// bufferToOpaqueAndAlpha splits a Buffer into an opaque image (alpha forced
// to 255, since JPEG carries no alpha channel) and a separate alpha plane,
// for the JPEG schema's split encode.
func bufferToOpaqueAndAlpha(buf pyramid.Buffer) (image.Image, []byte) {
	n := buf.Side * buf.Side
	alpha := make([]byte, n)
	switch buf.BandCount {
	case 2:
		img := image.NewGray(image.Rect(0, 0, buf.Side, buf.Side))
		for i := 0; i < n; i++ {
			img.Pix[i] = buf.Pix[i*2]
			alpha[i] = buf.Pix[i*2+1]
		}
		return img, alpha
	default:
		img := image.NewRGBA(image.Rect(0, 0, buf.Side, buf.Side))
		for i := 0; i < n; i++ {
			o := i * 4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2], 255
			alpha[i] = buf.Pix[o+3]
		}
		return img, alpha
	}
}

// opaqueAndAlphaToBuffer recombines a decoded opaque image with a
// reconstructed alpha plane.
func opaqueAndAlphaToBuffer(img image.Image, alpha []byte, bandCount int) pyramid.Buffer {
	b := img.Bounds()
	side := b.Dx()
	n := side * side
	pix := make([]byte, n*bandCount)
	for i := 0; i < n; i++ {
		x, y := i%side, i/side
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		switch bandCount {
		case 2:
			pix[i*2] = uint8(r >> 8)
			pix[i*2+1] = alpha[i]
		default:
			o := i * 4
			pix[o], pix[o+1], pix[o+2], pix[o+3] = uint8(r>>8), uint8(g>>8), uint8(bl>>8), alpha[i]
		}
	}
	return pyramid.Buffer{Pix: pix, Side: side, BandCount: bandCount}
}

func isFullyOpaque(alpha []byte) bool {
	for _, a := range alpha {
		if a != 255 {
			return false
		}
	}
	return true
}
