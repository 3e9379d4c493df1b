package pyramid

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Compose implements spec.md §4.5's downsample regime: copy each present
// child into its quadrant of a 2·tileSize square (child index i → offset
// (i&1, i>>1)·tileSize, missing quadrants left zero), then Lanczos-resize
// down to tileSize. children[i] is nil for a child that was missing from
// the decoded cache (declared empty).
func Compose(children [4]*Buffer, tileSize, bandCount int) Buffer {
	big := image.NewNRGBA(image.Rect(0, 0, 2*tileSize, 2*tileSize))

	for i, c := range children {
		if c == nil {
			continue
		}
		offX := (i & 1) * tileSize
		offY := (i >> 1) * tileSize
		dstRect := image.Rect(offX, offY, offX+tileSize, offY+tileSize)
		draw.Draw(big, dstRect, toNRGBA(*c), image.Point{}, draw.Src)
	}

	resized := imaging.Resize(big, tileSize, tileSize, imaging.Lanczos)
	return fromNRGBA(resized, bandCount)
}

// toNRGBA expands a gray+alpha (2-band) or RGBA (4-band) Buffer into an
// *image.NRGBA so it can be composed/resized with the imaging library,
// which operates on straight (non-premultiplied) alpha.
func toNRGBA(buf Buffer) *image.NRGBA {
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

// fromNRGBA collapses a resized *image.NRGBA back into the pyramid's
// native gray+alpha or RGBA buffer layout.
func fromNRGBA(img *image.NRGBA, bandCount int) Buffer {
	side := img.Bounds().Dx()
	n := side * side
	pix := make([]byte, n*bandCount)
	switch bandCount {
	case 2:
		for i := 0; i < n; i++ {
			o := i * 4
			pix[i*2] = img.Pix[o]
			pix[i*2+1] = img.Pix[o+3]
		}
	default:
		copy(pix, img.Pix)
	}
	return Buffer{Pix: pix, Side: side, BandCount: bandCount}
}
