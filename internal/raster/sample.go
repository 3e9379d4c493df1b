package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// ReadPixelRGBA reads one full-resolution pixel, in absolute pixel
// coordinates of level 0.
func (r *Reader) ReadPixelRGBA(px, py int) (uint8, uint8, uint8, uint8, error) {
	return r.readPixelFromLevel(0, px, py)
}

// ReadRegion reads a rectangular window of the given IFD level into a
// single RGBA image, stitching together however many tiles the window
// spans.
func (r *Reader) ReadRegion(level, startX, startY, width, height int) (*image.RGBA, error) {
	if level < 0 || level >= len(r.ifds) {
		return nil, fmt.Errorf("raster: level %d out of range", level)
	}
	d := &r.ifds[level]
	tw, th := int(d.TileWidth), int(d.TileHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	colStart, colEnd := startX/tw, (startX+width-1)/tw
	rowStart, rowEnd := startY/th, (startY+height-1)/th

	for row := rowStart; row <= rowEnd; row++ {
		for col := colStart; col <= colEnd; col++ {
			tile, err := r.ReadTile(level, col, row)
			if err != nil {
				return nil, err
			}

			tileMinX, tileMinY := col*tw, row*th
			srcMinX := max(startX, tileMinX) - tileMinX
			srcMinY := max(startY, tileMinY) - tileMinY
			srcMaxX := min(startX+width, tileMinX+tw) - tileMinX
			srcMaxY := min(startY+height, tileMinY+th) - tileMinY
			dstMinX := max(startX, tileMinX) - startX
			dstMinY := max(startY, tileMinY) - startY

			for y := srcMinY; y < srcMaxY; y++ {
				for x := srcMinX; x < srcMaxX; x++ {
					rr, g, b, a := tile.At(x, y).RGBA()
					dst.SetRGBA(dstMinX+(x-srcMinX), dstMinY+(y-srcMinY), color.RGBA{
						R: uint8(rr >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8),
					})
				}
			}
		}
	}
	return dst, nil
}

// SampleBilinear samples the given level at fractional pixel coordinates,
// blending the four surrounding pixels (at most four tile reads, often
// fewer once they share a tile).
func (r *Reader) SampleBilinear(level int, fx, fy float64) (uint8, uint8, uint8, uint8, error) {
	if level < 0 || level >= len(r.ifds) {
		return 0, 0, 0, 0, fmt.Errorf("raster: level %d out of range", level)
	}
	d := &r.ifds[level]
	w, h := int(d.Width), int(d.Height)

	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	x1, y1 := x0+1, y0+1
	x0, x1 = clampInt(x0, 0, w-1), clampInt(x1, 0, w-1)
	y0, y1 = clampInt(y0, 0, h-1), clampInt(y1, 0, h-1)
	dx, dy := fx-math.Floor(fx), fy-math.Floor(fy)

	r00, g00, b00, a00, err := r.readPixelFromLevel(level, x0, y0)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	r10, g10, b10, a10, err := r.readPixelFromLevel(level, x1, y0)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	r01, g01, b01, a01, err := r.readPixelFromLevel(level, x0, y1)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	r11, g11, b11, a11, err := r.readPixelFromLevel(level, x1, y1)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	lerp := func(a, b, t float64) float64 { return a*(1-t) + b*t }
	bilerp := func(v00, v10, v01, v11 uint8) uint8 {
		top := lerp(float64(v00), float64(v10), dx)
		bot := lerp(float64(v01), float64(v11), dx)
		return uint8(clampFloat(lerp(top, bot, dy), 0, 255))
	}
	return bilerp(r00, r10, r01, r11), bilerp(g00, g10, g01, g11),
		bilerp(b00, b10, b01, b11), bilerp(a00, a10, a01, a11), nil
}

func (r *Reader) readPixelFromLevel(level, px, py int) (uint8, uint8, uint8, uint8, error) {
	d := &r.ifds[level]
	tw, th := int(d.TileWidth), int(d.TileHeight)
	col, row := px/tw, py/th
	localX, localY := px%tw, py%th

	img, err := r.ReadTile(level, col, row)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	rr, g, b, a := img.At(localX, localY).RGBA()
	return uint8(rr >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
