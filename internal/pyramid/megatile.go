package pyramid

import "github.com/tilekiln/mbtiler/internal/tilecoord"

// SliceMegatile extracts tile t's sector out of a megatile buffer covering
// t.Ancestor(warpZoom), per spec.md §4.5 max-zoom regime step 7. The
// returned buffer is a fresh copy (the megatile itself is ephemeral within
// the batch, per spec.md §3). nonEmpty is false iff every alpha byte in
// the sector is zero.
func SliceMegatile(mega Buffer, warpZoom, tileSize int, t tilecoord.Tile) (Buffer, bool) {
	sx, sy := t.SectorInAncestor(warpZoom)
	bands := mega.BandCount
	rowBytes := tileSize * bands
	out := make([]byte, tileSize*rowBytes)

	for row := 0; row < tileSize; row++ {
		srcY := sy*tileSize + row
		srcOff := (srcY*mega.Side+sx*tileSize)*bands
		dstOff := row * rowBytes
		copy(out[dstOff:dstOff+rowBytes], mega.Pix[srcOff:srcOff+rowBytes])
	}

	nonEmpty := false
	alphaOff := bands - 1
	for i := alphaOff; i < len(out); i += bands {
		if out[i] != 0 {
			nonEmpty = true
			break
		}
	}

	return Buffer{Pix: out, Side: tileSize, BandCount: bands}, nonEmpty
}
