package pyramid

import "testing"

func solidBuffer(side, bandCount int, v byte) Buffer {
	pix := make([]byte, side*side*bandCount)
	for i := range pix {
		if bandCount == 2 && i%2 == 1 {
			pix[i] = 255 // alpha
		} else if bandCount == 4 && i%4 == 3 {
			pix[i] = 255
		} else {
			pix[i] = v
		}
	}
	return Buffer{Pix: pix, Side: side, BandCount: bandCount}
}

func TestComposeProducesTileSizeOutput(t *testing.T) {
	const tileSize = 8
	c0 := solidBuffer(tileSize, 4, 10)
	c1 := solidBuffer(tileSize, 4, 20)
	c2 := solidBuffer(tileSize, 4, 30)
	c3 := solidBuffer(tileSize, 4, 40)

	out := Compose([4]*Buffer{&c0, &c1, &c2, &c3}, tileSize, 4)
	if out.Side != tileSize {
		t.Fatalf("Side = %d, want %d", out.Side, tileSize)
	}
	if out.BandCount != 4 {
		t.Fatalf("BandCount = %d, want 4", out.BandCount)
	}
	if len(out.Pix) != tileSize*tileSize*4 {
		t.Fatalf("len(Pix) = %d, want %d", len(out.Pix), tileSize*tileSize*4)
	}
}

func TestComposeHandlesMissingQuadrants(t *testing.T) {
	const tileSize = 8
	c0 := solidBuffer(tileSize, 4, 200)

	out := Compose([4]*Buffer{&c0, nil, nil, nil}, tileSize, 4)
	if out.Side != tileSize || out.BandCount != 4 {
		t.Fatalf("out = %+v", out)
	}

	// The top-left pixel is sourced from the one present quadrant, so it
	// must not come out fully transparent.
	firstAlpha := out.Pix[3]
	if firstAlpha == 0 {
		t.Fatal("top-left pixel (sourced from the present quadrant) should not be fully transparent")
	}
}

func TestComposeGrayAlphaRoundTripsShape(t *testing.T) {
	const tileSize = 4
	c0 := solidBuffer(tileSize, 2, 128)
	c1 := solidBuffer(tileSize, 2, 64)

	out := Compose([4]*Buffer{&c0, &c1, nil, nil}, tileSize, 2)
	if out.BandCount != 2 {
		t.Fatalf("BandCount = %d, want 2", out.BandCount)
	}
	if len(out.Pix) != tileSize*tileSize*2 {
		t.Fatalf("len(Pix) = %d, want %d", len(out.Pix), tileSize*tileSize*2)
	}
}
