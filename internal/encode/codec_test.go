package encode

import (
	"testing"

	"github.com/tilekiln/mbtiler/internal/pyramid"
)

func testRGBABuffer(side int, uniformAlpha bool) pyramid.Buffer {
	pix := make([]byte, side*side*4)
	for i := 0; i < side*side; i++ {
		o := i * 4
		x, y := i%side, i/side
		pix[o] = byte(x % 256)
		pix[o+1] = byte(y % 256)
		pix[o+2] = byte((x + y) % 256)
		if uniformAlpha {
			pix[o+3] = 255
		} else if x < side/2 {
			pix[o+3] = 255
		} else {
			pix[o+3] = 0
		}
	}
	return pyramid.Buffer{Pix: pix, Side: side, BandCount: 4}
}

func TestPNGCodecRoundTrip(t *testing.T) {
	buf := testRGBABuffer(64, false)
	c := &PNGCodec{}

	main, alpha, err := c.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if alpha != nil {
		t.Fatalf("png schema must not produce an alpha blob, got %d bytes", len(alpha))
	}
	if c.HasAlphaColumn() {
		t.Fatalf("png schema has no alpha column")
	}

	decoded, err := c.Decode(main, nil, 4, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	for i := range buf.Pix {
		if decoded.Pix[i] != buf.Pix[i] {
			t.Fatalf("byte %d: got %d want %d (png must round-trip losslessly)", i, decoded.Pix[i], buf.Pix[i])
		}
	}
}

func TestJPEGCodecOmitsAlphaWhenFullyOpaque(t *testing.T) {
	buf := testRGBABuffer(64, true)
	c := &JPEGCodec{Quality: 85}

	_, alpha, err := c.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(alpha) != 0 {
		t.Fatalf("fully opaque tile must produce an empty alpha blob, got %d bytes", len(alpha))
	}
}

func TestJPEGCodecStoresAlphaWhenNotOpaque(t *testing.T) {
	buf := testRGBABuffer(64, false)
	c := &JPEGCodec{Quality: 85}

	main, alpha, err := c.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(alpha) == 0 {
		t.Fatal("partially transparent tile must produce a non-empty alpha blob")
	}

	decoded, err := c.Decode(main, alpha, 4, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// Alpha channel is lossless (zstd over raw bytes); RGB is lossy (JPEG).
	for i := 0; i < 64*64; i++ {
		o := i*4 + 3
		if decoded.Pix[o] != buf.Pix[o] {
			t.Fatalf("alpha byte %d: got %d want %d", i, decoded.Pix[o], buf.Pix[o])
		}
	}
}

func TestJPEGCodecGrayAlphaRoundTrip(t *testing.T) {
	side := 32
	pix := make([]byte, side*side*2)
	for i := 0; i < side*side; i++ {
		pix[i*2] = byte(i % 256)
		pix[i*2+1] = 255
	}
	buf := pyramid.Buffer{Pix: pix, Side: side, BandCount: 2}
	c := &JPEGCodec{Quality: 90}

	main, alpha, err := c.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(alpha) != 0 {
		t.Fatal("uniform alpha=255 gray tile must omit the alpha blob")
	}

	decoded, err := c.Decode(main, alpha, 2, side)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Side != side || decoded.BandCount != 2 {
		t.Fatalf("decoded shape = (%d, %d bands), want (%d, 2 bands)", decoded.Side, decoded.BandCount, side)
	}
}

func TestNewCodec(t *testing.T) {
	if _, ok := NewCodec("png", 0).(*PNGCodec); !ok {
		t.Fatal(`NewCodec("png", ...) should return a *PNGCodec`)
	}
	if _, ok := NewCodec("jpeg", 90).(*JPEGCodec); !ok {
		t.Fatal(`NewCodec("jpeg", ...) should return a *JPEGCodec`)
	}
	if _, ok := NewCodec("", 0).(*JPEGCodec); !ok {
		t.Fatal("NewCodec should default to JPEG")
	}
}
