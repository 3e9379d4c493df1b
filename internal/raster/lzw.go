package raster

// TIFF's LZW variant (compression=5) differs from the GIF/PDF flavor Go's
// compress/lzw package implements: TIFF increments the code width one code
// early ("early change"), as soon as the next free table slot reaches
// 2^width-1, where GIF waits until the table fills the current width. Feeding a TIFF stream to compress/lzw
// reliably produces "invalid code" errors, so tile decoding needs its own
// reader built to the TIFF 6.0 LZW section.

import (
	"errors"
	"io"
)

const (
	lzwMaxCodeWidth = 12
	lzwClearCode    = 256
	lzwEndCode      = 257
	lzwFirstFree    = 258
	lzwTableSize    = 1 << lzwMaxCodeWidth
)

// lzwCode is one entry of the growing string table: the string it encodes
// is prefix's string with suffix appended.
type lzwCode struct {
	prefix int // index of the code this one extends, -1 for literals
	suffix byte
	length int
}

// decompressTIFFLZW decodes a TIFF-LZW compressed tile or strip.
func decompressTIFFLZW(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return (&bitLZWReader{src: data}).run()
}

// bitLZWReader walks data MSB-first, maintaining the LZW code table and bit
// cursor across calls to readCode.
type bitLZWReader struct {
	src    []byte
	bitPos int
}

func (d *bitLZWReader) readCode(width int) (int, error) {
	if width <= 0 || width > 16 {
		return 0, errors.New("lzw: invalid code width")
	}
	code := 0
	for i := 0; i < width; i++ {
		byteIdx := d.bitPos / 8
		shift := 7 - (d.bitPos % 8)
		if byteIdx >= len(d.src) {
			return 0, io.ErrUnexpectedEOF
		}
		bit := (int(d.src[byteIdx]) >> shift) & 1
		code = (code << 1) | bit
		d.bitPos++
	}
	return code, nil
}

func (d *bitLZWReader) run() ([]byte, error) {
	table := make([]lzwCode, lzwTableSize+1)
	for i := 0; i < 256; i++ {
		table[i] = lzwCode{prefix: -1, suffix: byte(i), length: 1}
	}

	nextFree := lzwFirstFree
	width := 9
	prev := -1
	var scratch []byte
	var out []byte

	stringOf := func(code int) []byte {
		e := &table[code]
		scratch = scratch[:e.length]
		i := e.length - 1
		for code >= 0 {
			c := &table[code]
			scratch[i] = c.suffix
			i--
			code = c.prefix
		}
		return scratch
	}
	scratch = make([]byte, 0, lzwTableSize)

	first, err := d.readCode(width)
	if err != nil {
		return nil, err
	}
	if first != lzwClearCode {
		return nil, errors.New("lzw: stream does not open with a clear code")
	}

	for {
		code, err := d.readCode(width)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return out, nil
			}
			return nil, err
		}

		switch {
		case code == lzwEndCode:
			return out, nil
		case code == lzwClearCode:
			nextFree = lzwFirstFree
			width = 9
			prev = -1
			continue
		case prev == -1:
			if code >= 256 {
				return nil, errors.New("lzw: first code after clear must be a literal")
			}
			out = append(out, byte(code))
			prev = code
			continue
		}

		var emitted []byte
		switch {
		case code < nextFree:
			emitted = stringOf(code)
			out = append(out, emitted...)
			if nextFree < lzwTableSize {
				table[nextFree] = lzwCode{prefix: prev, suffix: emitted[0], length: table[prev].length + 1}
				nextFree++
			}
		case code == nextFree:
			// Not-yet-in-table case: the new string is the previous one
			// with its own first byte appended again.
			prevStr := stringOf(prev)
			first := prevStr[0]
			out = append(out, prevStr...)
			out = append(out, first)
			if nextFree < lzwTableSize {
				table[nextFree] = lzwCode{prefix: prev, suffix: first, length: table[prev].length + 1}
				nextFree++
			}
		default:
			return nil, errors.New("lzw: code references a table entry that doesn't exist yet")
		}

		if nextFree+1 >= (1<<width) && width < lzwMaxCodeWidth {
			width++
		}
		prev = code
	}
}
