package archive

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tilekiln/mbtiler/internal/encode"
	"github.com/tilekiln/mbtiler/internal/pyramid"
	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func TestWriterCreatesSchemaAndInserts(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.mbtiles")

	w, err := NewWriter(target, true, "Tiles", "jpeg", 3, 2)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	tile := tilecoord.Tile{Zoom: 2, X: 1, Y: 1}
	w.Send(pyramid.EncodedTile{Tile: tile, Main: []byte{1, 2, 3}, Alpha: []byte{}})

	ext := pyramid.NewExtents()
	ext.Update(tile)
	if err := w.Close(ext); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite3", target)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var zoom, col, row int
	var data []byte
	err = db.QueryRow(`SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles`).
		Scan(&zoom, &col, &row, &data)
	if err != nil {
		t.Fatalf("query tiles: %v", err)
	}
	if zoom != 2 || col != 1 || row != int(tile.ReversedY()) {
		t.Fatalf("got (zoom=%d, col=%d, row=%d), want (2, 1, %d)", zoom, col, row, tile.ReversedY())
	}
	if len(data) != 3 {
		t.Fatalf("tile_data length = %d, want 3", len(data))
	}

	var limits string
	if err := db.QueryRow(`SELECT value FROM metadata WHERE name = 'limits'`).Scan(&limits); err != nil {
		t.Fatalf("query limits: %v", err)
	}
	if limits == "" || limits == "{}" {
		t.Fatal("limits metadata should describe zoom 2's bounding box")
	}
}

func TestResumerReportsNotFoundEmptyAndComputed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.mbtiles")

	codec := &encode.JPEGCodec{Quality: 85}
	w, err := NewWriter(target, true, "Tiles", "jpeg", 1, 2)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	buf := pyramid.Buffer{Pix: make([]byte, 4*4*4), Side: 4, BandCount: 4}
	for i := range buf.Pix {
		if i%4 == 3 {
			buf.Pix[i] = 255
		} else {
			buf.Pix[i] = byte(i)
		}
	}
	main, alpha, err := codec.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	computed := tilecoord.Tile{Zoom: 1, X: 0, Y: 0}
	empty := tilecoord.Tile{Zoom: 1, X: 1, Y: 0}
	missing := tilecoord.Tile{Zoom: 1, X: 0, Y: 1}

	w.Send(pyramid.EncodedTile{Tile: computed, Main: main, Alpha: alpha})
	w.Send(pyramid.EncodedTile{Tile: empty, Main: nil, Alpha: nil})
	if err := w.Close(pyramid.NewExtents()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewResumer(target, codec, true, 4, 4)
	if err != nil {
		t.Fatalf("NewResumer: %v", err)
	}
	defer r.Close()

	res, err := r.Lookup(computed)
	if err != nil {
		t.Fatalf("Lookup(computed): %v", err)
	}
	if res.State != pyramid.ResumeComputed {
		t.Fatalf("Lookup(computed).State = %v, want ResumeComputed", res.State)
	}
	if res.Buffer.Side != 4 || res.Buffer.BandCount != 4 {
		t.Fatalf("decoded buffer shape = (%d, %d bands)", res.Buffer.Side, res.Buffer.BandCount)
	}

	res, err = r.Lookup(empty)
	if err != nil {
		t.Fatalf("Lookup(empty): %v", err)
	}
	if res.State != pyramid.ResumeEmpty {
		t.Fatalf("Lookup(empty).State = %v, want ResumeEmpty", res.State)
	}

	res, err = r.Lookup(missing)
	if err != nil {
		t.Fatalf("Lookup(missing): %v", err)
	}
	if res.State != pyramid.ResumeNotFound {
		t.Fatalf("Lookup(missing).State = %v, want ResumeNotFound", res.State)
	}
}
