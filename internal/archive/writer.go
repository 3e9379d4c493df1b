package archive

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tilekiln/mbtiler/internal/pyramid"
)

// Writer is the archive's single commit thread: a prepared INSERT statement
// drained from a bounded channel, matching spec.md §4.7's "single writer
// thread, bounded channel sized ~16·N_WORKERS, WAL + synchronous=OFF".
// Writer satisfies pyramid.Sink.
type Writer struct {
	db   *sql.DB
	hasA bool
	ch   chan pyramid.EncodedTile
	done chan error
}

// NewWriter opens (or creates) target, creates the schema if absent, and
// starts the commit goroutine. nWorkers sizes the bounded channel.
func NewWriter(target string, hasAlpha bool, name, format string, maxZoom uint8, nWorkers int) (*Writer, error) {
	db, err := sql.Open("sqlite3", target)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", target, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA synchronous = OFF`); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: set synchronous pragma: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: set journal_mode pragma: %w", err)
	}

	if err := createSchema(db, hasAlpha); err != nil {
		db.Close()
		return nil, err
	}
	if err := writeBaseMetadata(db, name, format, maxZoom); err != nil {
		db.Close()
		return nil, err
	}

	w := &Writer{
		db:   db,
		hasA: hasAlpha,
		ch:   make(chan pyramid.EncodedTile, nWorkers*16),
		done: make(chan error, 1),
	}
	go w.run()
	return w, nil
}

// Send queues an encoded tile for commit. Tiles with a nil Main (declared
// empty and InsertEmpty is off) are dropped by the caller before reaching
// here; Writer commits whatever it receives.
func (w *Writer) Send(t pyramid.EncodedTile) {
	w.ch <- t
}

func (w *Writer) run() {
	query := `INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data`
	args := "?, ?, ?, ?"
	if w.hasA {
		query += `, tile_alpha`
		args += ", ?"
	}
	query += `) VALUES (` + args + `)`

	stmt, err := w.db.Prepare(query)
	if err != nil {
		w.done <- fmt.Errorf("archive: prepare insert: %w", err)
		return
	}
	defer stmt.Close()

	for t := range w.ch {
		row := t.Tile.ReversedY()
		// Empty tiles carry nil slices; store them as zero-length blobs,
		// since the tile columns are NOT NULL.
		if t.Main == nil {
			t.Main = []byte{}
		}
		if t.Alpha == nil {
			t.Alpha = []byte{}
		}
		var execErr error
		if w.hasA {
			_, execErr = stmt.Exec(t.Tile.Zoom, t.Tile.X, row, t.Main, t.Alpha)
		} else {
			_, execErr = stmt.Exec(t.Tile.Zoom, t.Tile.X, row, t.Main)
		}
		if execErr != nil {
			w.done <- fmt.Errorf("archive: insert tile %v: %w", t.Tile, execErr)
			return
		}
	}
	w.done <- nil
}

// Close drains and waits for the commit goroutine to finish, then writes
// final metadata and closes the database. It must be called only after the
// worker pool has quiesced.
func (w *Writer) Close(ext *pyramid.Extents) error {
	close(w.ch)
	if err := <-w.done; err != nil {
		w.db.Close()
		return err
	}

	if err := writeLimits(w.db, ext); err != nil {
		w.db.Close()
		return err
	}

	return w.db.Close()
}
