package archive

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tilekiln/mbtiler/internal/encode"
	"github.com/tilekiln/mbtiler/internal/pyramid"
	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// Resumer implements pyramid.Resumer against an existing archive: one
// read-only connection shared under a mutex (spec.md §9 — the original's
// select_conn is likewise a single shared Connection behind a Mutex).
type Resumer struct {
	mu        sync.Mutex
	db        *sql.DB
	codec     encode.Codec
	bandCount int
	tileSize  int
	hasAlpha  bool
}

// NewResumer opens target read-only for resume lookups. It is the caller's
// responsibility to close the returned Resumer once the run completes.
func NewResumer(target string, codec encode.Codec, hasAlpha bool, bandCount, tileSize int) (*Resumer, error) {
	db, err := sql.Open("sqlite3", "file:"+target+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("archive: open %s for resume: %w", target, err)
	}
	db.SetMaxOpenConns(1)
	return &Resumer{db: db, codec: codec, bandCount: bandCount, tileSize: tileSize, hasAlpha: hasAlpha}, nil
}

// Lookup reports whether t is already present in the archive: not found
// (compute it), found with empty tile_data (declared empty — don't
// recompute), or found with decoded pixel data.
func (r *Resumer) Lookup(t tilecoord.Tile) (pyramid.ResumeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT tile_data`
	if r.hasAlpha {
		query += `, tile_alpha`
	}
	query += ` FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`

	row := r.db.QueryRow(query, t.Zoom, t.X, t.ReversedY())

	var main, alpha []byte
	var err error
	if r.hasAlpha {
		err = row.Scan(&main, &alpha)
	} else {
		err = row.Scan(&main)
	}
	if err == sql.ErrNoRows {
		return pyramid.ResumeResult{State: pyramid.ResumeNotFound}, nil
	}
	if err != nil {
		return pyramid.ResumeResult{}, fmt.Errorf("archive: resume lookup %v: %w", t, err)
	}

	if len(main) == 0 {
		return pyramid.ResumeResult{State: pyramid.ResumeEmpty}, nil
	}

	buf, err := r.codec.Decode(main, alpha, r.bandCount, r.tileSize)
	if err != nil {
		return pyramid.ResumeResult{}, fmt.Errorf("archive: decode resumed tile %v: %w", t, err)
	}
	return pyramid.ResumeResult{State: pyramid.ResumeComputed, Buffer: buf}, nil
}

// Close releases the resume read connection.
func (r *Resumer) Close() error {
	return r.db.Close()
}
