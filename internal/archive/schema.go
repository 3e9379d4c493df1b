// Package archive implements the MBTiles (SQLite) sink side of the
// pipeline: schema creation, the single-writer commit thread, and the
// resume-mode reader (spec.md §4.6/§4.7/§6/§9).
package archive

import (
	"database/sql"
	"fmt"
)

// createSchema creates the metadata and tiles tables. alphaColumn controls
// whether tiles carries a tile_alpha BLOB column (JPEG schema) or not (PNG
// schema), per spec.md §4.7.
func createSchema(db *sql.DB, alphaColumn bool) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		UNIQUE(name)
	)`); err != nil {
		return fmt.Errorf("archive: create metadata table: %w", err)
	}

	tilesDDL := `CREATE TABLE IF NOT EXISTS tiles (
		zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL,
		tile_row INTEGER NOT NULL,
		tile_data BLOB NOT NULL`
	if alphaColumn {
		tilesDDL += `,
		tile_alpha BLOB NOT NULL`
	}
	tilesDDL += `
	)`
	if _, err := db.Exec(tilesDDL); err != nil {
		return fmt.Errorf("archive: create tiles table: %w", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_tiles
		ON tiles (zoom_level, tile_column, tile_row)`); err != nil {
		return fmt.Errorf("archive: create tiles index: %w", err)
	}

	return nil
}

// writeBaseMetadata inserts the fixed name/format/minzoom/maxzoom rows.
// Per-zoom limits rows are written separately once processing completes
// (see metadata.go).
func writeBaseMetadata(db *sql.DB, name, format string, maxZoom uint8) error {
	rows := [][2]string{
		{"name", name},
		{"format", format},
		{"minzoom", "0"},
		{"maxzoom", fmt.Sprint(maxZoom)},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`, r[0], r[1],
		); err != nil {
			return fmt.Errorf("archive: insert metadata %q: %w", r[0], err)
		}
	}
	return nil
}
