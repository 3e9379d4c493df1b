package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tilekiln/mbtiler/internal/pyramid"
)

// zoomLimits is the JSON shape of the per-zoom "limits" metadata row:
// the tile-column/row bounding box of every non-empty tile committed at
// that zoom level (spec.md §4.8).
type zoomLimits struct {
	MinX uint32 `json:"minX"`
	MaxX uint32 `json:"maxX"`
	MinY uint32 `json:"minY"`
	MaxY uint32 `json:"maxY"`
}

// writeLimits snapshots ext and writes a single "limits" metadata row whose
// value is a JSON object keyed by zoom level, matching spec.md §6's metadata
// table.
func writeLimits(db *sql.DB, ext *pyramid.Extents) error {
	if ext == nil {
		return nil
	}
	snap := ext.Snapshot()
	out := make(map[string]zoomLimits, len(snap))
	for zoom, l := range snap {
		out[fmt.Sprint(zoom)] = zoomLimits{MinX: l.MinX, MaxX: l.MaxX, MinY: l.MinY, MaxY: l.MaxY}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("archive: marshal limits: %w", err)
	}

	if _, err := db.Exec(
		`INSERT OR REPLACE INTO metadata (name, value) VALUES ('limits', ?)`, string(data),
	); err != nil {
		return fmt.Errorf("archive: insert limits metadata: %w", err)
	}
	return nil
}
