//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initSearch(_ *sql.DB) error {
	// FTS5 not available; name search uses a LIKE fallback on the units table.
	return nil
}

func searchUpsert(_ *sql.Tx, _, _ string) error {
	// Names live in the units table already; nothing extra to do.
	return nil
}

func searchDeleteSubtree(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based name search (fallback when FTS5 is not
// compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, name, type FROM units
		WHERE name LIKE ?
		ORDER BY name
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
