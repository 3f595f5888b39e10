//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initSearch(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS units_fts USING fts5(
			id UNINDEXED,
			name,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func searchUpsert(tx *sql.Tx, id, name string) error {
	_, _ = tx.Exec(`DELETE FROM units_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO units_fts (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

// searchDeleteSubtree clears FTS rows for a unit and its descendants before
// the cascading delete removes them from the units table.
func searchDeleteSubtree(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`
		DELETE FROM units_fts WHERE id IN (
			WITH RECURSIVE subtree(id) AS (
				SELECT id FROM units WHERE id = ?
				UNION ALL
				SELECT u.id FROM units u JOIN subtree s ON u.parent_id = s.id
			)
			SELECT id FROM subtree
		)
	`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete fts subtree: %w", err)
	}
	return nil
}

// Search performs an FTS5 search over unit names. The join filters entries
// whose unit has since been removed.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT u.id, u.name, u.type
		FROM units_fts f
		JOIN units u ON u.id = f.id
		WHERE units_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
