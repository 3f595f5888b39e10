// Package catalog provides SQLite-backed storage for the unit forest.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS units (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	type      TEXT NOT NULL CHECK (type IN ('CATEGORY', 'OFFER')),
	parent_id TEXT REFERENCES units(id) ON DELETE CASCADE,
	price     INTEGER,
	date      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_units_parent ON units(parent_id);
CREATE INDEX IF NOT EXISTS idx_units_type_date ON units(type, date);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Foreign keys must stay enabled: subtree deletion rides ON DELETE CASCADE.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	if err := initSearch(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply search schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Tx is a catalog transaction. Every import runs inside one, so validation,
// writes, and ancestor date propagation commit or roll back together.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (db *DB) WithTx(fn func(tx *Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit tx: %w", err)
	}
	return nil
}
