package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/fehu/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx so lookups can run inside
// or outside a transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

const unitColumns = `id, name, type, parent_id, price, date`

// SearchResult is one name-search hit.
type SearchResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func scanUnit(scan func(dest ...any) error) (*models.Unit, error) {
	var (
		u      models.Unit
		parent sql.NullString
		price  sql.NullInt64
		dateMS int64
	)
	if err := scan(&u.ID, &u.Name, (*string)(&u.Type), &parent, &price, &dateMS); err != nil {
		return nil, err
	}
	if parent.Valid {
		u.ParentID = &parent.String
	}
	if price.Valid {
		u.Price = &price.Int64
	}
	u.Date = time.UnixMilli(dateMS).UTC()
	return &u, nil
}

func findByID(q querier, id string) (*models.Unit, error) {
	row := q.QueryRow(`SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: find unit: %w", err)
	}
	return u, nil
}

// FindByID returns the unit with the given id, or nil when absent.
func (db *DB) FindByID(id string) (*models.Unit, error) {
	return findByID(db.conn, id)
}

// FindByID returns the unit with the given id inside the transaction.
func (tx *Tx) FindByID(id string) (*models.Unit, error) {
	return findByID(tx.tx, id)
}

// Insert adds a new unit.
func (tx *Tx) Insert(u *models.Unit) error {
	_, err := tx.tx.Exec(`
		INSERT INTO units (id, name, type, parent_id, price, date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, string(u.Type), u.ParentID, u.Price, u.Date.UnixMilli())
	if err != nil {
		return fmt.Errorf("catalog: insert unit: %w", err)
	}
	return searchUpsert(tx.tx, u.ID, u.Name)
}

// Update overwrites every stored field of an existing unit.
func (tx *Tx) Update(u *models.Unit) error {
	_, err := tx.tx.Exec(`
		UPDATE units SET name = ?, type = ?, parent_id = ?, price = ?, date = ?
		WHERE id = ?
	`, u.Name, string(u.Type), u.ParentID, u.Price, u.Date.UnixMilli(), u.ID)
	if err != nil {
		return fmt.Errorf("catalog: update unit: %w", err)
	}
	return searchUpsert(tx.tx, u.ID, u.Name)
}

// SetDate rewrites only the last-modified timestamp of a unit. This is the
// propagation write: each ancestor on the chain gets one.
func (tx *Tx) SetDate(id string, date time.Time) error {
	if _, err := tx.tx.Exec(`UPDATE units SET date = ? WHERE id = ?`, date.UnixMilli(), id); err != nil {
		return fmt.Errorf("catalog: set date: %w", err)
	}
	return nil
}

// DeleteSubtree removes a unit and every descendant. Returns false when the
// id is absent. The cascade is a single statement, so concurrent readers see
// the whole subtree or none of it.
func (tx *Tx) DeleteSubtree(id string) (bool, error) {
	if err := searchDeleteSubtree(tx.tx, id); err != nil {
		return false, err
	}
	res, err := tx.tx.Exec(`DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("catalog: delete subtree: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("catalog: delete subtree: %w", err)
	}
	return n > 0, nil
}

// Subtree returns the unit with the given id and all of its descendants,
// ordered parents-before-children (then by name within a level). Empty when
// the id is absent.
func (db *DB) Subtree(id string) ([]models.Unit, error) {
	rows, err := db.conn.Query(`
		WITH RECURSIVE subtree(id, name, type, parent_id, price, date, depth) AS (
			SELECT `+unitColumns+`, 0 FROM units WHERE id = ?
			UNION ALL
			SELECT u.id, u.name, u.type, u.parent_id, u.price, u.date, s.depth + 1
			FROM units u JOIN subtree s ON u.parent_id = s.id
		)
		SELECT `+unitColumns+` FROM subtree ORDER BY depth, name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: subtree: %w", err)
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: subtree scan: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// OffersInRange returns every offer whose date lies in [from, to], both ends
// inclusive, ordered by date.
func (db *DB) OffersInRange(from, to time.Time) ([]models.Unit, error) {
	rows, err := db.conn.Query(`
		SELECT `+unitColumns+` FROM units
		WHERE type = 'OFFER' AND date >= ? AND date <= ?
		ORDER BY date, name
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("catalog: offers in range: %w", err)
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: offers scan: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
