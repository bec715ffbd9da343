package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

var _ Store = &SQLite{}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS calculators (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	body     TEXT NOT NULL
)`

// SQLite stores one row per calculator, the calculator itself as JSON.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" opens
// a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, wrapErr(BackendSQLite, "open", pkgerrors.Wrapf(err, "failed to create directory for %s", path))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapErr(BackendSQLite, "open", pkgerrors.Wrapf(err, "failed to open %s", path))
	}
	// A single connection serializes writers and keeps ":memory:" to one
	// database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, wrapErr(BackendSQLite, "open", pkgerrors.Wrap(err, "failed to create schema"))
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetAll(ctx context.Context) ([]calculator.Calculator, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM calculators ORDER BY position")
	if err != nil {
		return nil, wrapErr(BackendSQLite, "read", err)
	}
	defer rows.Close()

	calcs := []calculator.Calculator{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, wrapErr(BackendSQLite, "read", err)
		}
		var c calculator.Calculator
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, wrapErr(BackendSQLite, "read", pkgerrors.Wrapf(err, "failed to unmarshal row %s", id))
		}
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(BackendSQLite, "read", err)
	}
	return calcs, nil
}

func (s *SQLite) ReplaceAll(ctx context.Context, calcs []calculator.Calculator) error {
	return wrapErr(BackendSQLite, "replace", s.replaceAll(ctx, calcs))
}

func (s *SQLite) replaceAll(ctx context.Context, calcs []calculator.Calculator) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		// No-op after Commit.
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM calculators"); err != nil {
		return pkgerrors.Wrap(err, "failed to clear calculators")
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO calculators (id, position, body) VALUES (?, ?, ?)")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, c := range calcs {
		body, err := json.Marshal(c)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to marshal %s", c.ID)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, i, string(body)); err != nil {
			return pkgerrors.Wrapf(err, "failed to insert %s", c.ID)
		}
	}

	return pkgerrors.Wrap(tx.Commit(), "failed to commit")
}

func (s *SQLite) Close() error {
	return wrapErr(BackendSQLite, "close", s.db.Close())
}
