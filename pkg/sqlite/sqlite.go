// Package sqlite implements the Database interface on a single SQLite file,
// for a station running on one terminal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// timeLayout is fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB provides database operations using SQLite
type DB struct {
	db *sql.DB
}

var _ db.Database = (*DB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS aircraft_night_records (
	id           TEXT PRIMARY KEY,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	in_time      TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	heat_source  TEXT NOT NULL DEFAULT '',
	heater_mode  TEXT NOT NULL DEFAULT 'off',
	marked_in_at TEXT,
	drained      INTEGER NOT NULL DEFAULT 0,
	purged_at    TEXT,
	recorded_by  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	UNIQUE (station, night_date, tail_number)
);

CREATE TABLE IF NOT EXISTS temperature_logs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	temp_f       REAL NOT NULL,
	recorded_at  TEXT NOT NULL,
	recorded_by  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_temperature_logs_night ON temperature_logs(station, night_date, tail_number);

CREATE TABLE IF NOT EXISTS notes (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	note         TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	recorded_by  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_notes_night ON notes(station, night_date, tail_number);

CREATE TABLE IF NOT EXISTS archived_aircraft_night_records (
	id           TEXT PRIMARY KEY,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	in_time      TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	heat_source  TEXT NOT NULL DEFAULT '',
	heater_mode  TEXT NOT NULL DEFAULT 'off',
	marked_in_at TEXT,
	drained      INTEGER NOT NULL DEFAULT 0,
	purged_at    TEXT,
	recorded_by  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	archived_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_records_range ON archived_aircraft_night_records(station, night_date);

CREATE TABLE IF NOT EXISTS archived_temperature_logs (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	temp_f       REAL NOT NULL,
	recorded_at  TEXT NOT NULL,
	recorded_by  TEXT NOT NULL DEFAULT '',
	archived_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_logs_range ON archived_temperature_logs(station, night_date);

CREATE TABLE IF NOT EXISTS archived_notes (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	station      TEXT NOT NULL,
	night_date   TEXT NOT NULL,
	tail_number  TEXT NOT NULL,
	note         TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	recorded_by  TEXT NOT NULL DEFAULT '',
	archived_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_notes_range ON archived_notes(station, night_date);
`

// Open opens or creates a SQLite database at the given path and applies the schema
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, db.Unavailable("open database", err)
	}

	// One connection serialises every transaction, dispatch included.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, db.Unavailable("configure database", err)
		}
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, db.Unavailable("create schema", err)
	}

	return &DB{db: conn}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// withTx runs fn in a transaction, rolling back when it fails
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// classify maps driver errors onto the db sentinels. Errors that already
// carry a sentinel pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrConflict) ||
		errors.Is(err, db.ErrBackendUnavailable) || db.IsValidation(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", op, db.ErrNotFound)
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("failed to %s: %w: %s", op, db.ErrConflict, sqlErr.Error())
	}
	return db.Unavailable(op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
