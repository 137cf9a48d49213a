package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// DispatchAircraft moves the record, logs and notes for key into the archive
// in one transaction
func (d *DB) DispatchAircraft(ctx context.Context, key db.NightKey, archivedAt time.Time) (*db.DispatchResult, error) {
	var result *db.DispatchResult
	stamp := formatTime(archivedAt)
	keyArgs := []any{key.Station, key.NightDate, key.TailNumber}

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+recordColumns+`
			FROM aircraft_night_records
			WHERE station = ? AND night_date = ? AND tail_number = ?
		`, keyArgs...)
		rec, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no active record for %s on %s: %w", key.TailNumber, key.NightDate, db.ErrConflict)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO archived_aircraft_night_records (`+recordColumns+`, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(recordArgs(&rec), stamp)...)
		if err != nil {
			return fmt.Errorf("failed to archive record: %w", err)
		}

		logs, err := moveRows(ctx, tx, `
			INSERT INTO archived_temperature_logs (seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by, archived_at)
			SELECT seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by, ?
			FROM temperature_logs
			WHERE station = ? AND night_date = ? AND tail_number = ?
		`, `DELETE FROM temperature_logs WHERE station = ? AND night_date = ? AND tail_number = ?`, stamp, keyArgs)
		if err != nil {
			return fmt.Errorf("failed to archive temperature logs: %w", err)
		}

		notes, err := moveRows(ctx, tx, `
			INSERT INTO archived_notes (seq, id, station, night_date, tail_number, note, created_at, recorded_by, archived_at)
			SELECT seq, id, station, night_date, tail_number, note, created_at, recorded_by, ?
			FROM notes
			WHERE station = ? AND night_date = ? AND tail_number = ?
		`, `DELETE FROM notes WHERE station = ? AND night_date = ? AND tail_number = ?`, stamp, keyArgs)
		if err != nil {
			return fmt.Errorf("failed to archive notes: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM aircraft_night_records WHERE id = ?`, rec.ID); err != nil {
			return fmt.Errorf("failed to remove active record: %w", err)
		}

		result = &db.DispatchResult{
			Record:     db.ArchivedAircraftNightRecord{AircraftNightRecord: rec, ArchivedAt: archivedAt},
			LogCount:   logs,
			NoteCount:  notes,
			ArchivedAt: archivedAt,
		}
		return nil
	})
	if err != nil {
		return nil, classify("dispatch "+key.TailNumber, err)
	}
	return result, nil
}

// moveRows copies rows into an archive table then deletes the originals,
// returning how many were moved
func moveRows(ctx context.Context, tx *sql.Tx, copyQuery, deleteQuery, stamp string, keyArgs []any) (int, error) {
	res, err := tx.ExecContext(ctx, copyQuery, append([]any{stamp}, keyArgs...)...)
	if err != nil {
		return 0, err
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, keyArgs...); err != nil {
		return 0, err
	}
	return int(moved), nil
}

// archiveFilter builds the WHERE clause shared by the archive reads
func archiveFilter(q db.ArchiveQuery) (string, []any) {
	where := `station = ? AND night_date BETWEEN ? AND ?`
	args := []any{q.Station, q.StartDate, q.EndDate}
	if q.TailNumber != "" {
		where += ` AND tail_number = ?`
		args = append(args, q.TailNumber)
	}
	return where, args
}

// GetArchivedNightRecords returns archived records matching q ordered by night then tail
func (d *DB) GetArchivedNightRecords(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedAircraftNightRecord, error) {
	where, args := archiveFilter(q)
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`, archived_at
		FROM archived_aircraft_night_records
		WHERE `+where+`
		ORDER BY night_date, tail_number
	`, args...)
	if err != nil {
		return nil, classify("query archived records", err)
	}
	defer rows.Close()

	var records []db.ArchivedAircraftNightRecord
	for rows.Next() {
		var archivedAt string
		r, err := scanRecord(rows, &archivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived record: %w", err)
		}
		at, err := parseTime(archivedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, db.ArchivedAircraftNightRecord{AircraftNightRecord: r, ArchivedAt: at})
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived records", err)
	}

	return records, nil
}

// GetArchivedTempLogs returns archived logs matching q ordered by recorded_at then seq
func (d *DB) GetArchivedTempLogs(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedTemperatureLog, error) {
	where, args := archiveFilter(q)
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by, archived_at
		FROM archived_temperature_logs
		WHERE `+where+`
		ORDER BY recorded_at, seq
	`, args...)
	if err != nil {
		return nil, classify("query archived temperature logs", err)
	}
	defer rows.Close()

	var logs []db.ArchivedTemperatureLog
	for rows.Next() {
		var archivedAt string
		l, err := scanTempLog(rows, &archivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived temperature log: %w", err)
		}
		at, err := parseTime(archivedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, db.ArchivedTemperatureLog{TemperatureLog: l, ArchivedAt: at})
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived temperature logs", err)
	}

	return logs, nil
}

// GetArchivedNotes returns archived notes matching q ordered by created_at then seq
func (d *DB) GetArchivedNotes(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedNote, error) {
	where, args := archiveFilter(q)
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, id, station, night_date, tail_number, note, created_at, recorded_by, archived_at
		FROM archived_notes
		WHERE `+where+`
		ORDER BY created_at, seq
	`, args...)
	if err != nil {
		return nil, classify("query archived notes", err)
	}
	defer rows.Close()

	var notes []db.ArchivedNote
	for rows.Next() {
		var archivedAt string
		n, err := scanNote(rows, &archivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived note: %w", err)
		}
		at, err := parseTime(archivedAt)
		if err != nil {
			return nil, err
		}
		notes = append(notes, db.ArchivedNote{Note: n, ArchivedAt: at})
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived notes", err)
	}

	return notes, nil
}
