package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// DispatchAircraft moves the record, logs and notes for key into the archive
// in one transaction. The active row is locked first, so of two concurrent
// dispatches the second sees no row and gets ErrConflict.
func (d *DB) DispatchAircraft(ctx context.Context, key db.NightKey, archivedAt time.Time) (*db.DispatchResult, error) {
	var result *db.DispatchResult

	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+recordColumns+`
			FROM aircraft_night_records
			WHERE station = $1 AND night_date = $2 AND tail_number = $3
			FOR UPDATE
		`, key.Station, key.NightDate, key.TailNumber)
		rec, err := scanRecord(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("no active record for %s on %s: %w", key.TailNumber, key.NightDate, db.ErrConflict)
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO archived_aircraft_night_records (`+recordColumns+`, archived_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, rec.ID, rec.Station, rec.NightDate, rec.TailNumber, rec.InTime, rec.Location, rec.HeatSource, rec.HeaterMode,
			rec.MarkedInAt, rec.Drained, rec.PurgedAt, rec.RecordedBy, rec.CreatedAt, rec.UpdatedAt, archivedAt)
		if err != nil {
			return fmt.Errorf("failed to archive record: %w", err)
		}

		logs, err := tx.Exec(ctx, `
			WITH moved AS (
				DELETE FROM temperature_logs
				WHERE station = $1 AND night_date = $2 AND tail_number = $3
				RETURNING seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by
			)
			INSERT INTO archived_temperature_logs (seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by, archived_at)
			SELECT seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by, $4::timestamptz FROM moved
		`, key.Station, key.NightDate, key.TailNumber, archivedAt)
		if err != nil {
			return fmt.Errorf("failed to archive temperature logs: %w", err)
		}

		notes, err := tx.Exec(ctx, `
			WITH moved AS (
				DELETE FROM notes
				WHERE station = $1 AND night_date = $2 AND tail_number = $3
				RETURNING seq, id, station, night_date, tail_number, note, created_at, recorded_by
			)
			INSERT INTO archived_notes (seq, id, station, night_date, tail_number, note, created_at, recorded_by, archived_at)
			SELECT seq, id, station, night_date, tail_number, note, created_at, recorded_by, $4::timestamptz FROM moved
		`, key.Station, key.NightDate, key.TailNumber, archivedAt)
		if err != nil {
			return fmt.Errorf("failed to archive notes: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM aircraft_night_records WHERE id = $1`, rec.ID); err != nil {
			return fmt.Errorf("failed to remove active record: %w", err)
		}

		result = &db.DispatchResult{
			Record:     db.ArchivedAircraftNightRecord{AircraftNightRecord: rec, ArchivedAt: archivedAt},
			LogCount:   int(logs.RowsAffected()),
			NoteCount:  int(notes.RowsAffected()),
			ArchivedAt: archivedAt,
		}
		return nil
	})
	if err != nil {
		return nil, classify("dispatch "+key.TailNumber, err)
	}
	return result, nil
}

// archiveFilter builds the WHERE clause shared by the archive reads
func archiveFilter(q db.ArchiveQuery) (string, []any) {
	where := `station = $1 AND night_date BETWEEN $2 AND $3`
	args := []any{q.Station, q.StartDate, q.EndDate}
	if q.TailNumber != "" {
		where += ` AND tail_number = $4`
		args = append(args, q.TailNumber)
	}
	return where, args
}

// GetArchivedNightRecords returns archived records matching q ordered by night then tail
func (d *DB) GetArchivedNightRecords(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedAircraftNightRecord, error) {
	where, args := archiveFilter(q)
	rows, err := d.pool.Query(ctx, `
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
		var archivedAt time.Time
		r, err := scanRecord(rows, &archivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived record: %w", err)
		}
		records = append(records, db.ArchivedAircraftNightRecord{AircraftNightRecord: r, ArchivedAt: archivedAt})
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived records", err)
	}

	return records, nil
}

// GetArchivedTempLogs returns archived logs matching q ordered by recorded_at then seq
func (d *DB) GetArchivedTempLogs(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedTemperatureLog, error) {
	where, args := archiveFilter(q)
	rows, err := d.pool.Query(ctx, `
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
		var l db.ArchivedTemperatureLog
		var nightDate time.Time
		if err := rows.Scan(&l.Seq, &l.ID, &l.Station, &nightDate, &l.TailNumber, &l.TempF, &l.RecordedAt, &l.RecordedBy, &l.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived temperature log: %w", err)
		}
		l.NightDate = nightDate.Format(dateLayout)
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived temperature logs", err)
	}

	return logs, nil
}

// GetArchivedNotes returns archived notes matching q ordered by created_at then seq
func (d *DB) GetArchivedNotes(ctx context.Context, q db.ArchiveQuery) ([]db.ArchivedNote, error) {
	where, args := archiveFilter(q)
	rows, err := d.pool.Query(ctx, `
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
		var n db.ArchivedNote
		var nightDate time.Time
		if err := rows.Scan(&n.Seq, &n.ID, &n.Station, &nightDate, &n.TailNumber, &n.Text, &n.CreatedAt, &n.RecordedBy, &n.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived note: %w", err)
		}
		n.NightDate = nightDate.Format(dateLayout)
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate archived notes", err)
	}

	return notes, nil
}
