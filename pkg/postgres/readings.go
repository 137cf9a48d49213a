package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// InsertTempLog appends a log; the database assigns its sequence number.
// The active record is share-locked for the insert, so a concurrent dispatch
// either archives the log or runs first and leaves nothing to log against.
func (d *DB) InsertTempLog(ctx context.Context, log *db.TemperatureLog) error {
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := lockActiveRecord(ctx, tx, log.Key()); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO temperature_logs (id, station, night_date, tail_number, temp_f, recorded_at, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING seq
		`, log.ID, log.Station, log.NightDate, log.TailNumber, log.TempF, log.RecordedAt, log.RecordedBy).Scan(&log.Seq)
	})
	if err != nil {
		return classify("insert temperature log", err)
	}
	return nil
}

// GetTempLogs returns the night's logs ordered by recorded_at then seq
func (d *DB) GetTempLogs(ctx context.Context, night db.Night) ([]db.TemperatureLog, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by
		FROM temperature_logs
		WHERE station = $1 AND night_date = $2
		ORDER BY recorded_at, seq
	`, night.Station, night.NightDate)
	if err != nil {
		return nil, classify("query temperature logs", err)
	}
	defer rows.Close()

	var logs []db.TemperatureLog
	for rows.Next() {
		var l db.TemperatureLog
		var nightDate time.Time
		if err := rows.Scan(&l.Seq, &l.ID, &l.Station, &nightDate, &l.TailNumber, &l.TempF, &l.RecordedAt, &l.RecordedBy); err != nil {
			return nil, fmt.Errorf("failed to scan temperature log: %w", err)
		}
		l.NightDate = nightDate.Format(dateLayout)
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate temperature logs", err)
	}

	return logs, nil
}

// InsertNote appends a note; the database assigns its sequence number.
// It share-locks the active record like InsertTempLog.
func (d *DB) InsertNote(ctx context.Context, note *db.Note) error {
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := lockActiveRecord(ctx, tx, note.Key()); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO notes (id, station, night_date, tail_number, note, created_at, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING seq
		`, note.ID, note.Station, note.NightDate, note.TailNumber, note.Text, note.CreatedAt, note.RecordedBy).Scan(&note.Seq)
	})
	if err != nil {
		return classify("insert note", err)
	}
	return nil
}

// lockActiveRecord takes FOR SHARE on the key's active record. It conflicts
// with the FOR UPDATE taken by DispatchAircraft.
func lockActiveRecord(ctx context.Context, tx pgx.Tx, key db.NightKey) error {
	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1
		FROM aircraft_night_records
		WHERE station = $1 AND night_date = $2 AND tail_number = $3
		FOR SHARE
	`, key.Station, key.NightDate, key.TailNumber).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.NoActiveRecord(key)
	}
	return err
}

// GetNotes returns the night's notes ordered by created_at then seq
func (d *DB) GetNotes(ctx context.Context, night db.Night) ([]db.Note, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT seq, id, station, night_date, tail_number, note, created_at, recorded_by
		FROM notes
		WHERE station = $1 AND night_date = $2
		ORDER BY created_at, seq
	`, night.Station, night.NightDate)
	if err != nil {
		return nil, classify("query notes", err)
	}
	defer rows.Close()

	var notes []db.Note
	for rows.Next() {
		var n db.Note
		var nightDate time.Time
		if err := rows.Scan(&n.Seq, &n.ID, &n.Station, &nightDate, &n.TailNumber, &n.Text, &n.CreatedAt, &n.RecordedBy); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.NightDate = nightDate.Format(dateLayout)
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate notes", err)
	}

	return notes, nil
}
