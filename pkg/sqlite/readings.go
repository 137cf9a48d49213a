package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// InsertTempLog appends a log; sqlite assigns its sequence number. The
// record check and the insert share one transaction on the single connection.
func (d *DB) InsertTempLog(ctx context.Context, log *db.TemperatureLog) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkActiveRecord(ctx, tx, log.Key()); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO temperature_logs (id, station, night_date, tail_number, temp_f, recorded_at, recorded_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, log.ID, log.Station, log.NightDate, log.TailNumber, log.TempF, formatTime(log.RecordedAt), log.RecordedBy)
		if err != nil {
			return err
		}
		log.Seq, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return classify("insert temperature log", err)
	}
	return nil
}

// GetTempLogs returns the night's logs ordered by recorded_at then seq
func (d *DB) GetTempLogs(ctx context.Context, night db.Night) ([]db.TemperatureLog, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, id, station, night_date, tail_number, temp_f, recorded_at, recorded_by
		FROM temperature_logs
		WHERE station = ? AND night_date = ?
		ORDER BY recorded_at, seq
	`, night.Station, night.NightDate)
	if err != nil {
		return nil, classify("query temperature logs", err)
	}
	defer rows.Close()

	var logs []db.TemperatureLog
	for rows.Next() {
		l, err := scanTempLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan temperature log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate temperature logs", err)
	}

	return logs, nil
}

func scanTempLog(row rowScanner, extra ...any) (db.TemperatureLog, error) {
	var l db.TemperatureLog
	var recordedAt string
	dest := []any{&l.Seq, &l.ID, &l.Station, &l.NightDate, &l.TailNumber, &l.TempF, &recordedAt, &l.RecordedBy}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return l, err
	}
	var err error
	l.RecordedAt, err = parseTime(recordedAt)
	return l, err
}

// InsertNote appends a note; sqlite assigns its sequence number
func (d *DB) InsertNote(ctx context.Context, note *db.Note) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkActiveRecord(ctx, tx, note.Key()); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notes (id, station, night_date, tail_number, note, created_at, recorded_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, note.ID, note.Station, note.NightDate, note.TailNumber, note.Text, formatTime(note.CreatedAt), note.RecordedBy)
		if err != nil {
			return err
		}
		note.Seq, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return classify("insert note", err)
	}
	return nil
}

func checkActiveRecord(ctx context.Context, tx *sql.Tx, key db.NightKey) error {
	var one int
	err := tx.QueryRowContext(ctx, `
		SELECT 1
		FROM aircraft_night_records
		WHERE station = ? AND night_date = ? AND tail_number = ?
	`, key.Station, key.NightDate, key.TailNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return db.NoActiveRecord(key)
	}
	return err
}

// GetNotes returns the night's notes ordered by created_at then seq
func (d *DB) GetNotes(ctx context.Context, night db.Night) ([]db.Note, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, id, station, night_date, tail_number, note, created_at, recorded_by
		FROM notes
		WHERE station = ? AND night_date = ?
		ORDER BY created_at, seq
	`, night.Station, night.NightDate)
	if err != nil {
		return nil, classify("query notes", err)
	}
	defer rows.Close()

	var notes []db.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate notes", err)
	}

	return notes, nil
}

func scanNote(row rowScanner, extra ...any) (db.Note, error) {
	var n db.Note
	var createdAt string
	dest := []any{&n.Seq, &n.ID, &n.Station, &n.NightDate, &n.TailNumber, &n.Text, &createdAt, &n.RecordedBy}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return n, err
	}
	var err error
	n.CreatedAt, err = parseTime(createdAt)
	return n, err
}
