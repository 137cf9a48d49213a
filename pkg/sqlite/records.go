package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jakechorley/tail-temps/pkg/db"
)

const recordColumns = `id, station, night_date, tail_number, in_time, location, heat_source, heater_mode,
	marked_in_at, drained, purged_at, recorded_by, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, extra ...any) (db.AircraftNightRecord, error) {
	var r db.AircraftNightRecord
	var markedInAt, purgedAt sql.NullString
	var createdAt, updatedAt string
	dest := []any{&r.ID, &r.Station, &r.NightDate, &r.TailNumber, &r.InTime, &r.Location, &r.HeatSource, &r.HeaterMode,
		&markedInAt, &r.Drained, &purgedAt, &r.RecordedBy, &createdAt, &updatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return r, err
	}

	var err error
	if r.MarkedInAt, err = parseNullTime(markedInAt); err != nil {
		return r, err
	}
	if r.PurgedAt, err = parseNullTime(purgedAt); err != nil {
		return r, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return r, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return r, err
	}
	return r, nil
}

func recordArgs(r *db.AircraftNightRecord) []any {
	return []any{r.ID, r.Station, r.NightDate, r.TailNumber, r.InTime, r.Location, r.HeatSource, r.HeaterMode,
		formatNullTime(r.MarkedInAt), r.Drained, formatNullTime(r.PurgedAt), r.RecordedBy,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt)}
}

// GetNightRecords returns the night's records ordered by creation time
func (d *DB) GetNightRecords(ctx context.Context, night db.Night) ([]db.AircraftNightRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM aircraft_night_records
		WHERE station = ? AND night_date = ?
		ORDER BY created_at, tail_number
	`, night.Station, night.NightDate)
	if err != nil {
		return nil, classify("query night records", err)
	}
	defer rows.Close()

	var records []db.AircraftNightRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan night record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate night records", err)
	}

	return records, nil
}

// GetNightRecord returns one record by ID
func (d *DB) GetNightRecord(ctx context.Context, id string) (*db.AircraftNightRecord, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM aircraft_night_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		return nil, classify("get night record "+id, err)
	}
	return &r, nil
}

// UpsertNightRecord merges into the record with the given key, or creates it
func (d *DB) UpsertNightRecord(ctx context.Context, key db.NightKey, merge db.MergeFunc) (*db.AircraftNightRecord, error) {
	var result *db.AircraftNightRecord
	var mergeErr error

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+recordColumns+`
			FROM aircraft_night_records
			WHERE station = ? AND night_date = ? AND tail_number = ?
		`, key.Station, key.NightDate, key.TailNumber)

		var existing *db.AircraftNightRecord
		r, err := scanRecord(row)
		switch {
		case err == nil:
			existing = &r
		case errors.Is(err, sql.ErrNoRows):
		default:
			return err
		}

		merged, err := merge(existing)
		if err != nil {
			mergeErr = err
			return err
		}
		if merged.Key() != key {
			mergeErr = fmt.Errorf("merged record key %v does not match %v: %w", merged.Key(), key, db.ErrConflict)
			return mergeErr
		}
		if existing != nil && merged.ID != existing.ID {
			mergeErr = fmt.Errorf("merged record changed id for %s: %w", key.TailNumber, db.ErrConflict)
			return mergeErr
		}

		if existing == nil {
			err = insertRecord(ctx, tx, merged)
		} else {
			err = updateRecord(ctx, tx, merged)
		}
		if err != nil {
			return err
		}

		stored := *merged
		result = &stored
		return nil
	})
	if mergeErr != nil {
		return nil, mergeErr
	}
	if err != nil {
		return nil, classify("upsert night record", err)
	}
	return result, nil
}

// UpdateNightRecord applies mutate to the record with the given ID
func (d *DB) UpdateNightRecord(ctx context.Context, id string, mutate db.MutateFunc) (*db.AircraftNightRecord, error) {
	var result *db.AircraftNightRecord
	var mutateErr error

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM aircraft_night_records WHERE id = ?`, id)
		r, err := scanRecord(row)
		if err != nil {
			return err
		}

		key := r.Key()
		if err := mutate(&r); err != nil {
			mutateErr = err
			return err
		}
		if r.ID != id || r.Key() != key {
			mutateErr = fmt.Errorf("mutation changed identity of night record %s: %w", id, db.ErrConflict)
			return mutateErr
		}

		if err := updateRecord(ctx, tx, &r); err != nil {
			return err
		}
		result = &r
		return nil
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		return nil, classify("update night record "+id, err)
	}
	return result, nil
}

// DeleteNightRecord removes an active record
func (d *DB) DeleteNightRecord(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM aircraft_night_records WHERE id = ?`, id)
	if err != nil {
		return classify("delete night record "+id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete night record "+id, err)
	}
	if n == 0 {
		return fmt.Errorf("night record %s: %w", id, db.ErrNotFound)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, r *db.AircraftNightRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO aircraft_night_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, recordArgs(r)...)
	return err
}

func updateRecord(ctx context.Context, tx *sql.Tx, r *db.AircraftNightRecord) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE aircraft_night_records
		SET in_time = ?, location = ?, heat_source = ?, heater_mode = ?,
			marked_in_at = ?, drained = ?, purged_at = ?, recorded_by = ?, updated_at = ?
		WHERE id = ?
	`, r.InTime, r.Location, r.HeatSource, r.HeaterMode,
		formatNullTime(r.MarkedInAt), r.Drained, formatNullTime(r.PurgedAt), r.RecordedBy, formatTime(r.UpdatedAt), r.ID)
	return err
}
