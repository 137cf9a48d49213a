package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/tail-temps/pkg/db"
)

const recordColumns = `id, station, night_date, tail_number, in_time, location, heat_source, heater_mode,
	marked_in_at, drained, purged_at, recorded_by, created_at, updated_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, extra ...any) (db.AircraftNightRecord, error) {
	var r db.AircraftNightRecord
	var nightDate time.Time
	dest := []any{&r.ID, &r.Station, &nightDate, &r.TailNumber, &r.InTime, &r.Location, &r.HeatSource, &r.HeaterMode,
		&r.MarkedInAt, &r.Drained, &r.PurgedAt, &r.RecordedBy, &r.CreatedAt, &r.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return r, err
	}
	r.NightDate = nightDate.Format(dateLayout)
	return r, nil
}

// GetNightRecords returns the night's records ordered by creation time
func (d *DB) GetNightRecords(ctx context.Context, night db.Night) ([]db.AircraftNightRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM aircraft_night_records
		WHERE station = $1 AND night_date = $2
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
	row := d.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM aircraft_night_records WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err != nil {
		return nil, classify("get night record "+id, err)
	}
	return &r, nil
}

// UpsertNightRecord merges into the record with the given key, or creates it.
// The existing row is locked for the duration of merge. Two sessions racing to
// create the same key resolve on the unique constraint; the loser retries once
// and merges into the winner's row.
func (d *DB) UpsertNightRecord(ctx context.Context, key db.NightKey, merge db.MergeFunc) (*db.AircraftNightRecord, error) {
	var result *db.AircraftNightRecord
	var mergeErr error

	upsert := func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+recordColumns+`
			FROM aircraft_night_records
			WHERE station = $1 AND night_date = $2 AND tail_number = $3
			FOR UPDATE
		`, key.Station, key.NightDate, key.TailNumber)

		var existing *db.AircraftNightRecord
		r, err := scanRecord(row)
		switch {
		case err == nil:
			existing = &r
		case errors.Is(err, pgx.ErrNoRows):
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

		if existing == nil {
			err = insertRecord(ctx, tx, merged)
		} else {
			if merged.ID != existing.ID {
				mergeErr = fmt.Errorf("merged record changed id for %s: %w", key.TailNumber, db.ErrConflict)
				return mergeErr
			}
			err = updateRecord(ctx, tx, merged)
		}
		if err != nil {
			return err
		}

		stored := *merged
		result = &stored
		return nil
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		mergeErr = nil
		err = pgx.BeginFunc(ctx, d.pool, upsert)
		if err == nil || mergeErr != nil || !isUniqueViolation(err) {
			break
		}
	}
	if mergeErr != nil {
		return nil, mergeErr
	}
	if err != nil {
		return nil, classify("upsert night record", err)
	}
	return result, nil
}

// UpdateNightRecord applies mutate to the record with the given ID under a row lock
func (d *DB) UpdateNightRecord(ctx context.Context, id string, mutate db.MutateFunc) (*db.AircraftNightRecord, error) {
	var result *db.AircraftNightRecord
	var mutateErr error

	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM aircraft_night_records WHERE id = $1 FOR UPDATE`, id)
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
	tag, err := d.pool.Exec(ctx, `DELETE FROM aircraft_night_records WHERE id = $1`, id)
	if err != nil {
		return classify("delete night record "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("night record %s: %w", id, db.ErrNotFound)
	}
	return nil
}

func insertRecord(ctx context.Context, tx pgx.Tx, r *db.AircraftNightRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO aircraft_night_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.ID, r.Station, r.NightDate, r.TailNumber, r.InTime, r.Location, r.HeatSource, r.HeaterMode,
		r.MarkedInAt, r.Drained, r.PurgedAt, r.RecordedBy, r.CreatedAt, r.UpdatedAt)
	return err
}

func updateRecord(ctx context.Context, tx pgx.Tx, r *db.AircraftNightRecord) error {
	_, err := tx.Exec(ctx, `
		UPDATE aircraft_night_records
		SET in_time = $2, location = $3, heat_source = $4, heater_mode = $5,
			marked_in_at = $6, drained = $7, purged_at = $8, recorded_by = $9, updated_at = $10
		WHERE id = $1
	`, r.ID, r.InTime, r.Location, r.HeatSource, r.HeaterMode,
		r.MarkedInAt, r.Drained, r.PurgedAt, r.RecordedBy, r.UpdatedAt)
	return err
}
