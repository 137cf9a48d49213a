package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// NightRecordUpdater is the store surface for in-place record changes
type NightRecordUpdater interface {
	UpdateNightRecord(ctx context.Context, id string, mutate db.MutateFunc) (*db.AircraftNightRecord, error)
}

// MarkIn stamps marked_in_at the first time it is called. Later calls return
// the record unchanged.
func MarkIn(ctx context.Context, store NightRecordUpdater, shift Shift, id string, logger *zap.Logger) (*db.AircraftNightRecord, error) {
	if err := shift.authorize("mark in"); err != nil {
		return nil, err
	}

	now := shift.Now()
	first := false
	rec, err := store.UpdateNightRecord(ctx, id, func(rec *db.AircraftNightRecord) error {
		if rec.MarkedInAt != nil {
			return nil
		}
		first = true
		rec.MarkedInAt = &now
		rec.RecordedBy = shift.Actor
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark in: %w", err)
	}

	if first {
		logger.Info("Aircraft marked in", zap.String("tail_number", rec.TailNumber), zap.Time("marked_in_at", now))
	} else {
		logger.Debug("Aircraft already marked in", zap.String("tail_number", rec.TailNumber))
	}
	return rec, nil
}

// SetHeatSource replaces the record's heat source
func SetHeatSource(ctx context.Context, store NightRecordUpdater, shift Shift, catalog Catalog, id, value string, logger *zap.Logger) (*db.AircraftNightRecord, error) {
	if err := shift.authorize("set heat source"); err != nil {
		return nil, err
	}
	if err := catalog.checkHeatSource(value); err != nil {
		return nil, err
	}
	rec, err := replaceField(ctx, store, shift, id, func(rec *db.AircraftNightRecord) { rec.HeatSource = value })
	if err != nil {
		return nil, fmt.Errorf("failed to set heat source: %w", err)
	}
	logger.Info("Heat source changed", zap.String("tail_number", rec.TailNumber), zap.String("heat_source", value))
	return rec, nil
}

// SetHeaterMode replaces the record's heater mode
func SetHeaterMode(ctx context.Context, store NightRecordUpdater, shift Shift, catalog Catalog, id, value string, logger *zap.Logger) (*db.AircraftNightRecord, error) {
	if err := shift.authorize("set heater mode"); err != nil {
		return nil, err
	}
	if err := catalog.checkHeaterMode(value); err != nil {
		return nil, err
	}
	rec, err := replaceField(ctx, store, shift, id, func(rec *db.AircraftNightRecord) { rec.HeaterMode = value })
	if err != nil {
		return nil, fmt.Errorf("failed to set heater mode: %w", err)
	}
	logger.Info("Heater mode changed", zap.String("tail_number", rec.TailNumber), zap.String("heater_mode", value))
	return rec, nil
}

// TogglePurge sets drained and derives purged_at from it. Turning it on
// always stamps a fresh purge time.
func TogglePurge(ctx context.Context, store NightRecordUpdater, shift Shift, id string, drained bool, logger *zap.Logger) (*db.AircraftNightRecord, error) {
	if err := shift.authorize("toggle purge"); err != nil {
		return nil, err
	}
	rec, err := replaceField(ctx, store, shift, id, func(rec *db.AircraftNightRecord) {
		rec.Drained = drained
		if drained {
			at := rec.UpdatedAt
			rec.PurgedAt = &at
		} else {
			rec.PurgedAt = nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle purge: %w", err)
	}
	logger.Info("Purge toggled", zap.String("tail_number", rec.TailNumber), zap.Bool("drained", drained))
	return rec, nil
}

// replaceField applies set and stamps attribution. UpdatedAt is set before
// set runs so that set can reuse it.
func replaceField(ctx context.Context, store NightRecordUpdater, shift Shift, id string, set func(rec *db.AircraftNightRecord)) (*db.AircraftNightRecord, error) {
	now := shift.Now()
	return store.UpdateNightRecord(ctx, id, func(rec *db.AircraftNightRecord) error {
		rec.UpdatedAt = now
		rec.RecordedBy = shift.Actor
		set(rec)
		return nil
	})
}
