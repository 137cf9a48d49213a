package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// PrepInput is the set of fields supplied to CreateOrUpdate. Nil fields are
// left as they are on an existing record.
type PrepInput struct {
	TailNumber string  `validate:"required"`
	InTime     *string `validate:"omitempty,datetime=15:04"`
	Location   *string
	HeatSource *string
	HeaterMode *string
	Drained    *bool
}

// NightRecordUpserter is the store surface CreateOrUpdate needs
type NightRecordUpserter interface {
	UpsertNightRecord(ctx context.Context, key db.NightKey, merge db.MergeFunc) (*db.AircraftNightRecord, error)
}

// NightRecordLister is the store surface for reading tonight's records
type NightRecordLister interface {
	GetNightRecords(ctx context.Context, night db.Night) ([]db.AircraftNightRecord, error)
}

// NightRecordDeleter is the store surface DeleteAircraft needs
type NightRecordDeleter interface {
	DeleteNightRecord(ctx context.Context, id string) error
}

// CreateOrUpdate upserts tonight's record for a tail number. A new record
// needs a tail number and an in time; an existing one has the supplied
// fields merged in.
func CreateOrUpdate(
	ctx context.Context,
	store NightRecordUpserter,
	shift Shift,
	catalog Catalog,
	input PrepInput,
	logger *zap.Logger,
) (*db.AircraftNightRecord, error) {
	if err := shift.authorize("prep"); err != nil {
		return nil, err
	}

	input.TailNumber = NormalizeTail(input.TailNumber)
	if err := validateTail(input.TailNumber); err != nil {
		return nil, err
	}
	if err := validatePrepInput(catalog, input); err != nil {
		return nil, err
	}

	key := shift.Night().Key(input.TailNumber)
	now := shift.Now()

	logger.Debug("Upserting night record",
		zap.String("tail_number", key.TailNumber),
		zap.String("night_date", key.NightDate))

	rec, err := store.UpsertNightRecord(ctx, key, func(existing *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
		if existing == nil {
			if input.InTime == nil || *input.InTime == "" {
				return nil, db.NewValidationError("in_time", "is required for a new record")
			}
			existing = &db.AircraftNightRecord{
				ID:         uuid.New().String(),
				Station:    key.Station,
				NightDate:  key.NightDate,
				TailNumber: key.TailNumber,
				HeaterMode: catalog.DefaultHeaterMode(),
				CreatedAt:  now,
			}
		}
		applyPrepInput(existing, input, now)
		existing.RecordedBy = shift.Actor
		existing.UpdatedAt = now
		return existing, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", key.TailNumber, err)
	}

	logger.Info("Night record saved",
		zap.String("tail_number", rec.TailNumber),
		zap.String("id", rec.ID),
		zap.String("recorded_by", rec.RecordedBy))

	return rec, nil
}

func validatePrepInput(catalog Catalog, input PrepInput) error {
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "InTime" {
			return db.NewValidationError("in_time", "%q must be HH:MM", *input.InTime)
		}
		return db.NewValidationError("", "%v", err)
	}
	if input.Location != nil {
		if err := catalog.checkLocation(*input.Location); err != nil {
			return err
		}
	}
	if input.HeatSource != nil {
		if err := catalog.checkHeatSource(*input.HeatSource); err != nil {
			return err
		}
	}
	if input.HeaterMode != nil {
		if err := catalog.checkHeaterMode(*input.HeaterMode); err != nil {
			return err
		}
	}
	return nil
}

// applyPrepInput merges supplied fields. Setting drained on a record that is
// already drained keeps its purge time.
func applyPrepInput(rec *db.AircraftNightRecord, input PrepInput, now time.Time) {
	if input.InTime != nil {
		rec.InTime = *input.InTime
	}
	if input.Location != nil {
		rec.Location = *input.Location
	}
	if input.HeatSource != nil {
		rec.HeatSource = *input.HeatSource
	}
	if input.HeaterMode != nil {
		rec.HeaterMode = *input.HeaterMode
	}
	if input.Drained != nil {
		switch {
		case *input.Drained && !rec.Drained:
			rec.Drained = true
			rec.PurgedAt = &now
		case !*input.Drained:
			rec.Drained = false
			rec.PurgedAt = nil
		}
	}
}

// ListNight returns tonight's active records
func ListNight(ctx context.Context, store NightRecordLister, shift Shift, logger *zap.Logger) ([]db.AircraftNightRecord, error) {
	n := shift.Night()
	records, err := store.GetNightRecords(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get night records: %w", err)
	}
	logger.Debug("Fetched night records", zap.String("night_date", n.NightDate), zap.Int("count", len(records)))
	return records, nil
}

// FindActive returns tonight's record for a tail number, or ErrNotFound
func FindActive(ctx context.Context, store NightRecordLister, shift Shift, tailNumber string) (*db.AircraftNightRecord, error) {
	tail := NormalizeTail(tailNumber)
	if err := validateTail(tail); err != nil {
		return nil, err
	}
	n := shift.Night()
	records, err := store.GetNightRecords(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get night records: %w", err)
	}
	for i := range records {
		if records[i].TailNumber == tail {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%s is not active on %s: %w", tail, n.NightDate, db.ErrNotFound)
}

// DeleteAircraft hard-removes a mistaken record. Logs and notes are kept.
func DeleteAircraft(ctx context.Context, store NightRecordDeleter, shift Shift, id string, logger *zap.Logger) error {
	if err := shift.authorize("delete"); err != nil {
		return err
	}
	if err := store.DeleteNightRecord(ctx, id); err != nil {
		return fmt.Errorf("failed to delete night record: %w", err)
	}
	logger.Info("Night record deleted", zap.String("id", id), zap.String("recorded_by", shift.Actor))
	return nil
}
