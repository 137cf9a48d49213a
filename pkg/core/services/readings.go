package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/core/status"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// TempLogInserter is the store surface LogTemperature needs
type TempLogInserter interface {
	InsertTempLog(ctx context.Context, log *db.TemperatureLog) error
}

// NoteInserter is the store surface AddNote needs
type NoteInserter interface {
	InsertNote(ctx context.Context, note *db.Note) error
}

// EventPublisher sends domain events; failures never undo the stored change
type EventPublisher interface {
	Publish(ctx context.Context, ev eventsclient.Event) error
}

// LoggedTemp is a stored reading together with its classification
type LoggedTemp struct {
	Log    db.TemperatureLog
	Status status.Status
}

// LogTemperature appends a reading for a tail on tonight's list. The record
// itself is not touched. A tail with no active record fails with
// db.ErrNotFound. Cold and critical-hot readings raise an alert event.
func LogTemperature(
	ctx context.Context,
	store TempLogInserter,
	events EventPublisher,
	shift Shift,
	tailNumber string,
	tempF float64,
	logger *zap.Logger,
) (*LoggedTemp, error) {
	if err := shift.authorize("log temperature"); err != nil {
		return nil, err
	}

	tail := NormalizeTail(tailNumber)
	if err := validateTail(tail); err != nil {
		return nil, err
	}
	if math.IsNaN(tempF) || math.IsInf(tempF, 0) {
		return nil, db.NewValidationError("temp_f", "must be a finite number")
	}

	key := shift.Night().Key(tail)
	log := &db.TemperatureLog{
		ID:         uuid.New().String(),
		Station:    key.Station,
		NightDate:  key.NightDate,
		TailNumber: key.TailNumber,
		TempF:      tempF,
		RecordedAt: shift.Now(),
		RecordedBy: shift.Actor,
	}
	if err := store.InsertTempLog(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to log temperature for %s: %w", tail, err)
	}

	st := status.ClassifyValue(tempF)
	logger.Info("Temperature logged",
		zap.String("tail_number", tail),
		zap.Float64("temp_f", tempF),
		zap.String("status", string(st.Key)))

	if st.IsAlert() {
		publishEvent(ctx, events, eventsclient.Event{
			Type:       eventsclient.EventTempAlert,
			Station:    key.Station,
			NightDate:  key.NightDate,
			TailNumber: key.TailNumber,
			TempF:      &tempF,
			Status:     string(st.Key),
			RecordedBy: shift.Actor,
			At:         shift.Resolver.LocalTimestamp(log.RecordedAt),
		}, logger)
	}

	return &LoggedTemp{Log: *log, Status: st}, nil
}

// AddNote appends a free-text note for a tail on tonight's list
func AddNote(ctx context.Context, store NoteInserter, shift Shift, tailNumber, text string, logger *zap.Logger) (*db.Note, error) {
	if err := shift.authorize("add note"); err != nil {
		return nil, err
	}

	tail := NormalizeTail(tailNumber)
	if err := validateTail(tail); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, db.NewValidationError("note", "must not be empty")
	}

	key := shift.Night().Key(tail)
	note := &db.Note{
		ID:         uuid.New().String(),
		Station:    key.Station,
		NightDate:  key.NightDate,
		TailNumber: key.TailNumber,
		Text:       text,
		CreatedAt:  shift.Now(),
		RecordedBy: shift.Actor,
	}
	if err := store.InsertNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add note for %s: %w", tail, err)
	}

	logger.Info("Note added", zap.String("tail_number", tail), zap.Int("length", len(text)))
	return note, nil
}

// publishEvent logs a failed publish instead of failing the already-stored change
func publishEvent(ctx context.Context, events EventPublisher, ev eventsclient.Event, logger *zap.Logger) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("type", string(ev.Type)),
			zap.String("tail_number", ev.TailNumber),
			zap.Error(err))
	}
}
