package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// Dispatch archives tonight's record, logs and notes for a tail in one unit.
// A tail that is no longer active fails with db.ErrConflict.
func Dispatch(
	ctx context.Context,
	store db.Dispatcher,
	events EventPublisher,
	shift Shift,
	tailNumber string,
	logger *zap.Logger,
) (*db.DispatchResult, error) {
	if err := shift.authorize("dispatch"); err != nil {
		return nil, err
	}

	tail := NormalizeTail(tailNumber)
	if err := validateTail(tail); err != nil {
		return nil, err
	}

	key := shift.Night().Key(tail)
	logger.Info("Dispatching aircraft", zap.String("tail_number", tail), zap.String("night_date", key.NightDate))

	result, err := store.DispatchAircraft(ctx, key, shift.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch %s: %w", tail, err)
	}

	logger.Info("Aircraft dispatched",
		zap.String("tail_number", tail),
		zap.Int("logs", result.LogCount),
		zap.Int("notes", result.NoteCount))

	publishEvent(ctx, events, eventsclient.Event{
		Type:       eventsclient.EventDispatched,
		Station:    key.Station,
		NightDate:  key.NightDate,
		TailNumber: key.TailNumber,
		LogCount:   result.LogCount,
		NoteCount:  result.NoteCount,
		RecordedBy: shift.Actor,
		At:         shift.Resolver.LocalTimestamp(result.ArchivedAt),
	}, logger)

	return result, nil
}
