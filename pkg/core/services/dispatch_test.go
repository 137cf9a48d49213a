package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// unavailableDispatcher fails like a dropped database connection
type unavailableDispatcher struct{}

func (unavailableDispatcher) DispatchAircraft(ctx context.Context, key db.NightKey, archivedAt time.Time) (*db.DispatchResult, error) {
	return nil, db.Unavailable("dispatch aircraft", errors.New("connection reset by peer"))
}

func TestDispatch_ArchivesEverything(t *testing.T) {
	ctx := context.Background()
	shift, clock := newTestShift(t)
	store := db.NewMemoryDB()
	events := &recordingPublisher{}

	prepTail(t, store, shift, "N12345")
	prepTail(t, store, shift, "N55555")
	for _, temp := range []float64{72, 74, 76} {
		_, err := LogTemperature(ctx, store, nil, shift, "N12345", temp, zap.NewNop())
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}
	_, err := AddNote(ctx, store, shift, "N12345", "Departing early", zap.NewNop())
	require.NoError(t, err)
	_, err = LogTemperature(ctx, store, nil, shift, "N55555", 71, zap.NewNop())
	require.NoError(t, err)

	result, err := Dispatch(ctx, store, events, shift, "n12345", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, result.LogCount)
	assert.Equal(t, 1, result.NoteCount)
	assert.Equal(t, "N12345", result.Record.TailNumber)

	records, err := store.GetNightRecords(ctx, shift.Night())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "N55555", records[0].TailNumber)

	logs, err := store.GetTempLogs(ctx, shift.Night())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "N55555", logs[0].TailNumber)

	require.Len(t, events.events, 1)
	assert.Equal(t, eventsclient.EventDispatched, events.events[0].Type)
	assert.Equal(t, 3, events.events[0].LogCount)
	assert.Equal(t, 1, events.events[0].NoteCount)
}

func TestDispatch_SecondCallConflicts(t *testing.T) {
	ctx := context.Background()
	shift, _ := newTestShift(t)
	store := db.NewMemoryDB()
	prepTail(t, store, shift, "N12345")

	_, err := Dispatch(ctx, store, nil, shift, "N12345", zap.NewNop())
	require.NoError(t, err)

	_, err = Dispatch(ctx, store, nil, shift, "N12345", zap.NewNop())
	assert.ErrorIs(t, err, db.ErrConflict)

	archived, err := store.GetArchivedNightRecords(ctx, db.ArchiveQuery{Station: "OMA", StartDate: "2026-01-14", EndDate: "2026-01-14"})
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestDispatch_ConcurrentCallsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	shift, _ := newTestShift(t)
	store := db.NewMemoryDB()
	prepTail(t, store, shift, "N12345")

	const crews = 5
	var wg sync.WaitGroup
	errs := make([]error, crews)
	for i := 0; i < crews; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Dispatch(ctx, store, nil, shift, "N12345", zap.NewNop())
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, db.ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestDispatch_BackendUnavailable(t *testing.T) {
	shift, _ := newTestShift(t)
	events := &recordingPublisher{}

	_, err := Dispatch(context.Background(), unavailableDispatcher{}, events, shift, "N12345", zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Empty(t, events.events)
}
