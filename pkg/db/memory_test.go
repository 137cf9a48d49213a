package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNight = Night{Station: "OMA", NightDate: "2026-01-14"}

func createRecord(t *testing.T, m *MemoryDB, id, tail string, createdAt time.Time) *AircraftNightRecord {
	t.Helper()
	key := testNight.Key(tail)
	rec, err := m.UpsertNightRecord(context.Background(), key, func(existing *AircraftNightRecord) (*AircraftNightRecord, error) {
		require.Nil(t, existing)
		return &AircraftNightRecord{
			ID:         id,
			Station:    key.Station,
			NightDate:  key.NightDate,
			TailNumber: key.TailNumber,
			InTime:     "22:15",
			HeaterMode: "off",
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
		}, nil
	})
	require.NoError(t, err)
	return rec
}

func TestMemoryDB_UpsertCreatesThenMerges(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	created := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)

	rec := createRecord(t, m, "rec-1", "N12345", created)
	assert.Equal(t, "rec-1", rec.ID)

	merged, err := m.UpsertNightRecord(ctx, testNight.Key("N12345"), func(existing *AircraftNightRecord) (*AircraftNightRecord, error) {
		require.NotNil(t, existing)
		existing.Location = "Gate B"
		return existing, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", merged.ID)
	assert.Equal(t, "Gate B", merged.Location)
	assert.Equal(t, "22:15", merged.InTime)

	records, err := m.GetNightRecords(ctx, testNight)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gate B", records[0].Location)
}

func TestMemoryDB_UpsertRejectsIdentityChange(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	createRecord(t, m, "rec-1", "N12345", time.Now())

	_, err := m.UpsertNightRecord(ctx, testNight.Key("N12345"), func(existing *AircraftNightRecord) (*AircraftNightRecord, error) {
		existing.ID = "rec-2"
		return existing, nil
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.UpsertNightRecord(ctx, testNight.Key("N99999"), func(existing *AircraftNightRecord) (*AircraftNightRecord, error) {
		return &AircraftNightRecord{ID: "rec-3", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N11111"}, nil
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryDB_UpsertMergeErrorLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	mergeErr := errors.New("bad input")

	_, err := m.UpsertNightRecord(ctx, testNight.Key("N12345"), func(existing *AircraftNightRecord) (*AircraftNightRecord, error) {
		return nil, mergeErr
	})
	assert.ErrorIs(t, err, mergeErr)

	records, err := m.GetNightRecords(ctx, testNight)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryDB_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	rec := createRecord(t, m, "rec-1", "N12345", time.Now())

	purged := time.Now()
	rec.PurgedAt = &purged
	rec.Location = "Hangar"

	stored, err := m.GetNightRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Nil(t, stored.PurgedAt)
	assert.Empty(t, stored.Location)
}

func TestMemoryDB_UpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()

	_, err := m.UpdateNightRecord(ctx, "missing", func(rec *AircraftNightRecord) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.DeleteNightRecord(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetNightRecord(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDB_UpdateAppliesMutation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	createRecord(t, m, "rec-1", "N12345", time.Now())

	updated, err := m.UpdateNightRecord(ctx, "rec-1", func(rec *AircraftNightRecord) error {
		rec.HeatSource = "HG014"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "HG014", updated.HeatSource)

	_, err = m.UpdateNightRecord(ctx, "rec-1", func(rec *AircraftNightRecord) error {
		rec.TailNumber = "N00000"
		return nil
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryDB_DeleteKeepsLogsAndNotes(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	createRecord(t, m, "rec-1", "N12345", time.Now())
	require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{ID: "log-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345", TempF: 72, RecordedAt: time.Now()}))

	require.NoError(t, m.DeleteNightRecord(ctx, "rec-1"))

	logs, err := m.GetTempLogs(ctx, testNight)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	// The key is free again after delete
	createRecord(t, m, "rec-2", "N12345", time.Now())
}

func TestMemoryDB_TempLogOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	createRecord(t, m, "rec-1", "N1", at)
	_, err := m.UpsertNightRecord(ctx, NightKey{Station: "OMA", NightDate: "2026-01-13", TailNumber: "N1"}, func(*AircraftNightRecord) (*AircraftNightRecord, error) {
		return &AircraftNightRecord{ID: "rec-0", Station: "OMA", NightDate: "2026-01-13", TailNumber: "N1", InTime: "21:00"}, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{ID: "late", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N1", TempF: 80, RecordedAt: at.Add(time.Minute)}))
	first := &TemperatureLog{ID: "same-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N1", TempF: 70, RecordedAt: at}
	require.NoError(t, m.InsertTempLog(ctx, first))
	second := &TemperatureLog{ID: "same-2", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N1", TempF: 71, RecordedAt: at}
	require.NoError(t, m.InsertTempLog(ctx, second))
	require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{ID: "other-night", Station: "OMA", NightDate: "2026-01-13", TailNumber: "N1", TempF: 60, RecordedAt: at}))

	assert.Less(t, first.Seq, second.Seq)

	logs, err := m.GetTempLogs(ctx, testNight)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "same-1", logs[0].ID)
	assert.Equal(t, "same-2", logs[1].ID)
	assert.Equal(t, "late", logs[2].ID)

	latest := LatestTempLog(logs, "N1")
	require.NotNil(t, latest)
	assert.Equal(t, "late", latest.ID)
}

func TestMemoryDB_DispatchMovesEverything(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)

	createRecord(t, m, "rec-1", "N12345", at)
	createRecord(t, m, "rec-2", "N55555", at)
	for i, temp := range []float64{72, 68} {
		require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{
			ID: "log-" + string(rune('a'+i)), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
			TempF: temp, RecordedAt: at.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{ID: "log-other", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N55555", TempF: 75, RecordedAt: at}))
	require.NoError(t, m.InsertNote(ctx, &Note{ID: "note-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345", Text: "Heater swapped", CreatedAt: at}))

	archivedAt := at.Add(2 * time.Hour)
	result, err := m.DispatchAircraft(ctx, testNight.Key("N12345"), archivedAt)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", result.Record.ID)
	assert.Equal(t, 2, result.LogCount)
	assert.Equal(t, 1, result.NoteCount)
	assert.Equal(t, archivedAt, result.Record.ArchivedAt)

	records, err := m.GetNightRecords(ctx, testNight)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "N55555", records[0].TailNumber)

	logs, err := m.GetTempLogs(ctx, testNight)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-other", logs[0].ID)

	notes, err := m.GetNotes(ctx, testNight)
	require.NoError(t, err)
	assert.Empty(t, notes)

	q := ArchiveQuery{Station: "OMA", StartDate: "2026-01-14", EndDate: "2026-01-14"}
	archived, err := m.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "N12345", archived[0].TailNumber)

	archivedLogs, err := m.GetArchivedTempLogs(ctx, q)
	require.NoError(t, err)
	require.Len(t, archivedLogs, 2)
	assert.Equal(t, 72.0, archivedLogs[0].TempF)
	assert.Equal(t, 68.0, archivedLogs[1].TempF)

	archivedNotes, err := m.GetArchivedNotes(ctx, q)
	require.NoError(t, err)
	require.Len(t, archivedNotes, 1)
	assert.Equal(t, "Heater swapped", archivedNotes[0].Text)
}

func TestMemoryDB_SecondDispatchConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	createRecord(t, m, "rec-1", "N12345", time.Now())

	_, err := m.DispatchAircraft(ctx, testNight.Key("N12345"), time.Now())
	require.NoError(t, err)

	_, err = m.DispatchAircraft(ctx, testNight.Key("N12345"), time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	archived, err := m.GetArchivedNightRecords(ctx, ArchiveQuery{Station: "OMA", StartDate: "2026-01-01", EndDate: "2026-01-31"})
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestMemoryDB_ConcurrentDispatchHasOneWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	createRecord(t, m, "rec-1", "N12345", time.Now())
	require.NoError(t, m.InsertTempLog(ctx, &TemperatureLog{ID: "log-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345", TempF: 70, RecordedAt: time.Now()}))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.DispatchAircraft(ctx, testNight.Key("N12345"), time.Now())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, wins)

	q := ArchiveQuery{Station: "OMA", StartDate: "2026-01-14", EndDate: "2026-01-14"}
	archived, err := m.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	archivedLogs, err := m.GetArchivedTempLogs(ctx, q)
	require.NoError(t, err)
	assert.Len(t, archivedLogs, 1)
}

func TestArchiveQuery_Matches(t *testing.T) {
	q := ArchiveQuery{Station: "OMA", StartDate: "2026-01-14", EndDate: "2026-01-16"}

	assert.True(t, q.Matches(NightKey{Station: "OMA", NightDate: "2026-01-14", TailNumber: "N1"}))
	assert.True(t, q.Matches(NightKey{Station: "OMA", NightDate: "2026-01-16", TailNumber: "N1"}))
	assert.False(t, q.Matches(NightKey{Station: "OMA", NightDate: "2026-01-17", TailNumber: "N1"}))
	assert.False(t, q.Matches(NightKey{Station: "DFW", NightDate: "2026-01-15", TailNumber: "N1"}))

	q.TailNumber = "N2"
	assert.False(t, q.Matches(NightKey{Station: "OMA", NightDate: "2026-01-15", TailNumber: "N1"}))
	assert.True(t, q.Matches(NightKey{Station: "OMA", NightDate: "2026-01-15", TailNumber: "N2"}))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("tail_number", "is required")
	assert.Equal(t, "validation failed: tail_number: is required", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(ErrNotFound))

	wrapped := Unavailable("insert log", errors.New("connection refused"))
	assert.ErrorIs(t, wrapped, ErrBackendUnavailable)
	assert.Contains(t, wrapped.Error(), "failed to insert log")
}

func TestMemoryDB_InsertsRequireActiveRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	log := &TemperatureLog{ID: "log-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345", TempF: 95, RecordedAt: at}
	note := &Note{ID: "note-1", Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345", Text: "Heater swapped", CreatedAt: at}

	err := m.InsertTempLog(ctx, log)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no active record for N12345 on 2026-01-14")
	assert.ErrorIs(t, m.InsertNote(ctx, note), ErrNotFound)

	createRecord(t, m, "rec-1", "N12345", at)
	_, err = m.DispatchAircraft(ctx, testNight.Key("N12345"), at.Add(time.Hour))
	require.NoError(t, err)

	assert.ErrorIs(t, m.InsertTempLog(ctx, log), ErrNotFound)
	assert.ErrorIs(t, m.InsertNote(ctx, note), ErrNotFound)

	logs, err := m.GetTempLogs(ctx, testNight)
	require.NoError(t, err)
	assert.Empty(t, logs)
	notes, err := m.GetNotes(ctx, testNight)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
