package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/tail-temps/pkg/db"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "tail-temps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

var testKey = db.NightKey{Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345"}

func newRecord(key db.NightKey, at time.Time) *db.AircraftNightRecord {
	return &db.AircraftNightRecord{
		ID:         uuid.NewString(),
		Station:    key.Station,
		NightDate:  key.NightDate,
		TailNumber: key.TailNumber,
		InTime:     "21:00",
		Location:   "Gate A",
		HeatSource: "HG014",
		HeaterMode: "off",
		RecordedBy: "crew@example.com",
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func createRecord(t *testing.T, d *DB, key db.NightKey, at time.Time) *db.AircraftNightRecord {
	t.Helper()
	rec, err := d.UpsertNightRecord(context.Background(), key, func(existing *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
		require.Nil(t, existing)
		return newRecord(key, at), nil
	})
	require.NoError(t, err)
	return rec
}

func TestTimeRoundTripSortsAsText(t *testing.T) {
	whole := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	frac := whole.Add(500 * time.Millisecond)

	assert.Less(t, formatTime(whole), formatTime(frac))

	parsed, err := parseTime(formatTime(frac))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(frac))

	none, err := parseNullTime(formatNullTime(nil))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpsertNightRecord_CreateThenMerge(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)

	created := createRecord(t, d, testKey, at)

	merged, err := d.UpsertNightRecord(ctx, testKey, func(existing *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
		require.NotNil(t, existing)
		assert.Equal(t, created.ID, existing.ID)
		existing.HeatSource = "AC0066"
		return existing, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "AC0066", merged.HeatSource)

	records, err := d.GetNightRecords(ctx, testKey.Night())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AC0066", records[0].HeatSource)
	assert.Equal(t, "Gate A", records[0].Location)
	assert.True(t, records[0].CreatedAt.Equal(at))
}

func TestUpsertNightRecord_MergeErrorLeavesStoreUntouched(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.UpsertNightRecord(ctx, testKey, func(*db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
		return nil, db.NewValidationError("in_time", "is required for a new record")
	})
	require.Error(t, err)
	assert.True(t, db.IsValidation(err))

	records, err := d.GetNightRecords(ctx, testKey.Night())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpsertNightRecord_RejectsIdentityChange(t *testing.T) {
	d := setupTestDB(t)
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	createRecord(t, d, testKey, at)

	_, err := d.UpsertNightRecord(context.Background(), testKey, func(existing *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
		existing.ID = "other"
		return existing, nil
	})
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestUpdateNightRecord(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	rec := createRecord(t, d, testKey, at)

	markedIn := at.Add(15 * time.Minute)
	updated, err := d.UpdateNightRecord(ctx, rec.ID, func(r *db.AircraftNightRecord) error {
		r.MarkedInAt = &markedIn
		r.Drained = true
		r.PurgedAt = &markedIn
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Drained)

	got, err := d.GetNightRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MarkedInAt)
	assert.True(t, got.MarkedInAt.Equal(markedIn))
	assert.True(t, got.Drained)

	_, err = d.UpdateNightRecord(ctx, "missing", func(*db.AircraftNightRecord) error { return nil })
	assert.ErrorIs(t, err, db.ErrNotFound)

	mutateErr := errors.New("refused")
	_, err = d.UpdateNightRecord(ctx, rec.ID, func(*db.AircraftNightRecord) error { return mutateErr })
	assert.ErrorIs(t, err, mutateErr)

	_, err = d.UpdateNightRecord(ctx, rec.ID, func(r *db.AircraftNightRecord) error {
		r.NightDate = "2026-01-15"
		return nil
	})
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestDeleteNightRecord(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	rec := createRecord(t, d, testKey, time.Now())

	require.NoError(t, d.DeleteNightRecord(ctx, rec.ID))
	assert.ErrorIs(t, d.DeleteNightRecord(ctx, rec.ID), db.ErrNotFound)

	_, err := d.GetNightRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// The key is free again
	createRecord(t, d, testKey, time.Now())
}

func TestTempLogs_OrderedBySeqOnTies(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	createRecord(t, d, testKey, at)

	for _, temp := range []float64{71, 72, 73} {
		log := &db.TemperatureLog{
			ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
			TempF: temp, RecordedAt: at, RecordedBy: "crew@example.com",
		}
		require.NoError(t, d.InsertTempLog(ctx, log))
		assert.NotZero(t, log.Seq)
	}
	early := &db.TemperatureLog{
		ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
		TempF: 60, RecordedAt: at.Add(-time.Minute),
	}
	require.NoError(t, d.InsertTempLog(ctx, early))

	logs, err := d.GetTempLogs(ctx, testKey.Night())
	require.NoError(t, err)
	require.Len(t, logs, 4)
	var temps []float64
	for _, l := range logs {
		temps = append(temps, l.TempF)
	}
	assert.Equal(t, []float64{60, 71, 72, 73}, temps)

	latest := db.LatestTempLog(logs, "N12345")
	require.NotNil(t, latest)
	assert.Equal(t, 73.0, latest.TempF)
}

func TestDispatchAircraft(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)
	createRecord(t, d, testKey, at)
	other := db.NightKey{Station: "OMA", NightDate: "2026-01-14", TailNumber: "N55555"}
	createRecord(t, d, other, at)

	for i, temp := range []float64{70, 92} {
		require.NoError(t, d.InsertTempLog(ctx, &db.TemperatureLog{
			ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
			TempF: temp, RecordedAt: at.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, d.InsertTempLog(ctx, &db.TemperatureLog{
		ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N55555",
		TempF: 71, RecordedAt: at,
	}))
	require.NoError(t, d.InsertNote(ctx, &db.Note{
		ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
		Text: "Heater cart swapped", CreatedAt: at,
	}))

	archivedAt := at.Add(3 * time.Hour)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	results := make([]*db.DispatchResult, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.DispatchAircraft(ctx, testKey, archivedAt)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, db.ErrConflict)
			continue
		}
		winners++
		assert.Equal(t, 2, results[i].LogCount)
		assert.Equal(t, 1, results[i].NoteCount)
		assert.True(t, results[i].ArchivedAt.Equal(archivedAt))
	}
	assert.Equal(t, 1, winners)

	records, err := d.GetNightRecords(ctx, testKey.Night())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "N55555", records[0].TailNumber)

	active, err := d.GetTempLogs(ctx, testKey.Night())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "N55555", active[0].TailNumber)

	notes, err := d.GetNotes(ctx, testKey.Night())
	require.NoError(t, err)
	assert.Empty(t, notes)

	q := db.ArchiveQuery{Station: "OMA", StartDate: "2026-01-14", EndDate: "2026-01-14"}
	archived, err := d.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "N12345", archived[0].TailNumber)
	assert.True(t, archived[0].ArchivedAt.Equal(archivedAt))

	logs, err := d.GetArchivedTempLogs(ctx, q)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 70.0, logs[0].TempF)
	assert.Equal(t, 92.0, logs[1].TempF)

	archivedNotes, err := d.GetArchivedNotes(ctx, q)
	require.NoError(t, err)
	require.Len(t, archivedNotes, 1)
	assert.Equal(t, "Heater cart swapped", archivedNotes[0].Text)
}

func TestArchiveQueries_RangeAndTail(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 10, 4, 0, 0, 0, time.UTC)

	for _, nightDate := range []string{"2026-01-09", "2026-01-12", "2026-01-20"} {
		for _, tail := range []string{"N1", "N2"} {
			key := db.NightKey{Station: "OMA", NightDate: nightDate, TailNumber: tail}
			createRecord(t, d, key, at)
			_, err := d.DispatchAircraft(ctx, key, at)
			require.NoError(t, err)
		}
	}

	q := db.ArchiveQuery{Station: "OMA", StartDate: "2026-01-09", EndDate: "2026-01-12"}
	records, err := d.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "2026-01-09", records[0].NightDate)
	assert.Equal(t, "N1", records[0].TailNumber)

	q.TailNumber = "N2"
	records, err = d.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	q.Station = "DSM"
	records, err = d.GetArchivedNightRecords(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.GetNightRecords(context.Background(), testKey.Night())
	assert.ErrorIs(t, err, db.ErrBackendUnavailable)
}

func TestInsertsRequireActiveRecord(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC)

	log := func() *db.TemperatureLog {
		return &db.TemperatureLog{
			ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
			TempF: 95, RecordedAt: at,
		}
	}
	note := &db.Note{
		ID: uuid.NewString(), Station: "OMA", NightDate: "2026-01-14", TailNumber: "N12345",
		Text: "Heater cart swapped", CreatedAt: at,
	}

	assert.ErrorIs(t, d.InsertTempLog(ctx, log()), db.ErrNotFound)
	assert.ErrorIs(t, d.InsertNote(ctx, note), db.ErrNotFound)

	createRecord(t, d, testKey, at)
	require.NoError(t, d.InsertTempLog(ctx, log()))
	_, err := d.DispatchAircraft(ctx, testKey, at.Add(time.Hour))
	require.NoError(t, err)

	assert.ErrorIs(t, d.InsertTempLog(ctx, log()), db.ErrNotFound)
	assert.ErrorIs(t, d.InsertNote(ctx, note), db.ErrNotFound)

	logs, err := d.GetTempLogs(ctx, testKey.Night())
	require.NoError(t, err)
	assert.Empty(t, logs)
	notes, err := d.GetNotes(ctx, testKey.Night())
	require.NoError(t, err)
	assert.Empty(t, notes)
}
