package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/db"
)

func prepTail(t *testing.T, store *db.MemoryDB, shift Shift, tail string) *db.AircraftNightRecord {
	t.Helper()
	rec, err := CreateOrUpdate(context.Background(), store, shift, DefaultCatalog(), PrepInput{
		TailNumber: tail,
		InTime:     strPtr("21:00"),
		Location:   strPtr("Gate A"),
		HeatSource: strPtr("HG014"),
	}, zap.NewNop())
	require.NoError(t, err)
	return rec
}

func TestMarkIn_Idempotent(t *testing.T) {
	ctx := context.Background()
	shift, clock := newTestShift(t)
	store := db.NewMemoryDB()
	rec := prepTail(t, store, shift, "N12345")

	first, err := MarkIn(ctx, store, shift, rec.ID, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, first.MarkedInAt)

	clock.Advance(30 * time.Minute)
	shift.Actor = "someone.else@example.com"

	second, err := MarkIn(ctx, store, shift, rec.ID, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, second.MarkedInAt)
	assert.True(t, second.MarkedInAt.Equal(*first.MarkedInAt))
	assert.Equal(t, "crew@example.com", second.RecordedBy)
}

func TestMarkIn_NotFound(t *testing.T) {
	shift, _ := newTestShift(t)

	_, err := MarkIn(context.Background(), db.NewMemoryDB(), shift, "missing", zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSetHeatSourceAndMode(t *testing.T) {
	ctx := context.Background()
	shift, _ := newTestShift(t)
	store := db.NewMemoryDB()
	rec := prepTail(t, store, shift, "N12345")
	shift.Actor = "lead@example.com"

	updated, err := SetHeatSource(ctx, store, shift, DefaultCatalog(), rec.ID, "GPU Only", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "GPU Only", updated.HeatSource)
	assert.Equal(t, "lead@example.com", updated.RecordedBy)

	updated, err = SetHeaterMode(ctx, store, shift, DefaultCatalog(), rec.ID, "high", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "high", updated.HeaterMode)
	assert.Equal(t, "GPU Only", updated.HeatSource)

	_, err = SetHeatSource(ctx, store, shift, DefaultCatalog(), "missing", "HG014", zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = SetHeaterMode(ctx, store, shift, DefaultCatalog(), rec.ID, "max", zap.NewNop())
	assert.True(t, db.IsValidation(err))
}

func TestTogglePurge_RoundTrip(t *testing.T) {
	ctx := context.Background()
	shift, clock := newTestShift(t)
	store := db.NewMemoryDB()
	rec := prepTail(t, store, shift, "N12345")

	on, err := TogglePurge(ctx, store, shift, rec.ID, true, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, on.Drained)
	require.NotNil(t, on.PurgedAt)
	firstPurge := *on.PurgedAt

	off, err := TogglePurge(ctx, store, shift, rec.ID, false, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, off.Drained)
	assert.Nil(t, off.PurgedAt)

	clock.Advance(time.Second)
	again, err := TogglePurge(ctx, store, shift, rec.ID, true, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, again.PurgedAt)
	assert.True(t, again.PurgedAt.After(firstPurge))
}

func TestTogglePurge_OnAgainRestamps(t *testing.T) {
	ctx := context.Background()
	shift, clock := newTestShift(t)
	store := db.NewMemoryDB()
	rec := prepTail(t, store, shift, "N12345")

	first, err := TogglePurge(ctx, store, shift, rec.ID, true, zap.NewNop())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := TogglePurge(ctx, store, shift, rec.ID, true, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, second.PurgedAt.After(*first.PurgedAt))
}

func TestTogglePurge_NotFound(t *testing.T) {
	shift, _ := newTestShift(t)

	_, err := TogglePurge(context.Background(), db.NewMemoryDB(), shift, "missing", true, zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotFound)
}
