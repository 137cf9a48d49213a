package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/core/night"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// fakeClock is a settable time source for Shift.Clock
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventsclient.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev eventsclient.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

// newTestShift starts the clock at 22:00 on 14 Jan 2026, station time
func newTestShift(t *testing.T) (Shift, *fakeClock) {
	t.Helper()
	loc := chicago(t)
	resolver, err := night.NewResolver(loc, night.Rollover, night.DefaultRolloverHour)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 1, 14, 22, 0, 0, 0, loc)}
	return Shift{
		Station:  "OMA",
		Resolver: resolver,
		Actor:    "crew@example.com",
		Clock:    clock.Now,
	}, clock
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func TestShift_NightSpansMidnight(t *testing.T) {
	shift, clock := newTestShift(t)
	assert.Equal(t, db.Night{Station: "OMA", NightDate: "2026-01-14"}, shift.Night())

	clock.Advance(4 * time.Hour) // 02:00 on the 15th
	assert.Equal(t, "2026-01-14", shift.Night().NightDate)

	clock.Advance(10 * time.Hour) // 12:00 on the 15th
	assert.Equal(t, "2026-01-15", shift.Night().NightDate)
}

func TestShift_NowIsStationLocal(t *testing.T) {
	shift, _ := newTestShift(t)
	_, offset := shift.Now().Zone()
	assert.Equal(t, -6*60*60, offset)
}

func TestAuthorizer(t *testing.T) {
	open := NewAuthorizer(nil)
	assert.True(t, open.CanMutate("anyone"))

	guard := NewAuthorizer([]string{" Crew@Example.com ", ""})
	assert.True(t, guard.CanMutate("crew@example.com"))
	assert.True(t, guard.CanMutate("CREW@example.com"))
	assert.False(t, guard.CanMutate("visitor@example.com"))
	assert.False(t, guard.CanMutate(""))
}

func TestShift_GuardRejectsMutations(t *testing.T) {
	ctx := context.Background()
	shift, _ := newTestShift(t)
	shift.Guard = NewAuthorizer([]string{"lead@example.com"})
	store := db.NewMemoryDB()

	_, err := CreateOrUpdate(ctx, store, shift, DefaultCatalog(), PrepInput{TailNumber: "N1", InTime: strPtr("21:00")}, zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotAuthorized)

	_, err = LogTemperature(ctx, store, nil, shift, "N1", 70, zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotAuthorized)

	_, err = Dispatch(ctx, store, nil, shift, "N1", zap.NewNop())
	assert.ErrorIs(t, err, db.ErrNotAuthorized)

	// Reads are not guarded
	records, err := ListNight(ctx, store, shift, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeTail(t *testing.T) {
	assert.Equal(t, "N12345", NormalizeTail("  n12345 "))
	assert.NoError(t, validateTail("N12345"))
	assert.True(t, db.IsValidation(validateTail("")))
	assert.True(t, db.IsValidation(validateTail("N-12345")))
	assert.True(t, db.IsValidation(validateTail("N1234567890")))
}
