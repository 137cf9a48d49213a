package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/core/countdown"
	"github.com/jakechorley/tail-temps/pkg/core/report"
	"github.com/jakechorley/tail-temps/pkg/core/status"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// DashboardStore is the store surface the dashboard reads from
type DashboardStore interface {
	GetNightRecords(ctx context.Context, night db.Night) ([]db.AircraftNightRecord, error)
	GetTempLogs(ctx context.Context, night db.Night) ([]db.TemperatureLog, error)
	GetNotes(ctx context.Context, night db.Night) ([]db.Note, error)
}

// OutsideTempSource supplies the current outside-air temperature in °F
type OutsideTempSource interface {
	CurrentTempF(ctx context.Context) (float64, error)
}

// DashboardRow is one active aircraft with its readings
type DashboardRow struct {
	Record  db.AircraftNightRecord
	Latest  *db.TemperatureLog
	Status  status.Status
	History []db.TemperatureLog
	Notes   []db.Note
	Trend   *report.Trend
	Due     countdown.Due
}

// Dashboard is one fetched snapshot of tonight. Rows hold only the
// filtered aircraft; Counts cover all of them.
type Dashboard struct {
	Night          db.Night
	FetchedAt      time.Time
	OutsideTempF   *float64
	OutsideTempErr string
	Filter         []status.Key
	Rows           []DashboardRow
	Counts         map[status.Key]int
	Total          int
}

// BuildDashboard fetches tonight's records, logs and notes and derives each
// row's status and countdown. An outside-temperature failure is reported
// on the snapshot and the countdown falls back to the default interval.
func BuildDashboard(
	ctx context.Context,
	store DashboardStore,
	weather OutsideTempSource,
	shift Shift,
	filter []status.Key,
	logger *zap.Logger,
) (*Dashboard, error) {
	n := shift.Night()

	records, err := store.GetNightRecords(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get night records: %w", err)
	}
	logs, err := store.GetTempLogs(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get temperature logs: %w", err)
	}
	notes, err := store.GetNotes(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}

	d := &Dashboard{
		Night:     n,
		FetchedAt: shift.Now(),
		Filter:    filter,
		Counts:    make(map[status.Key]int),
	}

	if weather != nil {
		temp, err := weather.CurrentTempF(ctx)
		if err != nil {
			d.OutsideTempErr = err.Error()
			logger.Warn("Outside temperature unavailable", zap.Error(err))
		} else {
			d.OutsideTempF = &temp
		}
	}

	logsByTail := db.GroupTempLogs(logs)
	notesByTail := make(map[string][]db.Note)
	for _, note := range notes {
		notesByTail[note.TailNumber] = append(notesByTail[note.TailNumber], note)
	}

	for _, rec := range records {
		history := logsByTail[rec.TailNumber]
		latest := db.LatestTempLog(history, rec.TailNumber)

		var latestTemp *float64
		var latestAt *time.Time
		if latest != nil {
			latestTemp = &latest.TempF
			latestAt = &latest.RecordedAt
		}

		row := DashboardRow{
			Record:  rec,
			Latest:  latest,
			Status:  status.Classify(latestTemp),
			History: history,
			Notes:   notesByTail[rec.TailNumber],
			Trend:   report.ComputeTrend(report.ReadingsFromLogs(history)),
			Due:     countdown.NextCheckDue(countdown.Baseline(rec.CreatedAt, latestAt), d.OutsideTempF, d.FetchedAt),
		}

		d.Total++
		d.Counts[row.Status.Key]++
		if len(filter) == 0 || slices.Contains(filter, row.Status.Key) {
			d.Rows = append(d.Rows, row)
		}
	}

	logger.Debug("Dashboard built",
		zap.String("night_date", n.NightDate),
		zap.Int("aircraft", d.Total),
		zap.Int("shown", len(d.Rows)))

	return d, nil
}

// Recompute returns a copy of the snapshot with countdowns derived for now.
// The snapshot itself is never modified.
func Recompute(d *Dashboard, now time.Time) *Dashboard {
	out := *d
	out.Rows = make([]DashboardRow, len(d.Rows))
	for i, row := range d.Rows {
		var latestAt *time.Time
		if row.Latest != nil {
			latestAt = &row.Latest.RecordedAt
		}
		row.Due = countdown.NextCheckDue(countdown.Baseline(row.Record.CreatedAt, latestAt), d.OutsideTempF, now)
		out.Rows[i] = row
	}
	return &out
}

// ParseFilter turns status keys into a filter; an unknown key is a ValidationError
func ParseFilter(keys []string) ([]status.Key, error) {
	var filter []status.Key
	for _, k := range keys {
		key, ok := status.ParseKey(k)
		if !ok {
			return nil, db.NewValidationError("filter", "unknown status %q", k)
		}
		if !slices.Contains(filter, key) {
			filter = append(filter, key)
		}
	}
	return filter, nil
}
