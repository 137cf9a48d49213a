package report

import (
	"math"
	"sort"
	"time"

	"github.com/jakechorley/tail-temps/pkg/db"
)

// Reading is one temperature sample for trend statistics
type Reading struct {
	TempF float64
	At    time.Time
}

// Trend summarises a chronological series of readings for one tail
type Trend struct {
	Count         int
	First         float64
	Latest        float64
	Average       float64
	Min           float64
	Max           float64
	Start         time.Time
	End           time.Time
	DurationHours float64
	// RatePerHour is nil with fewer than two readings or a zero-length window
	RatePerHour *float64
}

// ComputeTrend returns nil when there are no readings. Readings are sorted by
// time (stable) before the statistics are taken.
func ComputeTrend(readings []Reading) *Trend {
	if len(readings) == 0 {
		return nil
	}

	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	first := sorted[0]
	last := sorted[len(sorted)-1]
	tr := &Trend{
		Count:  len(sorted),
		First:  first.TempF,
		Latest: last.TempF,
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Start:  first.At,
		End:    last.At,
	}

	sum := 0.0
	for _, r := range sorted {
		sum += r.TempF
		tr.Min = math.Min(tr.Min, r.TempF)
		tr.Max = math.Max(tr.Max, r.TempF)
	}
	tr.Average = sum / float64(len(sorted))
	tr.DurationHours = last.At.Sub(first.At).Hours()

	if len(sorted) >= 2 && tr.DurationHours > 0 {
		rate := (tr.Latest - tr.First) / tr.DurationHours
		tr.RatePerHour = &rate
	}

	return tr
}

// ReadingsFromLogs converts active logs into readings
func ReadingsFromLogs(logs []db.TemperatureLog) []Reading {
	readings := make([]Reading, len(logs))
	for i, l := range logs {
		readings[i] = Reading{TempF: l.TempF, At: l.RecordedAt}
	}
	return readings
}

// ReadingsFromArchivedLogs converts archived logs into readings
func ReadingsFromArchivedLogs(logs []db.ArchivedTemperatureLog) []Reading {
	readings := make([]Reading, len(logs))
	for i, l := range logs {
		readings[i] = Reading{TempF: l.TempF, At: l.RecordedAt}
	}
	return readings
}
