// Package countdown computes when each aircraft is next due a temperature check.
package countdown

import "time"

const (
	// ColdWeatherThresholdF is the outside temperature below which checks tighten
	ColdWeatherThresholdF = 10.0

	ColdWeatherInterval = 30 * time.Minute
	DefaultInterval     = 60 * time.Minute
)

// Due is the next-check state for one aircraft
type Due struct {
	IntervalMinutes int
	Remaining       time.Duration
	DueAt           time.Time
}

// RemainingMs returns the remaining time in whole milliseconds
func (d Due) RemainingMs() int64 {
	return d.Remaining.Milliseconds()
}

// Overdue reports whether the check interval has elapsed
func (d Due) Overdue() bool {
	return d.Remaining == 0
}

// Interval returns the check interval for the outside temperature; unknown means default
func Interval(outsideTempF *float64) time.Duration {
	if outsideTempF != nil && *outsideTempF < ColdWeatherThresholdF {
		return ColdWeatherInterval
	}
	return DefaultInterval
}

// NextCheckDue computes the interval and time remaining since baseline. It never
// returns a negative remainder. A baseline ahead of now leaves more than one
// interval remaining.
func NextCheckDue(baseline time.Time, outsideTempF *float64, now time.Time) Due {
	interval := Interval(outsideTempF)
	dueAt := baseline.Add(interval)
	remaining := dueAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Due{
		IntervalMinutes: int(interval / time.Minute),
		Remaining:       remaining,
		DueAt:           dueAt,
	}
}

// Baseline picks the latest log time, or the record creation time when there are no logs
func Baseline(createdAt time.Time, latestLogAt *time.Time) time.Time {
	if latestLogAt != nil {
		return *latestLogAt
	}
	return createdAt
}
