// Package night resolves which operational night a moment belongs to.
package night

import (
	"fmt"
	"time"
)

// Policy selects how a moment maps to a night date
type Policy string

const (
	// PlainCalendar uses the station-local calendar date
	PlainCalendar Policy = "calendar"
	// Rollover keeps the previous date active until the rollover hour
	Rollover Policy = "rollover"
)

// DefaultRolloverHour is the local hour at which a new night begins under Rollover
const DefaultRolloverHour = 12

// DateLayout is the night_date format
const DateLayout = "2006-01-02"

// TimestampLayout is a local-offset timestamp with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000-07:00"

// Resolver maps instants to station-local night dates and timestamps
type Resolver struct {
	loc          *time.Location
	policy       Policy
	rolloverHour int
}

// NewResolver creates a Resolver for a station time zone
func NewResolver(loc *time.Location, policy Policy, rolloverHour int) (*Resolver, error) {
	if loc == nil {
		return nil, fmt.Errorf("location is required")
	}
	switch policy {
	case PlainCalendar, Rollover:
	default:
		return nil, fmt.Errorf("unknown night policy %q", policy)
	}
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, fmt.Errorf("rollover hour must be between 0 and 23, got %d", rolloverHour)
	}
	return &Resolver{loc: loc, policy: policy, rolloverHour: rolloverHour}, nil
}

// Location returns the station time zone
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Policy returns the active policy
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Local converts t to station time
func (r *Resolver) Local(t time.Time) time.Time {
	return t.In(r.loc)
}

// NightDate returns the night_date that now belongs to
func (r *Resolver) NightDate(now time.Time) string {
	local := now.In(r.loc)
	if r.policy == Rollover && local.Hour() < r.rolloverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(DateLayout)
}

// LocalTimestamp formats t in station time with an explicit UTC offset
func (r *Resolver) LocalTimestamp(t time.Time) string {
	return t.In(r.loc).Format(TimestampLayout)
}

// ParseTimestamp parses a LocalTimestamp string back into station time
func (r *Resolver) ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	return t.In(r.loc), nil
}

// ParseDate validates a night_date string
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}
