package report

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/tail-temps/pkg/core/night"
)

// PreviousPeriod returns the last complete reporting window before now as
// inclusive night dates. Period boundaries are the occurrences of rule at
// local midnight in loc; the window runs from one occurrence up to the day
// before the next.
func PreviousPeriod(rule string, now time.Time, loc *time.Location) (string, string, error) {
	opt, err := rrule.StrToROptionInLocation(rule, loc)
	if err != nil {
		return "", "", fmt.Errorf("invalid report period rrule: %w", err)
	}

	local := now.In(loc)
	anchor := time.Date(local.Year()-1, local.Month(), local.Day(), 0, 0, 0, 0, loc)
	opt.Dtstart = anchor

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return "", "", fmt.Errorf("failed to build report period rule: %w", err)
	}

	periodEnd := r.Before(local, false)
	if periodEnd.IsZero() {
		return "", "", fmt.Errorf("report period rule has no occurrence before %s", local.Format(night.DateLayout))
	}
	periodStart := r.Before(periodEnd, false)
	if periodStart.IsZero() {
		return "", "", fmt.Errorf("report period rule has no occurrence before %s", periodEnd.Format(night.DateLayout))
	}

	start := periodStart.In(loc).Format(night.DateLayout)
	end := periodEnd.In(loc).AddDate(0, 0, -1).Format(night.DateLayout)
	return start, end, nil
}
