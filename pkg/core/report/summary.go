// Package report aggregates archived night records into per-tail summaries.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/tail-temps/pkg/core/night"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// Placeholder is shown for text fields that have no value
const Placeholder = "—"

const (
	displayDateLayout     = "Jan 2, 2006"
	displayDateTimeLayout = "Jan 2, 2006 3:04 PM"
)

// TailSummary is one row of the archive report
type TailSummary struct {
	TailNumber   string
	DateLabel    string
	Nights       []string
	HeatSource   string
	AverageTemp  *float64
	RecordedBy   string
	Purged       bool
	PurgedStatus string
	Logs         []db.ArchivedTemperatureLog
}

// Totals are fleet-wide figures across a report
type Totals struct {
	AverageTemp *float64
	PurgedCount int
	TotalTails  int
}

// Summarize groups archived records and logs by tail number. Rows are ordered
// by tail number; tails with logs but no archived record are left out.
// Purge timestamps are rendered in loc.
func Summarize(tails []db.ArchivedAircraftNightRecord, logs []db.ArchivedTemperatureLog, loc *time.Location) []TailSummary {
	groupedTails := make(map[string][]db.ArchivedAircraftNightRecord)
	for _, t := range tails {
		groupedTails[t.TailNumber] = append(groupedTails[t.TailNumber], t)
	}

	groupedLogs := make(map[string][]db.ArchivedTemperatureLog)
	for _, l := range logs {
		groupedLogs[l.TailNumber] = append(groupedLogs[l.TailNumber], l)
	}

	tailNumbers := make([]string, 0, len(groupedTails))
	for tn := range groupedTails {
		tailNumbers = append(tailNumbers, tn)
	}
	sort.Strings(tailNumbers)

	summaries := make([]TailSummary, 0, len(tailNumbers))
	for _, tn := range tailNumbers {
		records := groupedTails[tn]
		tailLogs := groupedLogs[tn]
		latest := latestRecord(records)
		nights := distinctNights(records)

		heatSource := latest.HeatSource
		if heatSource == "" {
			heatSource = Placeholder
		}

		purged := isPurged(latest)
		summaries = append(summaries, TailSummary{
			TailNumber:   tn,
			DateLabel:    dateLabel(nights),
			Nights:       nights,
			HeatSource:   heatSource,
			AverageTemp:  averageTemp(tailLogs),
			RecordedBy:   findRecorder(tailLogs),
			Purged:       purged,
			PurgedStatus: purgedStatus(latest, loc),
			Logs:         tailLogs,
		})
	}

	return summaries
}

// ComputeTotals computes fleet totals. PurgedCount counts archived tail-nights.
func ComputeTotals(tails []db.ArchivedAircraftNightRecord, logs []db.ArchivedTemperatureLog, summaries []TailSummary) Totals {
	purged := 0
	for _, t := range tails {
		if isPurged(t) {
			purged++
		}
	}
	return Totals{
		AverageTemp: averageTemp(logs),
		PurgedCount: purged,
		TotalTails:  len(summaries),
	}
}

// TailOptions returns the distinct archived tail numbers, sorted
func TailOptions(tails []db.ArchivedAircraftNightRecord) []string {
	seen := make(map[string]bool)
	var options []string
	for _, t := range tails {
		if !seen[t.TailNumber] {
			seen[t.TailNumber] = true
			options = append(options, t.TailNumber)
		}
	}
	sort.Strings(options)
	return options
}

// FormatDateRange renders an inclusive night-date range for headings
func FormatDateRange(start, end string) string {
	if start == "" || end == "" {
		return Placeholder
	}
	if start == end {
		return formatDisplayDate(start)
	}
	return fmt.Sprintf("%s – %s", formatDisplayDate(start), formatDisplayDate(end))
}

// latestRecord picks the record with the greatest night date; the first one wins ties
func latestRecord(records []db.ArchivedAircraftNightRecord) db.ArchivedAircraftNightRecord {
	latest := records[0]
	for _, r := range records[1:] {
		if r.NightDate > latest.NightDate {
			latest = r
		}
	}
	return latest
}

func distinctNights(records []db.ArchivedAircraftNightRecord) []string {
	seen := make(map[string]bool)
	var nights []string
	for _, r := range records {
		if !seen[r.NightDate] {
			seen[r.NightDate] = true
			nights = append(nights, r.NightDate)
		}
	}
	sort.Strings(nights)
	return nights
}

func dateLabel(nights []string) string {
	switch len(nights) {
	case 0:
		return Placeholder
	case 1:
		return formatDisplayDate(nights[0])
	default:
		return fmt.Sprintf("%s – %s", formatDisplayDate(nights[0]), formatDisplayDate(nights[len(nights)-1]))
	}
}

func formatDisplayDate(date string) string {
	d, err := night.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format(displayDateLayout)
}

// averageTemp returns nil for an empty slice
func averageTemp(logs []db.ArchivedTemperatureLog) *float64 {
	if len(logs) == 0 {
		return nil
	}
	sum := 0.0
	for _, l := range logs {
		sum += l.TempF
	}
	avg := sum / float64(len(logs))
	return &avg
}

// findRecorder returns the first attribution in encounter order
func findRecorder(logs []db.ArchivedTemperatureLog) string {
	for _, l := range logs {
		if l.RecordedBy != "" {
			return l.RecordedBy
		}
	}
	return Placeholder
}

func isPurged(r db.ArchivedAircraftNightRecord) bool {
	return r.Drained || r.PurgedAt != nil
}

func purgedStatus(r db.ArchivedAircraftNightRecord, loc *time.Location) string {
	if !isPurged(r) {
		return "Not purged"
	}
	if r.PurgedAt == nil {
		return "Purged"
	}
	ts := *r.PurgedAt
	if loc != nil {
		ts = ts.In(loc)
	}
	return "Purged @ " + ts.Format(displayDateTimeLayout)
}
