package report

import (
	"sort"

	"github.com/jakechorley/tail-temps/pkg/core/status"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// NightDetail is the printable history of one tail on one archived night
type NightDetail struct {
	Record db.ArchivedAircraftNightRecord
	Status status.Status
	Trend  *Trend
	Logs   []db.ArchivedTemperatureLog
	Notes  []db.ArchivedNote
}

// Purged reports whether the aircraft was purged that night
func (d NightDetail) Purged() bool {
	return isPurged(d.Record)
}

// FleetSummary is the headline block of the printable report
type FleetSummary struct {
	TotalAircraft int
	PurgedCount   int
	NotPurged     int
	// AverageTemp is the mean of per-night averages; nil when no night has logs
	AverageTemp *float64
	Highest     *NightDetail
	FastestRise *NightDetail
}

// BuildNightDetails pairs each archived record with its own logs and notes,
// ordered by night date then tail number
func BuildNightDetails(tails []db.ArchivedAircraftNightRecord, logs []db.ArchivedTemperatureLog, notes []db.ArchivedNote) []NightDetail {
	logsByKey := make(map[db.NightKey][]db.ArchivedTemperatureLog)
	for _, l := range logs {
		k := db.NightKey{Station: l.Station, NightDate: l.NightDate, TailNumber: l.TailNumber}
		logsByKey[k] = append(logsByKey[k], l)
	}
	notesByKey := make(map[db.NightKey][]db.ArchivedNote)
	for _, n := range notes {
		k := db.NightKey{Station: n.Station, NightDate: n.NightDate, TailNumber: n.TailNumber}
		notesByKey[k] = append(notesByKey[k], n)
	}

	details := make([]NightDetail, 0, len(tails))
	for _, t := range tails {
		k := t.Key()
		tailLogs := logsByKey[k]
		sort.SliceStable(tailLogs, func(i, j int) bool {
			return tailLogs[i].RecordedAt.Before(tailLogs[j].RecordedAt)
		})

		trend := ComputeTrend(ReadingsFromArchivedLogs(tailLogs))
		st := status.NoData
		if trend != nil {
			st = status.ClassifyValue(trend.Latest)
		}

		details = append(details, NightDetail{
			Record: t,
			Status: st,
			Trend:  trend,
			Logs:   tailLogs,
			Notes:  notesByKey[k],
		})
	}

	sort.SliceStable(details, func(i, j int) bool {
		if details[i].Record.NightDate == details[j].Record.NightDate {
			return details[i].Record.TailNumber < details[j].Record.TailNumber
		}
		return details[i].Record.NightDate < details[j].Record.NightDate
	})
	return details
}

// SummarizeFleet computes the headline figures over night details
func SummarizeFleet(details []NightDetail) FleetSummary {
	fs := FleetSummary{TotalAircraft: len(details)}

	sum := 0.0
	withLogs := 0
	for i := range details {
		d := &details[i]
		if d.Purged() {
			fs.PurgedCount++
		}
		if d.Trend == nil {
			continue
		}
		sum += d.Trend.Average
		withLogs++

		if fs.Highest == nil || d.Trend.Latest > fs.Highest.Trend.Latest {
			fs.Highest = d
		}
		if d.Trend.RatePerHour != nil &&
			(fs.FastestRise == nil || *d.Trend.RatePerHour > *fs.FastestRise.Trend.RatePerHour) {
			fs.FastestRise = d
		}
	}
	fs.NotPurged = fs.TotalAircraft - fs.PurgedCount

	if withLogs > 0 {
		avg := sum / float64(withLogs)
		fs.AverageTemp = &avg
	}
	return fs
}
