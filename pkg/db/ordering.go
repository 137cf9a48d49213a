package db

import "sort"

// SortTempLogs orders logs by RecordedAt ascending, breaking ties by Seq
func SortTempLogs(logs []TemperatureLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return tempLogBefore(logs[i], logs[j])
	})
}

// SortNotes orders notes by CreatedAt ascending, breaking ties by Seq
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].Seq < notes[j].Seq
		}
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
}

// LatestTempLog returns the latest log for a tail, or nil if it has none
func LatestTempLog(logs []TemperatureLog, tailNumber string) *TemperatureLog {
	var latest *TemperatureLog
	for i := range logs {
		if logs[i].TailNumber != tailNumber {
			continue
		}
		if latest == nil || tempLogBefore(*latest, logs[i]) {
			latest = &logs[i]
		}
	}
	return latest
}

// GroupTempLogs groups logs by tail number, preserving their order
func GroupTempLogs(logs []TemperatureLog) map[string][]TemperatureLog {
	grouped := make(map[string][]TemperatureLog)
	for _, l := range logs {
		grouped[l.TailNumber] = append(grouped[l.TailNumber], l)
	}
	return grouped
}

func tempLogBefore(a, b TemperatureLog) bool {
	if a.RecordedAt.Equal(b.RecordedAt) {
		return a.Seq < b.Seq
	}
	return a.RecordedAt.Before(b.RecordedAt)
}
