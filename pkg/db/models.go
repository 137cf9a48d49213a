package db

import "time"

// NightKey identifies one tail number on one operational night at a station.
type NightKey struct {
	Station    string
	NightDate  string
	TailNumber string
}

// Night returns the (station, night_date) scope of the key
func (k NightKey) Night() Night {
	return Night{Station: k.Station, NightDate: k.NightDate}
}

// Night is the (station, night_date) pair that scopes all active records
type Night struct {
	Station   string
	NightDate string
}

// Key returns the identity key for a tail number within this night
func (n Night) Key(tailNumber string) NightKey {
	return NightKey{Station: n.Station, NightDate: n.NightDate, TailNumber: tailNumber}
}

// AircraftNightRecord is the mutable record of one aircraft for one night.
// PurgedAt is non-nil exactly when Drained is true; MarkedInAt is set once.
type AircraftNightRecord struct {
	ID         string     `json:"id"`
	Station    string     `json:"station"`
	NightDate  string     `json:"night_date"`
	TailNumber string     `json:"tail_number"`
	InTime     string     `json:"in_time"`
	Location   string     `json:"location"`
	HeatSource string     `json:"heat_source"`
	HeaterMode string     `json:"heater_mode"`
	MarkedInAt *time.Time `json:"marked_in_at"`
	Drained    bool       `json:"drained"`
	PurgedAt   *time.Time `json:"purged_at"`
	RecordedBy string     `json:"recorded_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Key returns the record's identity key
func (r AircraftNightRecord) Key() NightKey {
	return NightKey{Station: r.Station, NightDate: r.NightDate, TailNumber: r.TailNumber}
}

// TemperatureLog is an append-only reading. Seq is assigned by the store on
// insert and breaks ties between logs with the same RecordedAt.
type TemperatureLog struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Station    string    `json:"station"`
	NightDate  string    `json:"night_date"`
	TailNumber string    `json:"tail_number"`
	TempF      float64   `json:"temp_f"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by"`
}

// Key returns the key of the record the log belongs to
func (l TemperatureLog) Key() NightKey {
	return NightKey{Station: l.Station, NightDate: l.NightDate, TailNumber: l.TailNumber}
}

// Note is an append-only free-text annotation
type Note struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Station    string    `json:"station"`
	NightDate  string    `json:"night_date"`
	TailNumber string    `json:"tail_number"`
	Text       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	RecordedBy string    `json:"recorded_by"`
}

// Key returns the key of the record the note belongs to
func (n Note) Key() NightKey {
	return NightKey{Station: n.Station, NightDate: n.NightDate, TailNumber: n.TailNumber}
}

// ArchivedAircraftNightRecord mirrors an AircraftNightRecord after dispatch
type ArchivedAircraftNightRecord struct {
	AircraftNightRecord
	ArchivedAt time.Time `json:"archived_at"`
}

// ArchivedTemperatureLog mirrors a TemperatureLog after dispatch
type ArchivedTemperatureLog struct {
	TemperatureLog
	ArchivedAt time.Time `json:"archived_at"`
}

// ArchivedNote mirrors a Note after dispatch
type ArchivedNote struct {
	Note
	ArchivedAt time.Time `json:"archived_at"`
}

// ArchiveQuery selects archived rows by station and inclusive night_date range.
// An empty TailNumber selects every tail.
type ArchiveQuery struct {
	Station    string
	StartDate  string
	EndDate    string
	TailNumber string
}

// Matches reports whether an archived row with the given key falls in the query
func (q ArchiveQuery) Matches(k NightKey) bool {
	if k.Station != q.Station {
		return false
	}
	if k.NightDate < q.StartDate || k.NightDate > q.EndDate {
		return false
	}
	return q.TailNumber == "" || k.TailNumber == q.TailNumber
}

// DispatchResult reports what a dispatch moved into the archive
type DispatchResult struct {
	Record     ArchivedAircraftNightRecord
	LogCount   int
	NoteCount  int
	ArchivedAt time.Time
}
