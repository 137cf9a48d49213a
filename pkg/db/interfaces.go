package db

import (
	"context"
	"time"
)

// MergeFunc builds the record to store for an upsert. existing is nil when no
// record with the key exists yet. It runs while the store holds the key.
type MergeFunc func(existing *AircraftNightRecord) (*AircraftNightRecord, error)

// MutateFunc edits a record in place while the store holds it
type MutateFunc func(rec *AircraftNightRecord) error

// NightRecordStore defines the operations over tonight's active aircraft records
type NightRecordStore interface {
	GetNightRecords(ctx context.Context, night Night) ([]AircraftNightRecord, error)
	GetNightRecord(ctx context.Context, id string) (*AircraftNightRecord, error)
	UpsertNightRecord(ctx context.Context, key NightKey, merge MergeFunc) (*AircraftNightRecord, error)
	UpdateNightRecord(ctx context.Context, id string, mutate MutateFunc) (*AircraftNightRecord, error)
	DeleteNightRecord(ctx context.Context, id string) error
}

// TempLogStore defines the append/read operations over active temperature logs.
// Reads are ordered by recorded_at then seq, ascending.
type TempLogStore interface {
	InsertTempLog(ctx context.Context, log *TemperatureLog) error
	GetTempLogs(ctx context.Context, night Night) ([]TemperatureLog, error)
}

// NoteStore defines the append/read operations over active notes
type NoteStore interface {
	InsertNote(ctx context.Context, note *Note) error
	GetNotes(ctx context.Context, night Night) ([]Note, error)
}

// Dispatcher moves a tail's record, logs and notes into the archive as one unit.
// It returns ErrConflict when no active record exists for the key.
type Dispatcher interface {
	DispatchAircraft(ctx context.Context, key NightKey, archivedAt time.Time) (*DispatchResult, error)
}

// ArchiveStore defines date-range reads over archived rows
type ArchiveStore interface {
	GetArchivedNightRecords(ctx context.Context, q ArchiveQuery) ([]ArchivedAircraftNightRecord, error)
	GetArchivedTempLogs(ctx context.Context, q ArchiveQuery) ([]ArchivedTemperatureLog, error)
	GetArchivedNotes(ctx context.Context, q ArchiveQuery) ([]ArchivedNote, error)
}

// Database defines the interface for all database operations.
// MemoryDB, postgres.DB and sqlite.DB implement this interface.
type Database interface {
	NightRecordStore
	TempLogStore
	NoteStore
	Dispatcher
	ArchiveStore
	Close() error
}
