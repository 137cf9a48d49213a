package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryDB is an in-process Database. A single mutex serialises every
// mutation, which makes dispatch a single-writer critical section.
type MemoryDB struct {
	mu sync.Mutex

	records map[string]*AircraftNightRecord // by ID
	byKey   map[NightKey]string
	logs    []TemperatureLog
	notes   []Note
	seq     int64

	archivedRecords []ArchivedAircraftNightRecord
	archivedLogs    []ArchivedTemperatureLog
	archivedNotes   []ArchivedNote
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		records: make(map[string]*AircraftNightRecord),
		byKey:   make(map[NightKey]string),
	}
}

// Close is a no-op
func (m *MemoryDB) Close() error {
	return nil
}

// GetNightRecords returns the night's records ordered by creation time
func (m *MemoryDB) GetNightRecords(ctx context.Context, night Night) ([]AircraftNightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []AircraftNightRecord
	for _, r := range m.records {
		if r.Station == night.Station && r.NightDate == night.NightDate {
			result = append(result, cloneRecord(*r))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].TailNumber < result[j].TailNumber
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// GetNightRecord returns one record by ID
func (m *MemoryDB) GetNightRecord(ctx context.Context, id string) (*AircraftNightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("night record %s: %w", id, ErrNotFound)
	}
	rec := cloneRecord(*r)
	return &rec, nil
}

// UpsertNightRecord merges into the record with the given key, or creates it
func (m *MemoryDB) UpsertNightRecord(ctx context.Context, key NightKey, merge MergeFunc) (*AircraftNightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *AircraftNightRecord
	if id, ok := m.byKey[key]; ok {
		rec := cloneRecord(*m.records[id])
		existing = &rec
	}

	merged, err := merge(existing)
	if err != nil {
		return nil, err
	}
	if merged.Key() != key {
		return nil, fmt.Errorf("merged record key %v does not match %v: %w", merged.Key(), key, ErrConflict)
	}
	if existing != nil && merged.ID != existing.ID {
		return nil, fmt.Errorf("merged record changed id for %s: %w", key.TailNumber, ErrConflict)
	}

	stored := cloneRecord(*merged)
	m.records[stored.ID] = &stored
	m.byKey[key] = stored.ID

	out := cloneRecord(stored)
	return &out, nil
}

// UpdateNightRecord applies mutate to the record with the given ID
func (m *MemoryDB) UpdateNightRecord(ctx context.Context, id string, mutate MutateFunc) (*AircraftNightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("night record %s: %w", id, ErrNotFound)
	}

	rec := cloneRecord(*r)
	if err := mutate(&rec); err != nil {
		return nil, err
	}
	if rec.ID != id || rec.Key() != r.Key() {
		return nil, fmt.Errorf("mutation changed identity of night record %s: %w", id, ErrConflict)
	}

	m.records[id] = &rec
	out := cloneRecord(rec)
	return &out, nil
}

// DeleteNightRecord removes an active record
func (m *MemoryDB) DeleteNightRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("night record %s: %w", id, ErrNotFound)
	}
	delete(m.byKey, r.Key())
	delete(m.records, id)
	return nil
}

// InsertTempLog appends a log and assigns its sequence number. The log's
// key must have an active record.
func (m *MemoryDB) InsertTempLog(ctx context.Context, log *TemperatureLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byKey[log.Key()]; !ok {
		return NoActiveRecord(log.Key())
	}

	m.seq++
	log.Seq = m.seq
	m.logs = append(m.logs, *log)
	return nil
}

// GetTempLogs returns the night's logs ordered by recorded_at
func (m *MemoryDB) GetTempLogs(ctx context.Context, night Night) ([]TemperatureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []TemperatureLog
	for _, l := range m.logs {
		if l.Station == night.Station && l.NightDate == night.NightDate {
			result = append(result, l)
		}
	}
	SortTempLogs(result)
	return result, nil
}

// InsertNote appends a note and assigns its sequence number. The note's key
// must have an active record.
func (m *MemoryDB) InsertNote(ctx context.Context, note *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byKey[note.Key()]; !ok {
		return NoActiveRecord(note.Key())
	}

	m.seq++
	note.Seq = m.seq
	m.notes = append(m.notes, *note)
	return nil
}

// GetNotes returns the night's notes ordered by created_at
func (m *MemoryDB) GetNotes(ctx context.Context, night Night) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Note
	for _, n := range m.notes {
		if n.Station == night.Station && n.NightDate == night.NightDate {
			result = append(result, n)
		}
	}
	SortNotes(result)
	return result, nil
}

// DispatchAircraft archives the record, logs and notes for key under the lock
func (m *MemoryDB) DispatchAircraft(ctx context.Context, key NightKey, archivedAt time.Time) (*DispatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byKey[key]
	if !ok {
		return nil, fmt.Errorf("no active record for %s on %s: %w", key.TailNumber, key.NightDate, ErrConflict)
	}

	archived := ArchivedAircraftNightRecord{AircraftNightRecord: cloneRecord(*m.records[id]), ArchivedAt: archivedAt}
	result := &DispatchResult{Record: archived, ArchivedAt: archivedAt}

	keptLogs := m.logs[:0:0]
	var movedLogs []ArchivedTemperatureLog
	for _, l := range m.logs {
		if l.Station == key.Station && l.NightDate == key.NightDate && l.TailNumber == key.TailNumber {
			movedLogs = append(movedLogs, ArchivedTemperatureLog{TemperatureLog: l, ArchivedAt: archivedAt})
			continue
		}
		keptLogs = append(keptLogs, l)
	}

	keptNotes := m.notes[:0:0]
	var movedNotes []ArchivedNote
	for _, n := range m.notes {
		if n.Station == key.Station && n.NightDate == key.NightDate && n.TailNumber == key.TailNumber {
			movedNotes = append(movedNotes, ArchivedNote{Note: n, ArchivedAt: archivedAt})
			continue
		}
		keptNotes = append(keptNotes, n)
	}

	// Nothing above can fail, so the swap below is all-or-nothing.
	m.archivedRecords = append(m.archivedRecords, archived)
	m.archivedLogs = append(m.archivedLogs, movedLogs...)
	m.archivedNotes = append(m.archivedNotes, movedNotes...)
	m.logs = keptLogs
	m.notes = keptNotes
	delete(m.records, id)
	delete(m.byKey, key)

	result.LogCount = len(movedLogs)
	result.NoteCount = len(movedNotes)
	return result, nil
}

// GetArchivedNightRecords returns archived records matching q ordered by night then tail
func (m *MemoryDB) GetArchivedNightRecords(ctx context.Context, q ArchiveQuery) ([]ArchivedAircraftNightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []ArchivedAircraftNightRecord
	for _, r := range m.archivedRecords {
		if q.Matches(r.Key()) {
			rec := r
			rec.AircraftNightRecord = cloneRecord(r.AircraftNightRecord)
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].NightDate == result[j].NightDate {
			return result[i].TailNumber < result[j].TailNumber
		}
		return result[i].NightDate < result[j].NightDate
	})
	return result, nil
}

// GetArchivedTempLogs returns archived logs matching q ordered by recorded_at
func (m *MemoryDB) GetArchivedTempLogs(ctx context.Context, q ArchiveQuery) ([]ArchivedTemperatureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []ArchivedTemperatureLog
	for _, l := range m.archivedLogs {
		if q.Matches(NightKey{Station: l.Station, NightDate: l.NightDate, TailNumber: l.TailNumber}) {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return tempLogBefore(result[i].TemperatureLog, result[j].TemperatureLog)
	})
	return result, nil
}

// GetArchivedNotes returns archived notes matching q ordered by created_at
func (m *MemoryDB) GetArchivedNotes(ctx context.Context, q ArchiveQuery) ([]ArchivedNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []ArchivedNote
	for _, n := range m.archivedNotes {
		if q.Matches(NightKey{Station: n.Station, NightDate: n.NightDate, TailNumber: n.TailNumber}) {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Seq < result[j].Seq
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func cloneRecord(r AircraftNightRecord) AircraftNightRecord {
	if r.MarkedInAt != nil {
		t := *r.MarkedInAt
		r.MarkedInAt = &t
	}
	if r.PurgedAt != nil {
		t := *r.PurgedAt
		r.PurgedAt = &t
	}
	return r
}
