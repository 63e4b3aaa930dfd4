// Package storage holds the record engine's state: the record collection,
// the column schema and the display settings.
//
// Each store keeps its state in memory and persists a whole blob into a
// [kvstore.Store] after every mutation. Loading never fails: an absent or
// unreadable blob falls back to the seed. A failing write is logged and the
// in-memory state stays authoritative.
package storage

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/maruel/ksid"

	"github.com/maruel/recordbook/internal/codec"
	"github.com/maruel/recordbook/internal/kvstore"
	"github.com/maruel/recordbook/internal/models"
)

// RecordsKey is the persistence key of the record collection.
const RecordsKey = "custom-system-records-v1"

// RecordObserver is notified after every transition of a RecordStore.
//
// Observers run synchronously while the store is locked. The snapshot is
// shared between observers and must not be modified; observers must not call
// back into the store.
type RecordObserver interface {
	OnRecordsChanged(records []models.Record)
}

// RecordStore owns the ordered record collection. Newest records come first.
type RecordStore struct {
	kv        kvstore.Store
	newID     func() string
	mu        sync.RWMutex
	records   []models.Record
	observers []RecordObserver
	lastBlob  string
}

// NewRecordStore loads the collection from kv, falling back to seed when
// nothing usable is stored. Seed records without an identity get one.
func NewRecordStore(kv kvstore.Store, seed []models.Record) *RecordStore {
	s := &RecordStore{kv: kv, newID: func() string { return ksid.NewID().String() }}
	if records, blob, ok := s.load(); ok {
		s.records = records
		s.lastBlob = blob
		return s
	}
	s.records = make([]models.Record, 0, len(seed))
	for _, r := range seed {
		r = r.Clone()
		if r.Fields == nil {
			r.Fields = map[string]any{}
		}
		if r.ID == "" {
			r.ID = s.uniqueID()
		}
		s.records = append(s.records, r)
	}
	return s
}

func (s *RecordStore) load() ([]models.Record, string, bool) {
	blob, ok, err := s.kv.Get(RecordsKey)
	if err != nil {
		slog.Warn("Failed to read records", "key", RecordsKey, "err", err)
		return nil, "", false
	}
	if !ok {
		return nil, "", false
	}
	records, err := codec.FromJSON([]byte(blob))
	if err != nil {
		slog.Warn("Ignoring corrupt records blob", "key", RecordsKey, "err", err)
		return nil, "", false
	}
	return records, blob, true
}

// AddObserver registers o for every future transition.
func (s *RecordStore) AddObserver(o RecordObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// All returns a copy of the collection.
func (s *RecordStore) All() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Get returns a copy of the record with the given identity.
func (s *RecordStore) Get(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.records[i].Clone(), true
	}
	return models.Record{}, false
}

// Len returns the number of records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Create prepends a record holding a copy of fields under a fresh identity.
// An "id" entry in fields is ignored.
func (s *RecordStore) Create(fields map[string]any) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := maps.Clone(fields)
	if f == nil {
		f = map[string]any{}
	}
	delete(f, "id")
	r := models.Record{ID: s.uniqueID(), Fields: f}
	s.records = slices.Insert(s.records, 0, r)
	s.commit()
	return r.Clone()
}

// Update merges fields into the record with the given identity. It returns
// false, and changes nothing, when no record has that identity.
func (s *RecordStore) Update(id string, fields map[string]any) (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Record{}, false
	}
	r := s.records[i].Clone()
	for k, v := range fields {
		if k != "id" {
			r.Fields[k] = v
		}
	}
	s.records[i] = r
	s.commit()
	return r.Clone(), true
}

// Delete removes the record with the given identity. It returns false when
// there is no such record.
func (s *RecordStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = slices.Delete(s.records, i, i+1)
	s.commit()
	return true
}

// ReplaceAll swaps the whole collection in one transition. Records are taken
// as given: identities are not checked and fields are not reconciled with the
// schema.
func (s *RecordStore) ReplaceAll(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.Record, len(records))
	for i, r := range records {
		next[i] = r.Clone()
		if next[i].Fields == nil {
			next[i].Fields = map[string]any{}
		}
	}
	s.records = next
	s.commit()
}

// Backfill gives every record lacking key an empty string value, in one
// transition.
func (s *RecordStore) Backfill(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if _, ok := r.Fields[key]; ok {
			continue
		}
		r = r.Clone()
		r.Fields[key] = ""
		s.records[i] = r
	}
	s.commit()
}

// Reload re-reads the persisted collection after an external edit. It
// returns true when the state changed. A missing or corrupt blob keeps the
// current state.
func (s *RecordStore) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, blob, ok := s.load()
	if !ok || blob == s.lastBlob {
		return false
	}
	s.records = records
	s.lastBlob = blob
	s.notify()
	return true
}

func (s *RecordStore) index(id string) int {
	return slices.IndexFunc(s.records, func(r models.Record) bool { return r.ID == id })
}

func (s *RecordStore) uniqueID() string {
	for {
		id := s.newID()
		if s.index(id) < 0 {
			return id
		}
	}
}

func (s *RecordStore) snapshot() []models.Record {
	out := make([]models.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// commit persists the collection then notifies the observers. The caller
// must hold the write lock.
func (s *RecordStore) commit() {
	data, err := json.Marshal(s.records)
	if err != nil {
		slog.Warn("Failed to encode records", "err", err)
	} else {
		s.lastBlob = string(data)
		if err := s.kv.Set(RecordsKey, s.lastBlob); err != nil {
			slog.Warn("Failed to persist records", "key", RecordsKey, "err", err)
		}
	}
	s.notify()
}

func (s *RecordStore) notify() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.snapshot()
	for _, o := range s.observers {
		o.OnRecordsChanged(snap)
	}
}
