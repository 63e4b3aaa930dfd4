package storage

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/maruel/recordbook/internal/kvstore"
	"github.com/maruel/recordbook/internal/models"
)

// SettingsKey is the persistence key of the settings blob, which also holds
// the column schema.
const SettingsKey = "custom-system-settings-v1"

// SettingsObserver is notified after every settings transition, with the same
// locking rules as RecordObserver.
type SettingsObserver interface {
	OnSettingsChanged(settings models.Settings)
}

// SettingsStore owns the brand name, the display flags and the schema.
type SettingsStore struct {
	kv        kvstore.Store
	defaults  models.Settings
	mu        sync.RWMutex
	settings  models.Settings
	observers []SettingsObserver
	lastBlob  string
}

// NewSettingsStore loads the settings from kv. Sections missing from the
// stored blob keep their value from defaults; an absent or corrupt blob
// yields defaults.
func NewSettingsStore(kv kvstore.Store, defaults models.Settings) *SettingsStore {
	s := &SettingsStore{kv: kv, defaults: defaults.Clone()}
	if settings, blob, ok := s.load(); ok {
		s.settings = settings
		s.lastBlob = blob
	} else {
		s.settings = defaults.Clone()
	}
	return s
}

func (s *SettingsStore) load() (models.Settings, string, bool) {
	blob, ok, err := s.kv.Get(SettingsKey)
	if err != nil {
		slog.Warn("Failed to read settings", "key", SettingsKey, "err", err)
		return models.Settings{}, "", false
	}
	if !ok {
		return models.Settings{}, "", false
	}
	settings := s.defaults.Clone()
	if err := json.Unmarshal([]byte(blob), &settings); err != nil {
		slog.Warn("Ignoring corrupt settings blob", "key", SettingsKey, "err", err)
		return models.Settings{}, "", false
	}
	return settings, blob, true
}

// AddObserver registers o for every future transition.
func (s *SettingsStore) AddObserver(o SettingsObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Update applies fn to a copy of the settings, then stores and persists it.
func (s *SettingsStore) Update(fn func(*models.Settings)) models.Settings {
	out, _ := s.modify(func(st *models.Settings) error {
		fn(st)
		return nil
	})
	return out
}

// SetBrandName changes the brand display name.
func (s *SettingsStore) SetBrandName(name string) {
	s.Update(func(st *models.Settings) { st.Brand.Name = name })
}

// SetCompact sets the compact layout flag.
func (s *SettingsStore) SetCompact(v bool) {
	s.Update(func(st *models.Settings) { st.Flags.Compact = v })
}

// SetShowTotals sets the totals footer flag.
func (s *SettingsStore) SetShowTotals(v bool) {
	s.Update(func(st *models.Settings) { st.Flags.ShowTotals = v })
}

// ToggleCompact flips the compact flag and returns its new value.
func (s *SettingsStore) ToggleCompact() bool {
	return s.Update(func(st *models.Settings) { st.Flags.Compact = !st.Flags.Compact }).Flags.Compact
}

// ToggleShowTotals flips the totals flag and returns its new value.
func (s *SettingsStore) ToggleShowTotals() bool {
	return s.Update(func(st *models.Settings) { st.Flags.ShowTotals = !st.Flags.ShowTotals }).Flags.ShowTotals
}

// Reload re-reads the persisted settings after an external edit. It returns
// true when the state changed.
func (s *SettingsStore) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, blob, ok := s.load()
	if !ok || blob == s.lastBlob {
		return false
	}
	s.settings = settings
	s.lastBlob = blob
	s.notify()
	return true
}

// modify applies fn to a copy of the settings and notifies the observers.
// When fn fails nothing is stored or persisted.
func (s *SettingsStore) modify(fn func(*models.Settings) error) (models.Settings, error) {
	out, err := s.apply(fn)
	if err == nil {
		s.publish()
	}
	return out, err
}

// apply is modify without the notification; the caller must call publish.
func (s *SettingsStore) apply(fn func(*models.Settings) error) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings.Clone()
	if err := fn(&next); err != nil {
		return s.settings.Clone(), err
	}
	s.settings = next
	data, err := json.Marshal(next)
	if err != nil {
		slog.Warn("Failed to encode settings", "err", err)
	} else {
		s.lastBlob = string(data)
		if err := s.kv.Set(SettingsKey, s.lastBlob); err != nil {
			slog.Warn("Failed to persist settings", "key", SettingsKey, "err", err)
		}
	}
	return next.Clone(), nil
}

func (s *SettingsStore) publish() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.notify()
}

func (s *SettingsStore) notify() {
	for _, o := range s.observers {
		o.OnSettingsChanged(s.settings.Clone())
	}
}
