// Package kvstore provides the synchronous key to string blob stores the
// record engine persists into.
//
// A [Store] has no logic beyond get and set. Backends wrap their failures in
// [errors.ErrStorageUnavailable] so callers can recognize them with errors.Is.
package kvstore

import (
	"fmt"
	"maps"
	"sync"

	apierrors "github.com/maruel/recordbook/internal/errors"
)

// Store is a key to string blob store.
type Store interface {
	// Get returns the blob stored under key. ok is false when nothing is stored.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous blob.
	Set(key, value string) error
}

// Memory is an in-memory Store. The zero value is ready to use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemory returns a Memory store preloaded with blobs.
func NewMemory(blobs map[string]string) *Memory {
	return &Memory{blobs: maps.Clone(blobs)}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = make(map[string]string)
	}
	m.blobs[key] = value
	return nil
}

// Keys returns a snapshot of the stored blobs.
func (m *Memory) Keys() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.blobs)
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%s %q: %w: %w", op, key, apierrors.ErrStorageUnavailable, err)
}
