package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/rapport-api/internal/model"
)

type memoryEntry struct {
	payload  model.RapportResponse
	storedAt time.Time
}

// MemoryStore is the in-process backing store. Entries persist for the
// process lifetime; expiry is purely the Cache's TTL check.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, zip string) (*model.RapportResponse, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[zip]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	payload := e.payload
	return &payload, e.storedAt, true, nil
}

// Set implements Store. The payload is stored by value so later caller
// mutations cannot leak into the cache.
func (m *MemoryStore) Set(_ context.Context, zip string, payload *model.RapportResponse, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[zip] = memoryEntry{payload: *payload, storedAt: at}
	return nil
}
