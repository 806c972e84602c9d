package batch

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store holds in-flight batches between planning and hand-off. Entries
// expire after the retention window so discarded batches do not accumulate.
type Store interface {
	Put(ctx context.Context, b Batch, ttl time.Duration) error
	Get(ctx context.Context, id string) (Batch, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Batch, error)
}

type memoryEntry struct {
	batch     Batch
	expiresAt time.Time
}

// MemoryStore is the in-process Store with lazy TTL eviction.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), now: time.Now}
}

// Put stores the batch for at most ttl. A non-positive ttl keeps the batch
// until deleted.
func (s *MemoryStore) Put(_ context.Context, b Batch, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.data[b.ID] = memoryEntry{batch: b, expiresAt: exp}
	s.mu.Unlock()
	return nil
}

// Get returns the batch unless it expired.
func (s *MemoryStore) Get(_ context.Context, id string) (Batch, bool, error) {
	s.mu.RLock()
	e, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return Batch{}, false, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, id)
		s.mu.Unlock()
		return Batch{}, false, nil
	}
	return e.batch, true, nil
}

// Delete removes the batch.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// List returns the live batches ordered by id, evicting expired entries.
func (s *MemoryStore) List(_ context.Context) ([]Batch, error) {
	now := s.now()
	s.mu.Lock()
	out := make([]Batch, 0, len(s.data))
	for id, e := range s.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.data, id)
			continue
		}
		out = append(out, e.batch)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
