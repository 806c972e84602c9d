package escalation

import (
	"sort"
	"sync"
)

type pairKey struct {
	orderID string
	reason  Reason
}

// MemoryStore keeps escalation records in memory with an index of open
// records by (order, reason). All operations are safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
	open map[pairKey]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Record),
		open: make(map[pairKey]string),
	}
}

// Put inserts or updates a record and maintains the open index.
func (s *MemoryStore) Put(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[r.ID] = r
	key := pairKey{orderID: r.OrderID, reason: r.Reason}
	if r.Resolved {
		if s.open[key] == r.ID {
			delete(s.open, key)
		}
	} else {
		s.open[key] = r.ID
	}
	return nil
}

// Get returns the record by id.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	return r, ok
}

// Open returns the open record for the (order, reason) pair.
func (s *MemoryStore) Open(orderID string, reason Reason) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.open[pairKey{orderID: orderID, reason: reason}]
	if !ok {
		return Record{}, false
	}
	r, ok := s.data[id]
	return r, ok
}

// List returns all records ordered by creation time, then id.
func (s *MemoryStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
