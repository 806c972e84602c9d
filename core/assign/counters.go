package assign

import (
	"context"
	"sync"
)

// MemoryCounters is an in-process CounterStore. The compare-and-increment is
// performed under a single lock so the cap cannot be exceeded by concurrent
// triggers on the same order.
type MemoryCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryCounters creates an empty counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counts: make(map[string]int)}
}

// Seed sets the current count for an order, used when hydrating from a
// collaborator snapshot.
func (m *MemoryCounters) Seed(orderID string, count int) {
	m.mu.Lock()
	m.counts[orderID] = count
	m.mu.Unlock()
}

// Count returns the current reassignment count.
func (m *MemoryCounters) Count(_ context.Context, orderID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[orderID], nil
}

// IncrementBelow implements the atomic compare-and-increment.
func (m *MemoryCounters) IncrementBelow(_ context.Context, orderID string, max int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[orderID] >= max {
		return m.counts[orderID], ErrMaxAttempts
	}
	m.counts[orderID]++
	return m.counts[orderID], nil
}
