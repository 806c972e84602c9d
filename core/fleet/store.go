// Package fleet tracks the current known state of drivers for candidate
// selection and operator queries.
package fleet

import (
	"sort"
	"sync"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// LastAssignment mirrors the summary of the most recent dispatch decision
// touching a driver.
type LastAssignment struct {
	OrderID   string    `json:"order_id"`
	Service   string    `json:"service"`
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
}

// Status captures the current known state of a driver.
type Status struct {
	Driver         model.Driver   `json:"driver"`
	Zone           string         `json:"zone,omitempty"`
	City           string         `json:"city,omitempty"`
	LastAssignment LastAssignment `json:"last_assignment"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Filter restricts List results.
type Filter struct {
	Zone          string
	City          string
	OnlyAvailable bool
}

// Store holds driver snapshots.
type Store interface {
	Set(Status)
	Get(id string) (Status, bool)
	List(Filter) []Status
	RecordAssignment(id string, a LastAssignment)
}

// MemoryStore is the in-process Store used by the monitoring cycle.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.Driver.ID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

func (s *MemoryStore) RecordAssignment(id string, a LastAssignment) {
	s.mu.Lock()
	st := s.data[id]
	if st.Driver.ID == "" {
		st.Driver.ID = id
	}
	st.LastAssignment = a
	st.Driver.ActiveOrders++
	if st.Driver.Status == model.DriverAvailable && st.Driver.ActiveOrders >= st.Driver.Capacity && st.Driver.Capacity > 0 {
		st.Driver.Status = model.DriverBusy
	}
	st.UpdatedAt = a.Timestamp
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Zone != "" && st.Zone != f.Zone {
			continue
		}
		if f.City != "" && st.City != f.City {
			continue
		}
		if f.OnlyAvailable && st.Driver.Status != model.DriverAvailable {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Driver.ID < res[j].Driver.ID })
	return res
}

// Drivers returns the driver records matching f, in id order.
func Drivers(s Store, f Filter) []model.Driver {
	sts := s.List(f)
	out := make([]model.Driver, 0, len(sts))
	for _, st := range sts {
		out = append(out, st.Driver)
	}
	return out
}
