// Package orders keeps the in-process snapshot of orders the dispatcher is
// responsible for. External systems own the order of record; this store is
// the working copy the monitoring cycle reads.
package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// ErrNotFound is returned when an order id is unknown.
var ErrNotFound = errors.New("orders: order not found")

// Store holds order snapshots.
type Store interface {
	Put(ctx context.Context, o model.Order) error
	Order(ctx context.Context, id string) (model.Order, error)
	ActiveOrders(ctx context.Context) ([]model.Order, error)
	PendingOrders(ctx context.Context) ([]model.Order, error)
	// SetStatus transitions the order and returns the updated snapshot.
	SetStatus(ctx context.Context, id string, st model.OrderStatus) (model.Order, error)
	// SetDriver records a driver swap and bumps the reassignment count.
	SetDriver(ctx context.Context, id, driverID string) (model.Order, error)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Order{}}
}

func (s *MemoryStore) Put(_ context.Context, o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.data[o.ID] = o
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Order(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.data[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

// ActiveOrders returns all non-terminal orders in id order.
func (s *MemoryStore) ActiveOrders(context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.data {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PendingOrders returns unassigned orders in id order.
func (s *MemoryStore) PendingOrders(context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.data {
		if o.Status == model.StatusPending {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, st model.OrderStatus) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	o.Status = st
	s.data[id] = o
	return o, nil
}

func (s *MemoryStore) SetDriver(_ context.Context, id, driverID string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if o.Status.Terminal() {
		return o, errors.New("orders: cannot assign a terminal order")
	}
	o.DriverID = driverID
	o.ReassignmentCount++
	o.Status = model.StatusAssigned
	s.data[id] = o
	return o, nil
}
