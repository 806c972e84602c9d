package orders

import (
	"context"
	"testing"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

func testOrder(id string, st model.OrderStatus) model.Order {
	return model.Order{
		ID:        id,
		Service:   model.ServiceBarq,
		Status:    st,
		CreatedAt: time.Now(),
		Pickup:    model.LatLng{Lat: 24.70, Lng: 46.60},
		Dropoff:   model.LatLng{Lat: 24.72, Lng: 46.62},
	}
}

func TestMemoryStore_ActiveExcludesTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, testOrder("o1", model.StatusAssigned)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, testOrder("o2", model.StatusDelivered)); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err := s.ActiveOrders(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(out) != 1 || out[0].ID != "o1" {
		t.Fatalf("unexpected active set %#v", out)
	}
}

func TestMemoryStore_PutRejectsMalformed(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(context.Background(), model.Order{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMemoryStore_SetDriverBumpsCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, testOrder("o1", model.StatusPending)); err != nil {
		t.Fatalf("put: %v", err)
	}
	o, err := s.SetDriver(ctx, "o1", "d1")
	if err != nil {
		t.Fatalf("set driver: %v", err)
	}
	if o.DriverID != "d1" || o.ReassignmentCount != 1 || o.Status != model.StatusAssigned {
		t.Fatalf("unexpected order %#v", o)
	}
}

func TestMemoryStore_SetDriverRejectsTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, testOrder("o1", model.StatusDelivered)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.SetDriver(ctx, "o1", "d1"); err == nil {
		t.Fatalf("expected terminal rejection")
	}
}

func TestMemoryStore_UnknownOrder(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Order(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
