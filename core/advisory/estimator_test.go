package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
)

func TestRuleBased_MonotonicWithDistance(t *testing.T) {
	r := NewRuleBased()
	d := model.Driver{ID: "d1", Location: model.LatLng{Lat: 24.70, Lng: 46.60}}
	near := model.Order{ID: "near", Pickup: model.LatLng{Lat: 24.70, Lng: 46.60}, Dropoff: model.LatLng{Lat: 24.71, Lng: 46.61}}
	far := model.Order{ID: "far", Pickup: model.LatLng{Lat: 24.70, Lng: 46.60}, Dropoff: model.LatLng{Lat: 24.95, Lng: 46.95}}

	tn, err := r.EstimateDelivery(context.Background(), near, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tf, err := r.EstimateDelivery(context.Background(), far, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tf.After(tn) {
		t.Fatalf("longer route must estimate later delivery")
	}
}

func TestGuarded_UsesRemoteWhenHealthy(t *testing.T) {
	want := time.Now().Add(42 * time.Minute)
	g := NewGuarded(Mock{Estimates: map[string]time.Time{"o1": want}}, time.Second, logger.Nop{})
	got, err := g.EstimateDelivery(context.Background(), model.Order{ID: "o1"}, model.Driver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("expected remote estimate %v got %v", want, got)
	}
}

func TestGuarded_FallsBackOnError(t *testing.T) {
	g := NewGuarded(Mock{Err: errors.New("boom")}, time.Second, logger.Nop{})
	got, err := g.EstimateDelivery(context.Background(), model.Order{ID: "o1"}, model.Driver{})
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if got.IsZero() {
		t.Fatalf("fallback must produce an estimate")
	}
}

func TestGuarded_FallsBackOnTimeout(t *testing.T) {
	g := NewGuarded(Mock{Delay: time.Second}, 20*time.Millisecond, logger.Nop{})
	start := time.Now()
	got, err := g.EstimateDelivery(context.Background(), model.Order{ID: "o1"}, model.Driver{})
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if got.IsZero() {
		t.Fatalf("fallback must produce an estimate")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("slow remote must not block beyond the timeout")
	}
}

func TestGuarded_NilRemote(t *testing.T) {
	g := NewGuarded(nil, time.Second, logger.Nop{})
	got, err := g.EstimateDelivery(context.Background(), model.Order{ID: "o1"}, model.Driver{})
	if err != nil || got.IsZero() {
		t.Fatalf("nil remote must use the fallback directly")
	}
}
