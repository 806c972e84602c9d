package assign

import (
	"testing"

	"github.com/fleetops/dispatchd/core/model"
)

func fitDriver(id string, lat, lng float64) model.Driver {
	return model.Driver{
		ID:             id,
		Location:       model.LatLng{Lat: lat, Lng: lng},
		Status:         model.DriverAvailable,
		ActiveOrders:   1,
		Capacity:       4,
		OnTimeRate:     0.95,
		HoursWorked:    6,
		DailyTarget:    15,
		DeliveredToday: 8,
	}
}

func pickupOrder() model.Order {
	return model.Order{
		ID:      "o1",
		Service: model.ServiceBarq,
		Pickup:  model.LatLng{Lat: 24.70, Lng: 46.60},
		Status:  model.StatusAssigned,
	}
}

func TestScorer_FatigueFilter(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{})
	d := fitDriver("d1", 24.70, 46.60)
	d.HoursWorked = 10.5
	if s.Eligible(d) {
		t.Fatalf("driver over 10 hours must be excluded")
	}
}

func TestScorer_ReliabilityFilter(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{})
	d := fitDriver("d1", 24.70, 46.60)
	d.OnTimeRate = 0.89
	if s.Eligible(d) {
		t.Fatalf("driver below 0.90 on-time rate must be excluded")
	}
}

func TestScorer_TargetMetFilter(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{})
	d := fitDriver("d1", 24.70, 46.60)
	d.DeliveredToday = d.DailyTarget
	if s.Eligible(d) {
		t.Fatalf("driver at daily target must be excluded")
	}
}

func TestScorer_CloserNeverScoresLower(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{})
	o := pickupOrder()
	near := fitDriver("near", 24.701, 46.601)
	far := fitDriver("far", 24.90, 46.90)
	if s.Score(near, o) <= s.Score(far, o) {
		t.Fatalf("closer driver must not score lower, all else equal")
	}
}

func TestScorer_RankDeterministicTieBreak(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{})
	o := pickupOrder()
	// Identical metrics: tie breaks on load, then id.
	a := fitDriver("b", 24.70, 46.60)
	b := fitDriver("a", 24.70, 46.60)
	ranked := s.Rank([]model.Driver{a, b}, o)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates got %d", len(ranked))
	}
	if ranked[0].Driver.ID != "a" {
		t.Fatalf("equal score and load must break tie on id, got %s", ranked[0].Driver.ID)
	}

	a.ActiveOrders = 3
	ranked = s.Rank([]model.Driver{a, b}, o)
	if ranked[0].Driver.ID != "a" {
		t.Fatalf("lower load must rank first, got %s", ranked[0].Driver.ID)
	}
}

func TestScorer_GapLoadBalancing(t *testing.T) {
	s := NewScorer(FilterConfig{}, Weights{Distance: 0, Load: 0, OnTime: 0, TargetGap: 1})
	o := pickupOrder()
	behind := fitDriver("behind", 24.70, 46.60)
	behind.DeliveredToday = 2
	ahead := fitDriver("ahead", 24.70, 46.60)
	ahead.DeliveredToday = 14
	if s.Score(behind, o) <= s.Score(ahead, o) {
		t.Fatalf("driver further behind target should score higher")
	}
}
