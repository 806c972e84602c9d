package geo

import (
	"math"
	"testing"

	"github.com/fleetops/dispatchd/core/model"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Riyadh city center to King Khalid airport, roughly 28 km.
	a := model.LatLng{Lat: 24.7136, Lng: 46.6753}
	b := model.LatLng{Lat: 24.9576, Lng: 46.6988}
	d := Haversine(a, b)
	if d < 26 || d > 30 {
		t.Fatalf("expected ~28 km, got %f", d)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	p := model.LatLng{Lat: 24.7136, Lng: 46.6753}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("expected 0 got %f", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := model.LatLng{Lat: 24.7, Lng: 46.6}
	b := model.LatLng{Lat: 24.8, Lng: 46.8}
	if math.Abs(Haversine(a, b)-Haversine(b, a)) > 1e-9 {
		t.Fatalf("distance should be symmetric")
	}
}

func TestCentroidAndRadius(t *testing.T) {
	pts := []model.LatLng{
		{Lat: 24.70, Lng: 46.60},
		{Lat: 24.72, Lng: 46.62},
		{Lat: 24.74, Lng: 46.64},
	}
	c := Centroid(pts)
	if math.Abs(c.Lat-24.72) > 1e-9 || math.Abs(c.Lng-46.62) > 1e-9 {
		t.Fatalf("unexpected centroid %+v", c)
	}
	r := Radius(c, pts)
	if r <= 0 {
		t.Fatalf("radius should be positive")
	}
	for _, p := range pts {
		if Haversine(c, p) > r+1e-9 {
			t.Fatalf("radius does not cover all points")
		}
	}
}

func TestCentroid_Empty(t *testing.T) {
	if c := Centroid(nil); c != (model.LatLng{}) {
		t.Fatalf("expected zero centroid for empty input")
	}
}
