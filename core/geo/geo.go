package geo

import (
	"math"

	"github.com/fleetops/dispatchd/core/model"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b model.LatLng) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the arithmetic mean of the points. It returns the zero
// value for an empty slice.
func Centroid(pts []model.LatLng) model.LatLng {
	if len(pts) == 0 {
		return model.LatLng{}
	}
	var lat, lng float64
	for _, p := range pts {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(pts))
	return model.LatLng{Lat: lat / n, Lng: lng / n}
}

// Radius returns the maximum distance in kilometers from the center to any
// of the points.
func Radius(center model.LatLng, pts []model.LatLng) float64 {
	var max float64
	for _, p := range pts {
		if d := Haversine(center, p); d > max {
			max = d
		}
	}
	return max
}
