package batch

import (
	"sort"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/model"
)

// sequenceStops orders the dropoffs by repeatedly visiting the nearest
// unvisited stop, starting from the pickup point. Ties break on order id.
// It returns the visiting order of order ids and the total route length in
// kilometers including the leg from pickup to the first stop.
func sequenceStops(pickup model.LatLng, orders []model.Order) ([]string, float64) {
	if len(orders) == 0 {
		return nil, 0
	}
	remaining := append([]model.Order(nil), orders...)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].ID < remaining[j].ID })

	seq := make([]string, 0, len(remaining))
	pos := pickup
	var total float64
	for len(remaining) > 0 {
		best, bestDist := 0, geo.Haversine(pos, remaining[0].Dropoff)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Haversine(pos, remaining[i].Dropoff); d < bestDist {
				best, bestDist = i, d
			}
		}
		seq = append(seq, remaining[best].ID)
		total += bestDist
		pos = remaining[best].Dropoff
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return seq, total
}
