package batch

import (
	"sort"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/model"
)

const (
	kmeansMaxIterations = 50
	// kmeansEpsilonKm stops iteration once no centroid moves further.
	kmeansEpsilonKm = 0.01
)

// kmeansCluster partitions orders into k clusters by dropoff proximity.
// Seeding is farthest-point starting from the lowest order id, so the
// result is deterministic for a given input set.
func kmeansCluster(orders []model.Order, k int) [][]model.Order {
	if len(orders) == 0 {
		return nil
	}
	if k <= 1 || k >= len(orders) {
		if k >= len(orders) {
			out := make([][]model.Order, 0, len(orders))
			for _, o := range orders {
				out = append(out, []model.Order{o})
			}
			return out
		}
		cp := append([]model.Order(nil), orders...)
		return [][]model.Order{cp}
	}

	sorted := append([]model.Order(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	centroids := seedFarthest(sorted, k)
	assignment := make([]int, len(sorted))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		for i, o := range sorted {
			assignment[i] = nearestCentroid(o.Dropoff, centroids)
		}
		moved := 0.0
		for ci := range centroids {
			var members []model.LatLng
			for i, o := range sorted {
				if assignment[i] == ci {
					members = append(members, o.Dropoff)
				}
			}
			if len(members) == 0 {
				continue
			}
			next := geo.Centroid(members)
			if d := geo.Haversine(centroids[ci], next); d > moved {
				moved = d
			}
			centroids[ci] = next
		}
		if moved < kmeansEpsilonKm {
			break
		}
	}

	clusters := make([][]model.Order, k)
	for i, o := range sorted {
		clusters[assignment[i]] = append(clusters[assignment[i]], o)
	}
	var out [][]model.Order
	for _, c := range clusters {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// seedFarthest picks k initial centroids: the first order's dropoff, then
// repeatedly the point farthest from all chosen seeds.
func seedFarthest(sorted []model.Order, k int) []model.LatLng {
	seeds := []model.LatLng{sorted[0].Dropoff}
	for len(seeds) < k {
		bestIdx, bestDist := -1, -1.0
		for i, o := range sorted {
			minDist := -1.0
			for _, s := range seeds {
				d := geo.Haversine(o.Dropoff, s)
				if minDist < 0 || d < minDist {
					minDist = d
				}
			}
			if minDist > bestDist {
				bestDist = minDist
				bestIdx = i
			}
		}
		if bestIdx < 0 || bestDist == 0 {
			// All remaining points coincide with a seed; duplicate one.
			seeds = append(seeds, seeds[0])
			continue
		}
		seeds = append(seeds, sorted[bestIdx].Dropoff)
	}
	return seeds
}

func nearestCentroid(p model.LatLng, centroids []model.LatLng) int {
	best, bestDist := 0, geo.Haversine(p, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := geo.Haversine(p, centroids[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// sliceOversized splits any cluster larger than maxSize into fixed-size
// chunks in id order.
func sliceOversized(clusters [][]model.Order, maxSize int) [][]model.Order {
	var out [][]model.Order
	for _, c := range clusters {
		if len(c) <= maxSize {
			out = append(out, c)
			continue
		}
		sorted := append([]model.Order(nil), c...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		for start := 0; start < len(sorted); start += maxSize {
			end := start + maxSize
			if end > len(sorted) {
				end = len(sorted)
			}
			out = append(out, sorted[start:end])
		}
	}
	return out
}
