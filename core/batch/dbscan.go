package batch

import (
	"sort"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/model"
)

// dbscanCluster groups orders whose dropoffs are density-reachable within
// epsKm. Orders with fewer than minPts neighbours are returned as noise and
// left for individual assignment. Iteration is in id order so the output is
// deterministic.
func dbscanCluster(orders []model.Order, epsKm float64, minPts int) (clusters [][]model.Order, noise []model.Order) {
	if len(orders) == 0 {
		return nil, nil
	}
	sorted := append([]model.Order(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	const (
		unvisited = 0
		inCluster = 1
		asNoise   = 2
	)
	state := make([]int, len(sorted))

	neighbors := func(idx int) []int {
		var out []int
		for j := range sorted {
			if j == idx {
				continue
			}
			if geo.Haversine(sorted[idx].Dropoff, sorted[j].Dropoff) <= epsKm {
				out = append(out, j)
			}
		}
		return out
	}

	for i := range sorted {
		if state[i] != unvisited {
			continue
		}
		nb := neighbors(i)
		if len(nb)+1 < minPts {
			state[i] = asNoise
			continue
		}

		// Expand the cluster breadth-first through density-reachable points.
		var cluster []model.Order
		state[i] = inCluster
		cluster = append(cluster, sorted[i])
		queue := append([]int(nil), nb...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if state[j] == inCluster {
				continue
			}
			state[j] = inCluster
			cluster = append(cluster, sorted[j])
			jnb := neighbors(j)
			if len(jnb)+1 >= minPts {
				queue = append(queue, jnb...)
			}
		}
		clusters = append(clusters, cluster)
	}

	for i, s := range state {
		if s == asNoise {
			noise = append(noise, sorted[i])
		}
	}
	return clusters, noise
}
