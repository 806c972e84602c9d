package batch

import (
	"fmt"
	"math"
	"sort"

	"github.com/fleetops/dispatchd/core/model"
)

// GroupingStrategy is the closed set of ways to pre-group orders before
// geometric clustering. The engine retries low-efficiency plans under the
// alternates and keeps the best scorer.
type GroupingStrategy int

const (
	// StrategyGeographic clusters purely on dropoff geometry.
	StrategyGeographic GroupingStrategy = iota
	// StrategyPriority groups same-priority orders before clustering.
	StrategyPriority
	// StrategyTimeWindow groups orders with compatible delivery windows
	// before clustering.
	StrategyTimeWindow
)

var allStrategies = []GroupingStrategy{StrategyGeographic, StrategyPriority, StrategyTimeWindow}

// String returns the reporting name of the strategy.
func (s GroupingStrategy) String() string {
	switch s {
	case StrategyGeographic:
		return "geographic"
	case StrategyPriority:
		return "priority"
	case StrategyTimeWindow:
		return "time_window"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// group partitions the orders into candidate clusters plus noise left for
// individual assignment.
func (s GroupingStrategy) group(orders []model.Order, rule Rule) ([][]model.Order, []model.Order) {
	switch s {
	case StrategyPriority:
		return groupInBuckets(bucketByPriority(orders), rule)
	case StrategyTimeWindow:
		return groupInBuckets(bucketByWindow(orders, rule.MaxDelayMinutes), rule)
	default:
		return clusterGeographic(orders, rule)
	}
}

// clusterGeographic runs the configured clustering method and slices
// oversized clusters.
func clusterGeographic(orders []model.Order, rule Rule) ([][]model.Order, []model.Order) {
	if len(orders) == 0 {
		return nil, nil
	}
	method, _ := ParseMethod(rule.Method)
	var clusters [][]model.Order
	var noise []model.Order
	switch method {
	case MethodDensity:
		clusters, noise = dbscanCluster(orders, rule.RadiusKm, rule.MinPts)
	default:
		k := int(math.Ceil(float64(len(orders)) / float64(rule.MaxSize)))
		clusters = kmeansCluster(orders, k)
	}
	return sliceOversized(clusters, rule.MaxSize), noise
}

func groupInBuckets(buckets [][]model.Order, rule Rule) ([][]model.Order, []model.Order) {
	var clusters [][]model.Order
	var noise []model.Order
	for _, b := range buckets {
		cs, ns := clusterGeographic(b, rule)
		clusters = append(clusters, cs...)
		noise = append(noise, ns...)
	}
	return clusters, noise
}

// bucketByPriority splits the orders by priority value, highest first.
func bucketByPriority(orders []model.Order) [][]model.Order {
	byPrio := make(map[int][]model.Order)
	for _, o := range orders {
		byPrio[o.Priority] = append(byPrio[o.Priority], o)
	}
	prios := make([]int, 0, len(byPrio))
	for p := range byPrio {
		prios = append(prios, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(prios)))
	out := make([][]model.Order, 0, len(prios))
	for _, p := range prios {
		out = append(out, byPrio[p])
	}
	return out
}

// bucketByWindow greedily groups orders whose delivery windows stay within
// the allowed span. Orders without a window form their own bucket.
func bucketByWindow(orders []model.Order, maxDelayMinutes float64) [][]model.Order {
	var windowless []model.Order
	var windowed []model.Order
	for _, o := range orders {
		if o.Window == nil {
			windowless = append(windowless, o)
		} else {
			windowed = append(windowed, o)
		}
	}
	sort.Slice(windowed, func(i, j int) bool {
		if !windowed[i].Window.Start.Equal(windowed[j].Window.Start) {
			return windowed[i].Window.Start.Before(windowed[j].Window.Start)
		}
		return windowed[i].ID < windowed[j].ID
	})

	var out [][]model.Order
	var current []model.Order
	for _, o := range windowed {
		trial := append(append([]model.Order(nil), current...), o)
		if len(current) > 0 && windowSpanMinutes(trial) > maxDelayMinutes {
			out = append(out, current)
			current = []model.Order{o}
			continue
		}
		current = trial
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	if len(windowless) > 0 {
		out = append(out, windowless)
	}
	return out
}
