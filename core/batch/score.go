package batch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/model"
)

// Quality and efficiency weightings. Quality reflects the geometry of the
// batch; efficiency additionally rewards time-window and capacity fit.
const (
	densityWeight     = 0.4
	utilizationWeight = 0.3
	compactnessWeight = 0.3

	qualityShare  = 0.6
	windowShare   = 0.2
	capacityShare = 0.2
)

// densityScore maps the mean pairwise dropoff distance into (0,1]: tighter
// batches score higher.
func densityScore(orders []model.Order) float64 {
	if len(orders) < 2 {
		return 1
	}
	var dists []float64
	for i := 0; i < len(orders); i++ {
		for j := i + 1; j < len(orders); j++ {
			dists = append(dists, geo.Haversine(orders[i].Dropoff, orders[j].Dropoff))
		}
	}
	mean := stat.Mean(dists, nil)
	return 1 / (1 + mean)
}

// qualityScore combines density, size utilization and compactness.
func qualityScore(orders []model.Order, radiusKm float64, maxSize int) float64 {
	util := 0.0
	if maxSize > 0 {
		util = float64(len(orders)) / float64(maxSize)
		if util > 1 {
			util = 1
		}
	}
	compact := 1 / (1 + radiusKm)
	return densityScore(orders)*densityWeight + util*utilizationWeight + compact*compactnessWeight
}

// windowFit scores how well the members' delivery windows overlap relative
// to the allowed delay. Orders without windows fit perfectly.
func windowFit(orders []model.Order, maxDelayMinutes float64) float64 {
	span := windowSpanMinutes(orders)
	if span <= 0 || maxDelayMinutes <= 0 {
		return 1
	}
	fit := 1 - span/maxDelayMinutes
	if fit < 0 {
		return 0
	}
	return fit
}

// windowSpanMinutes returns the spread between the earliest window start
// and the latest window end among the members that carry windows.
func windowSpanMinutes(orders []model.Order) float64 {
	var haveAny bool
	var earliest, latest int64
	for _, o := range orders {
		if o.Window == nil {
			continue
		}
		s, e := o.Window.Start.Unix(), o.Window.End.Unix()
		if !haveAny {
			earliest, latest = s, e
			haveAny = true
			continue
		}
		if s < earliest {
			earliest = s
		}
		if e > latest {
			latest = e
		}
	}
	if !haveAny {
		return 0
	}
	return float64(latest-earliest) / 60
}

// efficiencyScore extends quality with time-window and capacity fit.
func efficiencyScore(orders []model.Order, radiusKm float64, rule Rule) float64 {
	util := 0.0
	if rule.MaxSize > 0 {
		util = float64(len(orders)) / float64(rule.MaxSize)
		if util > 1 {
			util = 1
		}
	}
	return qualityScore(orders, radiusKm, rule.MaxSize)*qualityShare +
		windowFit(orders, rule.MaxDelayMinutes)*windowShare +
		util*capacityShare
}
