package assign

import (
	"sort"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/model"
)

// FilterConfig holds the hard exclusion thresholds applied before scoring.
type FilterConfig struct {
	// MaxHoursWorked excludes fatigued drivers.
	MaxHoursWorked float64 `json:"max_hours_worked"`
	// MinOnTimeRate excludes unreliable drivers.
	MinOnTimeRate float64 `json:"min_on_time_rate"`
}

// Weights tunes the contribution of each factor to the candidate score.
type Weights struct {
	Distance  float64 `json:"distance"`
	Load      float64 `json:"load"`
	OnTime    float64 `json:"on_time"`
	TargetGap float64 `json:"target_gap"`
}

// SetDefaults applies the standard filter thresholds and weights.
func (c *FilterConfig) SetDefaults() {
	if c.MaxHoursWorked <= 0 {
		c.MaxHoursWorked = 10
	}
	if c.MinOnTimeRate <= 0 {
		c.MinOnTimeRate = 0.90
	}
}

// SetDefaults applies weights favouring proximity first.
func (w *Weights) SetDefaults() {
	if w.Distance == 0 && w.Load == 0 && w.OnTime == 0 && w.TargetGap == 0 {
		w.Distance = 0.4
		w.Load = 0.2
		w.OnTime = 0.25
		w.TargetGap = 0.15
	}
}

// Scorer computes multi-factor candidate scores for drivers against an
// order. Drivers failing a hard filter are excluded entirely rather than
// scored low.
type Scorer struct {
	filter  FilterConfig
	weights Weights
}

// NewScorer creates a Scorer with the provided thresholds and weights.
func NewScorer(filter FilterConfig, weights Weights) Scorer {
	filter.SetDefaults()
	weights.SetDefaults()
	return Scorer{filter: filter, weights: weights}
}

// Eligible applies the hard filters: fatigue, reliability, daily target and
// basic availability.
func (s Scorer) Eligible(d model.Driver) bool {
	if !d.CanAccept() {
		return false
	}
	if d.HoursWorked > s.filter.MaxHoursWorked {
		return false
	}
	if d.OnTimeRate < s.filter.MinOnTimeRate {
		return false
	}
	if d.TargetGap() <= 0 {
		return false
	}
	return true
}

// Score returns the weighted candidate score. Callers must have checked
// Eligible first; Score does not re-apply the hard filters.
func (s Scorer) Score(d model.Driver, o model.Order) float64 {
	dist := geo.Haversine(d.Location, o.Pickup)
	distScore := 1 / (1 + dist)
	loadScore := 1 - d.LoadRatio()

	gapScore := 0.0
	if d.DailyTarget > 0 {
		gapScore = float64(d.TargetGap()) / float64(d.DailyTarget)
		if gapScore > 1 {
			gapScore = 1
		}
	}

	return distScore*s.weights.Distance +
		loadScore*s.weights.Load +
		d.OnTimeRate*s.weights.OnTime +
		gapScore*s.weights.TargetGap
}

// Candidate pairs a surviving driver with its score and distance to pickup.
type Candidate struct {
	Driver     model.Driver
	Score      float64
	DistanceKm float64
}

// Rank filters and scores the drivers, returning candidates ordered best
// first. Ties break on lower current load, then on driver id so selection
// is deterministic.
func (s Scorer) Rank(drivers []model.Driver, o model.Order) []Candidate {
	var list []Candidate
	for _, d := range drivers {
		if !s.Eligible(d) {
			continue
		}
		list = append(list, Candidate{
			Driver:     d,
			Score:      s.Score(d, o),
			DistanceKm: geo.Haversine(d.Location, o.Pickup),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		if list[i].Driver.ActiveOrders != list[j].Driver.ActiveOrders {
			return list[i].Driver.ActiveOrders < list[j].Driver.ActiveOrders
		}
		return list[i].Driver.ID < list[j].Driver.ID
	})
	return list
}
