package batch

import (
	"fmt"

	"github.com/fleetops/dispatchd/core/model"
)

// Method selects the clustering algorithm for a service type. The set is
// closed; configuration maps onto it rather than dispatching on raw strings.
type Method int

const (
	// MethodCentroid is k-means style clustering with farthest-point seeding.
	MethodCentroid Method = iota
	// MethodDensity is DBSCAN style clustering; sparse orders become noise.
	MethodDensity
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodCentroid:
		return "centroid"
	case MethodDensity:
		return "density"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod maps a configuration value to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "centroid", "kmeans":
		return MethodCentroid, nil
	case "density", "dbscan":
		return MethodDensity, nil
	}
	return MethodCentroid, fmt.Errorf("batch: unknown clustering method %q", s)
}

// Rule holds the per-service-type batching parameters.
type Rule struct {
	Method          string  `json:"method"`
	RadiusKm        float64 `json:"radius_km"`
	MaxSize         int     `json:"max_size"`
	MinPts          int     `json:"min_pts"`
	MinSimilarity   float64 `json:"min_similarity"`
	MaxDelayMinutes float64 `json:"max_delay_minutes"`
	MinEfficiency   float64 `json:"min_efficiency"`
}

// Config groups batching rules and shared estimation parameters.
type Config struct {
	Rules   map[model.ServiceType]Rule `json:"rules"`
	Default Rule                       `json:"default"`

	// AvgSpeedKmh and StopServiceMinutes drive the batch delivery estimate.
	AvgSpeedKmh        float64 `json:"avg_speed_kmh"`
	StopServiceMinutes float64 `json:"stop_service_minutes"`

	// MergeUtilization is the fill ratio below which neighbouring batches
	// are candidates for merging.
	MergeUtilization float64 `json:"merge_utilization"`

	// RetentionMinutes bounds how long handed-off batches stay in the store.
	RetentionMinutes int `json:"retention_minutes"`

	// PlanIntervalMinutes sets how often the service replans pending orders.
	PlanIntervalMinutes int `json:"plan_interval_minutes"`
}

// SetDefaults applies the standard per-tier rules: urgent orders batch in
// tight, small groups while standard orders tolerate wider ones.
func (c *Config) SetDefaults() {
	if c.Rules == nil {
		c.Rules = map[model.ServiceType]Rule{
			model.ServiceBarq: {
				Method: "centroid", RadiusKm: 2, MaxSize: 3, MinPts: 2,
				MinSimilarity: 0.8, MaxDelayMinutes: 15, MinEfficiency: 0.5,
			},
			model.ServiceBullet: {
				Method: "density", RadiusKm: 5, MaxSize: 8, MinPts: 2,
				MinSimilarity: 0.5, MaxDelayMinutes: 60, MinEfficiency: 0.4,
			},
		}
	}
	if c.Default.MaxSize == 0 {
		c.Default = Rule{
			Method: "centroid", RadiusKm: 5, MaxSize: 8, MinPts: 2,
			MinSimilarity: 0.5, MaxDelayMinutes: 60, MinEfficiency: 0.4,
		}
	}
	if c.AvgSpeedKmh <= 0 {
		c.AvgSpeedKmh = 30
	}
	if c.StopServiceMinutes <= 0 {
		c.StopServiceMinutes = 5
	}
	if c.MergeUtilization <= 0 {
		c.MergeUtilization = 0.7
	}
	if c.RetentionMinutes <= 0 {
		c.RetentionMinutes = 120
	}
	if c.PlanIntervalMinutes <= 0 {
		c.PlanIntervalMinutes = 10
	}
}

// Validate checks the rule table for usable values.
func (c Config) Validate() error {
	for svc, r := range c.Rules {
		if r.MaxSize <= 0 {
			return fmt.Errorf("batch: rule for %s: max_size must be positive", svc)
		}
		if r.RadiusKm <= 0 {
			return fmt.Errorf("batch: rule for %s: radius_km must be positive", svc)
		}
		if _, err := ParseMethod(r.Method); err != nil {
			return err
		}
	}
	return nil
}

// Rule returns the batching rule for the given service type.
func (c Config) Rule(s model.ServiceType) Rule {
	if r, ok := c.Rules[s]; ok {
		return r
	}
	return c.Default
}
