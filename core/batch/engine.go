package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/sla"
)

// slaHeadroom caps the estimated batch delivery time at this share of the
// service type's SLA budget.
const slaHeadroom = 0.9

// Engine builds delivery batches from pending orders. State lives in the
// injected Store, never in the engine itself.
type Engine struct {
	cfg     Config
	budgets sla.Config
	store   Store
	log     logger.Logger
	now     func() time.Time
}

// NewEngine wires the batch optimization engine.
func NewEngine(cfg Config, budgets sla.Config, store Store, log logger.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("batch: nil store provided to NewEngine")
	}
	cfg.SetDefaults()
	budgets.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, budgets: budgets, store: store, log: log, now: time.Now}, nil
}

// Plan clusters the pending orders per service type into batches, stores
// them for hand-off and reports the orders that fit nowhere. Every input
// order ends up in exactly one batch or in the unbatchable list.
func (e *Engine) Plan(ctx context.Context, orders []model.Order) (Result, error) {
	var res Result

	eligible := make(map[model.ServiceType][]model.Order)
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			e.log.Warnf("skipping malformed order: %v", err)
			res.Unbatchable = append(res.Unbatchable, o)
			continue
		}
		if o.Status != model.StatusPending || o.Assigned() {
			res.Unbatchable = append(res.Unbatchable, o)
			continue
		}
		eligible[o.Service] = append(eligible[o.Service], o)
	}

	services := make([]model.ServiceType, 0, len(eligible))
	for s := range eligible {
		services = append(services, s)
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })

	for _, svc := range services {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batches, leftovers := e.planService(svc, eligible[svc])
		res.Batches = append(res.Batches, batches...)
		res.Unbatchable = append(res.Unbatchable, leftovers...)
	}

	ttl := time.Duration(e.cfg.RetentionMinutes) * time.Minute
	for _, b := range res.Batches {
		if err := e.store.Put(ctx, b, ttl); err != nil {
			return res, fmt.Errorf("batch: store %s: %w", b.ID, err)
		}
	}
	unbatchableTotal.Add(float64(len(res.Unbatchable)))
	return res, nil
}

// planService builds the best-scoring plan for one service type, retrying
// under alternate grouping strategies when efficiency falls short.
func (e *Engine) planService(svc model.ServiceType, orders []model.Order) ([]Batch, []model.Order) {
	rule := e.cfg.Rule(svc)

	type plan struct {
		strategy GroupingStrategy
		batches  []Batch
		noise    []model.Order
		score    float64
	}
	build := func(s GroupingStrategy) plan {
		batches, noise := e.buildPlan(svc, orders, rule, s)
		return plan{strategy: s, batches: batches, noise: noise, score: meanEfficiency(batches)}
	}

	best := build(StrategyGeographic)
	if planNeedsRetry(best.batches, rule.MinEfficiency) {
		for _, s := range allStrategies[1:] {
			if alt := build(s); alt.score > best.score {
				best = alt
			}
		}
	}

	for _, b := range best.batches {
		batchesBuilt.WithLabelValues(svc.String(), best.strategy.String()).Inc()
		batchEfficiency.WithLabelValues(svc.String()).Observe(b.Efficiency)
	}
	e.log.Infof("%s: %d batches via %s strategy, %d unbatchable",
		svc, len(best.batches), best.strategy, len(best.noise))
	return best.batches, best.noise
}

func planNeedsRetry(batches []Batch, minEfficiency float64) bool {
	for _, b := range batches {
		if b.Efficiency < minEfficiency {
			return true
		}
	}
	return false
}

func meanEfficiency(batches []Batch) float64 {
	if len(batches) == 0 {
		return 0
	}
	var sum float64
	for _, b := range batches {
		sum += b.Efficiency
	}
	return sum / float64(len(batches))
}

// buildPlan runs the full pipeline for one strategy: group, validate
// against time windows and the SLA budget, merge small neighbours, then
// finalize metrics. Singleton clusters go to individual assignment.
func (e *Engine) buildPlan(svc model.ServiceType, orders []model.Order, rule Rule, strategy GroupingStrategy) ([]Batch, []model.Order) {
	clusters, noise := strategy.group(orders, rule)

	var validated [][]model.Order
	for _, c := range clusters {
		for _, tw := range e.splitByWindow(c, rule) {
			validated = append(validated, e.breakDownBySLA(svc, tw, rule)...)
		}
	}

	merged := e.mergeSmall(validated, rule)

	var batches []Batch
	for _, c := range merged {
		if len(c) < 2 {
			noise = append(noise, c...)
			continue
		}
		batches = append(batches, e.finalize(svc, c, rule))
	}
	return batches, noise
}

// splitByWindow breaks a cluster whose delivery-window span exceeds the
// allowed delay into window-compatible sub-clusters.
func (e *Engine) splitByWindow(cluster []model.Order, rule Rule) [][]model.Order {
	if windowSpanMinutes(cluster) <= rule.MaxDelayMinutes {
		return [][]model.Order{cluster}
	}
	return bucketByWindow(cluster, rule.MaxDelayMinutes)
}

// breakDownBySLA splits a cluster whose estimated delivery time exceeds the
// SLA headroom, filling sub-batches in descending urgency so the most
// pressed orders ship in the tightest group.
func (e *Engine) breakDownBySLA(svc model.ServiceType, cluster []model.Order, rule Rule) [][]model.Order {
	limit := slaHeadroom * e.budgets.Budget(svc).Minutes()
	if e.estimateMinutes(cluster) <= limit {
		return [][]model.Order{cluster}
	}

	sorted := append([]model.Order(nil), cluster...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var out [][]model.Order
	var current []model.Order
	for _, o := range sorted {
		trial := append(append([]model.Order(nil), current...), o)
		if len(current) > 0 && e.estimateMinutes(trial) > limit {
			out = append(out, current)
			current = []model.Order{o}
			continue
		}
		current = trial
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// mergeSmall greedily merges under-filled neighbouring clusters while the
// combined batch stays inside the size cap, the clustering radius and the
// similarity threshold.
func (e *Engine) mergeSmall(clusters [][]model.Order, rule Rule) [][]model.Order {
	smallLimit := int(e.cfg.MergeUtilization * float64(rule.MaxSize))
	merged := append([][]model.Order(nil), clusters...)

	for {
		mergedAny := false
		for i := 0; i < len(merged) && !mergedAny; i++ {
			if len(merged[i]) > smallLimit {
				continue
			}
			for j := i + 1; j < len(merged); j++ {
				if len(merged[j]) > smallLimit {
					continue
				}
				if len(merged[i])+len(merged[j]) > rule.MaxSize {
					continue
				}
				ci := geo.Centroid(dropoffs(merged[i]))
				cj := geo.Centroid(dropoffs(merged[j]))
				if geo.Haversine(ci, cj) > rule.RadiusKm {
					continue
				}
				combined := append(append([]model.Order(nil), merged[i]...), merged[j]...)
				center := geo.Centroid(dropoffs(combined))
				if geo.Radius(center, dropoffs(combined)) > rule.RadiusKm {
					continue
				}
				if densityScore(combined) < rule.MinSimilarity {
					continue
				}
				merged[i] = combined
				merged = append(merged[:j], merged[j+1:]...)
				mergedAny = true
				break
			}
		}
		if !mergedAny {
			return merged
		}
	}
}

// finalize computes geometry, sequencing and scores for a validated
// cluster.
func (e *Engine) finalize(svc model.ServiceType, orders []model.Order, rule Rule) Batch {
	pts := dropoffs(orders)
	center := geo.Centroid(pts)
	radius := geo.Radius(center, pts)
	seq, _ := sequenceStops(pickupOf(orders), orders)

	return Batch{
		ID:               uuid.NewString(),
		Service:          svc,
		Orders:           orders,
		Centroid:         center,
		RadiusKm:         radius,
		Density:          densityScore(orders),
		Sequence:         seq,
		EstimatedMinutes: e.estimateMinutes(orders),
		Quality:          qualityScore(orders, radius, rule.MaxSize),
		Efficiency:       efficiencyScore(orders, radius, rule),
		CreatedAt:        e.now(),
	}
}

// estimateMinutes projects the delivery time of a cluster: nearest-neighbour
// route length at the configured speed plus per-stop service time.
func (e *Engine) estimateMinutes(orders []model.Order) float64 {
	if len(orders) == 0 {
		return 0
	}
	_, routeKm := sequenceStops(pickupOf(orders), orders)
	return routeKm/e.cfg.AvgSpeedKmh*60 + float64(len(orders))*e.cfg.StopServiceMinutes
}

func dropoffs(orders []model.Order) []model.LatLng {
	pts := make([]model.LatLng, 0, len(orders))
	for _, o := range orders {
		pts = append(pts, o.Dropoff)
	}
	return pts
}

// pickupOf returns the shared pickup point of the cluster; with mixed
// pickups the centroid stands in.
func pickupOf(orders []model.Order) model.LatLng {
	pts := make([]model.LatLng, 0, len(orders))
	for _, o := range orders {
		pts = append(pts, o.Pickup)
	}
	return geo.Centroid(pts)
}
