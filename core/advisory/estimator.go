// Package advisory defines the optional delivery-time estimation
// capability. The core never depends on an external estimator succeeding;
// a rule-based fallback always answers.
package advisory

import (
	"context"
	"time"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
)

// Estimator predicts when a driver would complete an order picked up now.
type Estimator interface {
	EstimateDelivery(ctx context.Context, o model.Order, d model.Driver) (time.Time, error)
}

// RuleBased is the local fallback estimator: straight-line legs at a fixed
// average speed plus a handling allowance.
type RuleBased struct {
	AvgSpeedKmh     float64
	HandlingMinutes float64
}

// NewRuleBased returns a fallback estimator with standard urban parameters.
func NewRuleBased() RuleBased {
	return RuleBased{AvgSpeedKmh: 30, HandlingMinutes: 10}
}

// EstimateDelivery never fails; it is the guaranteed local answer.
func (r RuleBased) EstimateDelivery(_ context.Context, o model.Order, d model.Driver) (time.Time, error) {
	toPickup := geo.Haversine(d.Location, o.Pickup)
	toDrop := geo.Haversine(o.Pickup, o.Dropoff)
	travel := (toPickup + toDrop) / r.AvgSpeedKmh * 60
	return time.Now().Add(time.Duration(travel+r.HandlingMinutes) * time.Minute), nil
}

// Guarded wraps a remote estimator with a bounded timeout and the local
// fallback, so a slow or unavailable collaborator degrades instead of
// stalling the monitoring cycle.
type Guarded struct {
	Remote   Estimator
	Fallback Estimator
	Timeout  time.Duration
	Log      logger.Logger
}

// NewGuarded builds a Guarded estimator. A nil remote uses the fallback
// directly.
func NewGuarded(remote Estimator, timeout time.Duration, log logger.Logger) Guarded {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return Guarded{Remote: remote, Fallback: NewRuleBased(), Timeout: timeout, Log: log}
}

// EstimateDelivery asks the remote estimator within the timeout and falls
// back locally on any failure.
func (g Guarded) EstimateDelivery(ctx context.Context, o model.Order, d model.Driver) (time.Time, error) {
	if g.Remote == nil {
		return g.Fallback.EstimateDelivery(ctx, o, d)
	}
	tctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	type answer struct {
		t   time.Time
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		t, err := g.Remote.EstimateDelivery(tctx, o, d)
		ch <- answer{t: t, err: err}
	}()
	select {
	case a := <-ch:
		if a.err == nil {
			return a.t, nil
		}
		if g.Log != nil {
			g.Log.Warnf("remote estimator failed for %s: %v", o.ID, a.err)
		}
	case <-tctx.Done():
		if g.Log != nil {
			g.Log.Warnf("remote estimator timed out for %s", o.ID)
		}
	}
	return g.Fallback.EstimateDelivery(ctx, o, d)
}

// Mock returns fixed estimates for tests.
type Mock struct {
	Estimates map[string]time.Time
	Err       error
	Delay     time.Duration
}

// EstimateDelivery returns the configured estimate for the order id, the
// configured error, or the zero time.
func (m Mock) EstimateDelivery(ctx context.Context, o model.Order, _ model.Driver) (time.Time, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return time.Time{}, m.Err
	}
	return m.Estimates[o.ID], nil
}
