package assign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/notify"
	"github.com/fleetops/dispatchd/core/sla"
	"github.com/fleetops/dispatchd/internal/keylock"
)

var (
	// ErrNoAvailableDrivers means no candidate survived filtering. The
	// caller routes the order to escalation; there is no in-process retry.
	ErrNoAvailableDrivers = errors.New("assign: no available drivers")
	// ErrMaxAttempts means the reassignment cap has been reached.
	ErrMaxAttempts = errors.New("assign: max reassignment attempts reached")
	// ErrStaleOrder means the order reached a terminal status while a
	// decision was being computed; the decision is abandoned.
	ErrStaleOrder = errors.New("assign: order is terminal")
)

// DefaultMaxAttempts caps reassignments per order.
const DefaultMaxAttempts = 3

// Attempt is the append-only audit record of one reassignment.
type Attempt struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	OldDriverID string    `json:"old_driver_id,omitempty"`
	NewDriverID string    `json:"new_driver_id"`
	Score       float64   `json:"score"`
	DistanceKm  float64   `json:"distance_km"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// CounterStore tracks reassignment counts per order. IncrementBelow must be
// atomic so the cap holds under concurrent triggers.
type CounterStore interface {
	// Count returns the current reassignment count for the order.
	Count(ctx context.Context, orderID string) (int, error)
	// IncrementBelow increments the counter only while it is below max and
	// returns the new value. It returns ErrMaxAttempts when the counter has
	// already reached max.
	IncrementBelow(ctx context.Context, orderID string, max int) (int, error)
}

// OrderSource returns the current snapshot of an order, used to detect a
// terminal transition immediately before committing a decision.
type OrderSource interface {
	Order(ctx context.Context, id string) (model.Order, error)
}

// AttemptLog receives reassignment attempt records.
type AttemptLog interface {
	AppendAttempt(ctx context.Context, a Attempt) error
}

// Config groups the reassignment service settings.
type Config struct {
	Filter      FilterConfig `json:"filter"`
	Weights     Weights      `json:"weights"`
	MaxAttempts int          `json:"max_attempts"`
}

// SetDefaults applies the standard cap and nested defaults.
func (c *Config) SetDefaults() {
	c.Filter.SetDefaults()
	c.Weights.SetDefaults()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
}

// ShouldReassign decides whether an order needs a new driver. Terminal
// orders and orders at the attempt cap never qualify; otherwise the order
// must be at risk and unable to meet its SLA on the current assignment.
func ShouldReassign(o model.Order, st sla.Status, maxAttempts int) bool {
	if o.Status.Terminal() {
		return false
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if o.ReassignmentCount >= maxAttempts {
		return false
	}
	switch st.Category {
	case sla.Warning, sla.Critical, sla.Breached:
		return !st.CanMeetSLA
	}
	return false
}

// Reassigner selects replacement drivers for at-risk orders and records the
// outcome.
type Reassigner struct {
	scorer   Scorer
	counters CounterStore
	orders   OrderSource
	notifier notify.Notifier
	attempts AttemptLog
	log      logger.Logger
	max      int
	locks    *keylock.Map
}

// NewReassigner wires the reassignment service. attempts may be nil when no
// audit log is configured.
func NewReassigner(cfg Config, counters CounterStore, orders OrderSource, notifier notify.Notifier, attempts AttemptLog, log logger.Logger) (*Reassigner, error) {
	if counters == nil || orders == nil {
		return nil, fmt.Errorf("assign: nil store provided to NewReassigner")
	}
	cfg.SetDefaults()
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Reassigner{
		scorer:   NewScorer(cfg.Filter, cfg.Weights),
		counters: counters,
		orders:   orders,
		notifier: notifier,
		attempts: attempts,
		log:      log,
		max:      cfg.MaxAttempts,
		locks:    keylock.New(),
	}, nil
}

// MaxAttempts returns the configured reassignment cap.
func (r *Reassigner) MaxAttempts() int { return r.max }

// Scorer exposes the underlying scorer for advisory use.
func (r *Reassigner) Scorer() Scorer { return r.scorer }

// Reassign picks the best surviving candidate for the order, atomically
// consumes one attempt, and emits the driver and customer notifications.
// The order snapshot is re-read before committing so a terminal transition
// mid-computation aborts without side effects.
func (r *Reassigner) Reassign(ctx context.Context, o model.Order, st sla.Status, drivers []model.Driver, reason string) (Attempt, error) {
	// One decision per order at a time: a cycle-driven pass and an
	// event-driven trigger racing here must serialize, or both commit.
	unlock := r.locks.Lock(o.ID)
	defer unlock()

	if !ShouldReassign(o, st, r.max) {
		if o.ReassignmentCount >= r.max {
			return Attempt{}, ErrMaxAttempts
		}
		return Attempt{}, fmt.Errorf("assign: order %s does not qualify for reassignment", o.ID)
	}

	candidates := r.scorer.Rank(drivers, o)
	best := -1
	for i, c := range candidates {
		if c.Driver.ID != o.DriverID {
			best = i
			break
		}
	}
	if best < 0 {
		reassignmentsTotal.WithLabelValues(o.Service.String(), "no_candidates").Inc()
		return Attempt{}, ErrNoAvailableDrivers
	}
	chosen := candidates[best]

	// Recheck right before committing: a delivery or cancellation that
	// raced with scoring must win.
	current, err := r.orders.Order(ctx, o.ID)
	if err != nil {
		return Attempt{}, fmt.Errorf("assign: refresh order %s: %w", o.ID, err)
	}
	if current.Status.Terminal() {
		reassignmentsTotal.WithLabelValues(o.Service.String(), "stale").Inc()
		return Attempt{}, ErrStaleOrder
	}

	n, err := r.counters.IncrementBelow(ctx, o.ID, r.max)
	if err != nil {
		if errors.Is(err, ErrMaxAttempts) {
			reassignmentsTotal.WithLabelValues(o.Service.String(), "max_attempts").Inc()
		}
		return Attempt{}, err
	}

	att := Attempt{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		OldDriverID: o.DriverID,
		NewDriverID: chosen.Driver.ID,
		Score:       chosen.Score,
		DistanceKm:  chosen.DistanceKm,
		Reason:      reason,
		Timestamp:   time.Now(),
	}
	if r.attempts != nil {
		if err := r.attempts.AppendAttempt(ctx, att); err != nil {
			r.log.Warnf("attempt log append failed for %s: %v", o.ID, err)
		}
	}
	r.notifyParties(ctx, o, chosen.Driver.ID)

	reassignmentsTotal.WithLabelValues(o.Service.String(), "ok").Inc()
	candidateScore.WithLabelValues(o.Service.String()).Observe(chosen.Score)
	r.log.Infof("order %s reassigned %s -> %s (attempt %d/%d, score %.3f)",
		o.ID, att.OldDriverID, att.NewDriverID, n, r.max, chosen.Score)
	return att, nil
}

// notifyParties sends the fire-and-forget driver and customer updates. A
// failed delivery is logged and never blocks the decision.
func (r *Reassigner) notifyParties(ctx context.Context, o model.Order, newDriver string) {
	now := time.Now()
	msgs := []notify.Notification{
		{Kind: notify.DriverAssigned, OrderID: o.ID, DriverID: newDriver, Time: now},
		{Kind: notify.CustomerUpdate, OrderID: o.ID, Message: "driver updated", Time: now},
	}
	if o.DriverID != "" {
		msgs = append(msgs, notify.Notification{Kind: notify.DriverRemoved, OrderID: o.ID, DriverID: o.DriverID, Time: now})
	}
	for _, n := range msgs {
		if err := r.notifier.Notify(ctx, n); err != nil {
			r.log.Warnf("notification %s for %s failed: %v", n.Kind, o.ID, err)
		}
	}
}
