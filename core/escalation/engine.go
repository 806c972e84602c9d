package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/notify"
	"github.com/fleetops/dispatchd/internal/keylock"
)

// Level is the severity tier deciding which responder is notified.
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
)

// String returns the wire representation of the level.
func (l Level) String() string {
	switch l {
	case Level1:
		return "LEVEL_1"
	case Level2:
		return "LEVEL_2"
	case Level3:
		return "LEVEL_3"
	}
	return fmt.Sprintf("LEVEL_%d", int(l))
}

// Reason is the trigger cause of an escalation.
type Reason string

const (
	ReasonDriverCancelled    Reason = "DRIVER_CANCELLED"
	ReasonNoAvailableDrivers Reason = "NO_AVAILABLE_DRIVERS"
	ReasonMaxAttempts        Reason = "MAX_ATTEMPTS"
	ReasonSLABreach          Reason = "SLA_BREACH"
)

// Context carries the trigger details the decision table depends on.
type Context struct {
	BreachMinutes float64
	Service       model.ServiceType
	DriverID      string
}

// severeBreachMinutes is the breach duration beyond which any breach goes
// straight to the highest tier.
const severeBreachMinutes = 30

// DetermineLevel maps a trigger to a severity tier. Urgent-service breaches
// escalate one level above standard ones.
func DetermineLevel(reason Reason, ctx Context) Level {
	switch reason {
	case ReasonDriverCancelled:
		return Level1
	case ReasonNoAvailableDrivers, ReasonMaxAttempts:
		return Level2
	case ReasonSLABreach:
		if ctx.BreachMinutes > severeBreachMinutes {
			return Level3
		}
		if ctx.Service.Urgent() {
			return Level2
		}
		return Level1
	}
	return Level1
}

// Record is the lifecycle state of one escalation.
type Record struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	DriverID   string    `json:"driver_id,omitempty"`
	Reason     Reason    `json:"reason"`
	Level      Level     `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
}

// Store persists escalation records and indexes open records by
// (order, reason) so re-triggers are idempotent.
type Store interface {
	Put(r Record) error
	Get(id string) (Record, bool)
	// Open returns the open record for the pair, if any.
	Open(orderID string, reason Reason) (Record, bool)
	// List returns all records, open and resolved, ordered by creation time.
	List() []Record
}

// Engine creates and resolves escalations. Every trigger either creates or
// returns exactly one open record; none are silently dropped.
type Engine struct {
	store    Store
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
	locks    *keylock.Map
}

// NewEngine wires the escalation engine.
func NewEngine(store Store, notifier notify.Notifier, log logger.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("escalation: nil store provided to NewEngine")
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Engine{store: store, notifier: notifier, log: log, now: time.Now, locks: keylock.New()}, nil
}

// Trigger opens an escalation for the order, or returns the already-open
// record for the same (order, reason) pair.
func (e *Engine) Trigger(ctx context.Context, o model.Order, reason Reason, ectx Context) (Record, error) {
	// The open-check and insert must not interleave with a concurrent
	// trigger for the same pair, or both would open a record.
	unlock := e.locks.Lock(o.ID + "/" + string(reason))
	defer unlock()

	if existing, ok := e.store.Open(o.ID, reason); ok {
		e.log.Debugf("escalation for %s/%s already open as %s", o.ID, reason, existing.ID)
		return existing, nil
	}
	if ectx.Service == "" {
		ectx.Service = o.Service
	}
	rec := Record{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		DriverID:  ectx.DriverID,
		Reason:    reason,
		Level:     DetermineLevel(reason, ectx),
		CreatedAt: e.now(),
	}
	if err := e.store.Put(rec); err != nil {
		return Record{}, fmt.Errorf("escalation: store %s: %w", o.ID, err)
	}
	escalationsTotal.WithLabelValues(string(reason), rec.Level.String()).Inc()
	openEscalations.Inc()
	e.log.Warnf("escalation %s opened for order %s: %s -> %s", rec.ID, o.ID, reason, rec.Level)

	if err := e.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.EscalationAlert,
		OrderID: o.ID,
		Level:   rec.Level.String(),
		Message: string(reason),
		Time:    rec.CreatedAt,
	}); err != nil {
		e.log.Warnf("escalation alert for %s failed: %v", o.ID, err)
	}
	return rec, nil
}

// Resolve closes an open escalation with the resolver identity and note.
func (e *Engine) Resolve(_ context.Context, id, resolver, note string) (Record, error) {
	rec, ok := e.store.Get(id)
	if !ok {
		return Record{}, fmt.Errorf("escalation: unknown record %s", id)
	}
	if rec.Resolved {
		return rec, nil
	}
	rec.Resolved = true
	rec.ResolvedAt = e.now()
	rec.ResolvedBy = resolver
	rec.Resolution = note
	if err := e.store.Put(rec); err != nil {
		return Record{}, fmt.Errorf("escalation: resolve %s: %w", id, err)
	}
	openEscalations.Dec()
	e.log.Infof("escalation %s resolved by %s", id, resolver)
	return rec, nil
}
