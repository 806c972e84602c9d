// Package orchestrator coordinates the dispatch pipeline: SLA evaluation,
// reassignment, escalation and penalty assessment for each order, plus
// event publication for observers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetops/dispatchd/core/advisory"
	"github.com/fleetops/dispatchd/core/assign"
	"github.com/fleetops/dispatchd/core/audit"
	"github.com/fleetops/dispatchd/core/escalation"
	"github.com/fleetops/dispatchd/core/fleet"
	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/penalty"
	"github.com/fleetops/dispatchd/core/sla"
	"github.com/fleetops/dispatchd/internal/eventbus"
)

// Outcome aggregates what happened to one order during a pipeline pass.
type Outcome struct {
	OrderID    string
	Status     sla.Status
	Reassigned bool
	Attempt    assign.Attempt
	Escalation *escalation.Record
	Penalty    *penalty.Record
}

// OrderWriter applies a committed assignment decision back to the working
// order snapshot, so the next monitoring cycle sees the new driver and the
// bumped reassignment count instead of re-deciding the same order.
type OrderWriter interface {
	SetDriver(ctx context.Context, id, driverID string) (model.Order, error)
}

// Orchestrator wires the dispatch components together. It owns no state of
// its own; each pass reads current snapshots and delegates decisions.
type Orchestrator struct {
	monitor    sla.Monitor
	reassigner *assign.Reassigner
	escalator  *escalation.Engine
	penalties  penalty.Calculator
	fleet      fleet.Store
	orders     OrderWriter
	estimator  advisory.Estimator
	sink       metrics.DecisionSink
	auditLog   audit.Store
	bus        *eventbus.Bus[Event]
	log        logger.Logger
	now        func() time.Time
}

// New creates an Orchestrator. The reassigner, escalator and fleet store are
// required; orders, sink, audit store, bus and estimator may be nil and
// default to no-ops.
func New(
	monitor sla.Monitor,
	reassigner *assign.Reassigner,
	escalator *escalation.Engine,
	penalties penalty.Calculator,
	fleetStore fleet.Store,
	orderWriter OrderWriter,
	estimator advisory.Estimator,
	sink metrics.DecisionSink,
	auditLog audit.Store,
	bus *eventbus.Bus[Event],
	log logger.Logger,
) (*Orchestrator, error) {
	if reassigner == nil {
		return nil, fmt.Errorf("orchestrator: nil reassigner provided to New")
	}
	if escalator == nil {
		return nil, fmt.Errorf("orchestrator: nil escalation engine provided to New")
	}
	if fleetStore == nil {
		return nil, fmt.Errorf("orchestrator: nil fleet store provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if auditLog == nil {
		auditLog = audit.NopStore{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Orchestrator{
		monitor:    monitor,
		reassigner: reassigner,
		escalator:  escalator,
		penalties:  penalties,
		fleet:      fleetStore,
		orders:     orderWriter,
		estimator:  estimator,
		sink:       sink,
		auditLog:   auditLog,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}, nil
}

// Bus returns the event bus, if any.
func (o *Orchestrator) Bus() *eventbus.Bus[Event] { return o.bus }

// Evaluate computes the current SLA status of an order without side
// effects. It is safe to call concurrently.
func (o *Orchestrator) Evaluate(ctx context.Context, ord model.Order) sla.Status {
	return o.monitor.Check(ord, o.now(), o.predictedETA(ctx, ord))
}

// ProcessOrder runs the full pipeline pass for one active order: evaluate
// SLA status, reassign when the order is at risk, escalate when recovery is
// impossible. Terminal orders are returned untouched.
func (o *Orchestrator) ProcessOrder(ctx context.Context, ord model.Order) (Outcome, error) {
	if ord.Status.Terminal() {
		return Outcome{OrderID: ord.ID}, nil
	}
	return o.Act(ctx, ord, o.Evaluate(ctx, ord))
}

// Act applies the decisions a status calls for: escalation on breach,
// reassignment when the order cannot recover on its current driver.
func (o *Orchestrator) Act(ctx context.Context, ord model.Order, st sla.Status) (Outcome, error) {
	out := Outcome{OrderID: ord.ID, Status: st}
	if ord.Status.Terminal() {
		return out, nil
	}

	now := o.now()
	o.recordSLA(ord, out.Status, now)

	if out.Status.Category == sla.Breached {
		breach := -out.Status.RemainingMinutes
		rec, err := o.escalator.Trigger(ctx, ord, escalation.ReasonSLABreach, escalation.Context{
			BreachMinutes: breach,
			Service:       ord.Service,
			DriverID:      ord.DriverID,
		})
		if err != nil {
			return out, fmt.Errorf("escalate breach of %s: %w", ord.ID, err)
		}
		out.Escalation = &rec
		o.afterEscalation(ctx, ord, rec, now)
		o.publish(Event{Type: EventSLABreached, Order: ord, DriverID: ord.DriverID, Time: now})
	}

	if !assign.ShouldReassign(ord, out.Status, o.reassigner.MaxAttempts()) {
		return out, nil
	}

	drivers := fleet.Drivers(o.fleet, fleet.Filter{OnlyAvailable: true})
	att, err := o.reassigner.Reassign(ctx, ord, out.Status, drivers, string(out.Status.Category))
	switch {
	case err == nil:
		out.Reassigned = true
		out.Attempt = att
		o.afterReassignment(ctx, ord, att, now)
	case errors.Is(err, assign.ErrNoAvailableDrivers):
		out.Escalation = o.escalate(ctx, ord, escalation.ReasonNoAvailableDrivers, now)
	case errors.Is(err, assign.ErrMaxAttempts):
		out.Escalation = o.escalate(ctx, ord, escalation.ReasonMaxAttempts, now)
	case errors.Is(err, assign.ErrStaleOrder):
		// The order went terminal mid-pass; nothing to recover.
	default:
		return out, fmt.Errorf("reassign %s: %w", ord.ID, err)
	}
	return out, nil
}

// HandleDriverCancellation opens a first-tier escalation and immediately
// attempts a replacement driver.
func (o *Orchestrator) HandleDriverCancellation(ctx context.Context, ord model.Order, driverID string) (Outcome, error) {
	out := Outcome{OrderID: ord.ID}
	now := o.now()
	rec, err := o.escalator.Trigger(ctx, ord, escalation.ReasonDriverCancelled, escalation.Context{
		Service:  ord.Service,
		DriverID: driverID,
	})
	if err != nil {
		return out, fmt.Errorf("escalate cancellation of %s: %w", ord.ID, err)
	}
	out.Escalation = &rec
	o.afterEscalation(ctx, ord, rec, now)

	if ord.Status.Terminal() {
		return out, nil
	}
	// The voided assignment can never meet the SLA as-is, so the order
	// qualifies for a replacement regardless of elapsed time.
	ord.DriverID = driverID
	out.Status = o.monitor.Check(ord, now, nil)
	out.Status.CanMeetSLA = false
	if out.Status.Category == sla.OnTrack {
		out.Status.Category = sla.Warning
	}
	drivers := fleet.Drivers(o.fleet, fleet.Filter{OnlyAvailable: true})
	att, err := o.reassigner.Reassign(ctx, ord, out.Status, drivers, string(escalation.ReasonDriverCancelled))
	switch {
	case err == nil:
		out.Reassigned = true
		out.Attempt = att
		o.afterReassignment(ctx, ord, att, now)
	case errors.Is(err, assign.ErrNoAvailableDrivers):
		out.Escalation = o.escalate(ctx, ord, escalation.ReasonNoAvailableDrivers, now)
	case errors.Is(err, assign.ErrMaxAttempts):
		out.Escalation = o.escalate(ctx, ord, escalation.ReasonMaxAttempts, now)
	case errors.Is(err, assign.ErrStaleOrder):
	default:
		return out, fmt.Errorf("reassign %s after cancellation: %w", ord.ID, err)
	}
	return out, nil
}

// HandleDelivery assesses the SLA penalty for a delivered order and records
// the outcome.
func (o *Orchestrator) HandleDelivery(ctx context.Context, ord model.Order, deliveredAt time.Time) (penalty.Record, error) {
	rec := o.penalties.Calculate(ord, deliveredAt)
	if pr, ok := o.sink.(metrics.PenaltyRecorder); ok && rec.Breached {
		if err := pr.RecordPenalty(metrics.PenaltyRecord{
			OrderID:       rec.OrderID,
			Service:       rec.Service,
			BreachMinutes: rec.BreachMinutes,
			Amount:        rec.Amount,
			Preventable:   rec.Preventable,
			Time:          deliveredAt,
		}); err != nil {
			o.log.Warnf("record penalty for %s: %v", ord.ID, err)
		}
	}
	if rec.Breached {
		if err := o.auditLog.Append(ctx, audit.Record{
			Timestamp: deliveredAt,
			Action:    audit.ActionPenalty,
			OrderID:   ord.ID,
			DriverID:  ord.DriverID,
			Service:   string(ord.Service),
			Outcome:   fmt.Sprintf("amount=%.2f", rec.Amount),
			Detail:    map[string]any{"breach_minutes": rec.BreachMinutes, "preventable": rec.Preventable},
		}); err != nil {
			o.log.Warnf("audit penalty for %s: %v", ord.ID, err)
		}
	}
	o.publish(Event{Type: EventOrderDelivered, Order: ord, DriverID: ord.DriverID, Time: deliveredAt})
	return rec, nil
}

func (o *Orchestrator) escalate(ctx context.Context, ord model.Order, reason escalation.Reason, now time.Time) *escalation.Record {
	rec, err := o.escalator.Trigger(ctx, ord, reason, escalation.Context{
		Service:  ord.Service,
		DriverID: ord.DriverID,
	})
	if err != nil {
		o.log.Errorf("escalate %s for %s: %v", reason, ord.ID, err)
		return nil
	}
	o.afterEscalation(ctx, ord, rec, now)
	return &rec
}

func (o *Orchestrator) afterReassignment(ctx context.Context, ord model.Order, att assign.Attempt, now time.Time) {
	if o.orders != nil {
		if _, err := o.orders.SetDriver(ctx, ord.ID, att.NewDriverID); err != nil {
			o.log.Errorf("write back assignment for %s: %v", ord.ID, err)
		}
	}
	o.fleet.RecordAssignment(att.NewDriverID, fleet.LastAssignment{
		OrderID:   ord.ID,
		Service:   string(ord.Service),
		Timestamp: now,
	})
	if err := o.sink.RecordAssignment([]metrics.AssignmentRecord{{
		OrderID:      ord.ID,
		DriverID:     att.NewDriverID,
		PrevDriverID: att.OldDriverID,
		Service:      ord.Service,
		Score:        att.Score,
		Reason:       att.Reason,
		Time:         now,
	}}); err != nil {
		o.log.Warnf("record assignment for %s: %v", ord.ID, err)
	}
	if err := o.auditLog.Append(ctx, audit.Record{
		Timestamp: now,
		Action:    audit.ActionReassignment,
		OrderID:   ord.ID,
		DriverID:  att.NewDriverID,
		Service:   string(ord.Service),
		Outcome:   "assigned",
		Detail:    map[string]any{"old_driver": att.OldDriverID, "score": att.Score, "reason": att.Reason},
	}); err != nil {
		o.log.Warnf("audit reassignment for %s: %v", ord.ID, err)
	}
	o.publish(Event{Type: EventReassigned, Order: ord, DriverID: att.NewDriverID, Detail: att.Reason, Time: now})
}

func (o *Orchestrator) afterEscalation(ctx context.Context, ord model.Order, rec escalation.Record, now time.Time) {
	if er, ok := o.sink.(metrics.EscalationRecorder); ok {
		if err := er.RecordEscalation(metrics.EscalationRecord{
			OrderID: ord.ID,
			Reason:  string(rec.Reason),
			Level:   rec.Level.String(),
			Service: ord.Service,
			Time:    now,
		}); err != nil {
			o.log.Warnf("record escalation for %s: %v", ord.ID, err)
		}
	}
	if err := o.auditLog.Append(ctx, audit.Record{
		Timestamp: now,
		Action:    audit.ActionEscalation,
		OrderID:   ord.ID,
		DriverID:  rec.DriverID,
		Service:   string(ord.Service),
		Outcome:   rec.Level.String(),
		Detail:    map[string]any{"reason": string(rec.Reason), "escalation_id": rec.ID},
	}); err != nil {
		o.log.Warnf("audit escalation for %s: %v", ord.ID, err)
	}
	o.publish(Event{Type: EventEscalated, Order: ord, DriverID: rec.DriverID, Detail: string(rec.Reason), Time: now})
}

func (o *Orchestrator) recordSLA(ord model.Order, st sla.Status, now time.Time) {
	sr, ok := o.sink.(metrics.SLARecorder)
	if !ok {
		return
	}
	if err := sr.RecordSLAStatus([]metrics.SLARecord{{
		OrderID:          ord.ID,
		Service:          ord.Service,
		Category:         string(st.Category),
		RemainingMinutes: st.RemainingMinutes,
		Time:             now,
	}}); err != nil {
		o.log.Warnf("record sla status for %s: %v", ord.ID, err)
	}
}

// predictedETA asks the estimator for the assigned driver's projected
// delivery time. Unassigned orders and estimator failures yield no
// prediction.
func (o *Orchestrator) predictedETA(ctx context.Context, ord model.Order) *time.Time {
	if o.estimator == nil || !ord.Assigned() {
		return nil
	}
	st, ok := o.fleet.Get(ord.DriverID)
	if !ok {
		return nil
	}
	eta, err := o.estimator.EstimateDelivery(ctx, ord, st.Driver)
	if err != nil || eta.IsZero() {
		return nil
	}
	return &eta
}

func (o *Orchestrator) publish(e Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}
