// Package monitor drives the periodic dispatch cycle: every interval it
// evaluates all active orders concurrently, then applies the resulting
// decisions one by one in order-id order.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/orchestrator"
	"github.com/fleetops/dispatchd/core/sla"
)

// ActiveSource lists the orders the cycle must evaluate.
type ActiveSource interface {
	ActiveOrders(ctx context.Context) ([]model.Order, error)
}

// Config holds the cycle cadence and parallelism.
type Config struct {
	IntervalSeconds int `json:"interval_seconds"`
	Workers         int `json:"workers"`
}

// SetDefaults applies the standard cadence.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 45
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
}

// Interval returns the cycle period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Runner executes monitoring cycles until its context is cancelled.
type Runner struct {
	cfg    Config
	source ActiveSource
	orch   *orchestrator.Orchestrator
	sink   metrics.DecisionSink
	log    logger.Logger
	now    func() time.Time
}

// NewRunner wires the cycle runner. sink may be nil.
func NewRunner(cfg Config, source ActiveSource, orch *orchestrator.Orchestrator, sink metrics.DecisionSink, log logger.Logger) (*Runner, error) {
	if source == nil {
		return nil, fmt.Errorf("monitor: nil order source provided to NewRunner")
	}
	if orch == nil {
		return nil, fmt.Errorf("monitor: nil orchestrator provided to NewRunner")
	}
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Runner{cfg: cfg, source: source, orch: orch, sink: sink, log: log, now: time.Now}, nil
}

// Start runs cycles on the configured interval until ctx is done. The first
// cycle fires immediately.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval())
	defer ticker.Stop()
	if _, err := r.RunCycle(ctx); err != nil {
		r.log.Errorf("monitoring cycle: %v", err)
	}
	for {
		select {
		case <-ticker.C:
			if _, err := r.RunCycle(ctx); err != nil {
				r.log.Errorf("monitoring cycle: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

type evaluation struct {
	order  model.Order
	status sla.Status
}

// RunCycle performs one pass: list active orders, evaluate them with a
// bounded worker pool, then act on each in ascending order-id order. A
// failure on one order never stops the rest of the cycle.
func (r *Runner) RunCycle(ctx context.Context) (metrics.CycleRecord, error) {
	start := r.now()
	orders, err := r.source.ActiveOrders(ctx)
	if err != nil {
		cycleFailures.Inc()
		return metrics.CycleRecord{}, fmt.Errorf("monitor: list active orders: %w", err)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	evals := make([]evaluation, len(orders))
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup
	for i, ord := range orders {
		if ord.Status.Terminal() {
			evals[i] = evaluation{order: ord}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ord model.Order) {
			defer wg.Done()
			defer func() { <-sem }()
			evals[i] = evaluation{order: ord, status: r.orch.Evaluate(ctx, ord)}
		}(i, ord)
	}
	wg.Wait()

	rec := metrics.CycleRecord{Time: start}
	for _, ev := range evals {
		if ev.order.Status.Terminal() {
			continue
		}
		rec.Checked++
		switch ev.status.Category {
		case sla.Warning:
			rec.Warnings++
		case sla.Critical:
			rec.Critical++
		case sla.Breached:
			rec.Breached++
		}
		out, err := r.orch.Act(ctx, ev.order, ev.status)
		if err != nil {
			cycleFailures.Inc()
			r.log.Errorf("act on order %s: %v", ev.order.ID, err)
			continue
		}
		if out.Escalation != nil {
			rec.Escalated++
		}
	}
	rec.Duration = r.now().Sub(start)

	ordersChecked.Set(float64(rec.Checked))
	cycleDuration.Observe(rec.Duration.Seconds())
	if cr, ok := r.sink.(metrics.CycleRecorder); ok {
		if err := cr.RecordCycle(rec); err != nil {
			r.log.Warnf("record cycle: %v", err)
		}
	}
	r.log.Infof("cycle done: checked=%d warnings=%d critical=%d breached=%d escalated=%d in %s",
		rec.Checked, rec.Warnings, rec.Critical, rec.Breached, rec.Escalated, rec.Duration)
	return rec, nil
}
