package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetops/dispatchd/core/metrics"
)

// PromSink records dispatch decisions in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	escalations *prometheus.CounterVec
	penalties   *prometheus.CounterVec
	amounts     *prometheus.CounterVec
	efficiency  *prometheus.HistogramVec
	cycleOrders prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.DecisionSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.DecisionSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Total number of assignment decisions",
	}, []string{"service_type"})
	escalations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_escalations_total",
		Help: "Total number of escalations by reason and level",
	}, []string{"reason", "level"})
	penalties := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_penalties_total",
		Help: "Total number of SLA penalties assessed",
	}, []string{"service_type", "preventable"})
	amounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_penalty_amount_total",
		Help: "Cumulative penalty amount by service type",
	}, []string{"service_type"})
	efficiency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_batch_efficiency",
		Help:    "Efficiency score of built batches",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"service_type"})
	cycleOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_cycle_orders",
		Help: "Orders evaluated in the last monitoring cycle",
	})

	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(escalations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			escalations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(penalties); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			penalties = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(amounts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			amounts = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(efficiency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			efficiency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(cycleOrders); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cycleOrders = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		assignments: assignments,
		escalations: escalations,
		penalties:   penalties,
		amounts:     amounts,
		efficiency:  efficiency,
		cycleOrders: cycleOrders,
	}, nil
}

// RecordAssignment increments the counter for each assignment decision.
func (s *PromSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	for _, r := range recs {
		s.assignments.WithLabelValues(r.Service.String()).Inc()
	}
	return nil
}

// RecordEscalation counts the escalation by reason and level.
func (s *PromSink) RecordEscalation(rec coremetrics.EscalationRecord) error {
	s.escalations.WithLabelValues(rec.Reason, rec.Level).Inc()
	return nil
}

// RecordPenalty counts the penalty and accumulates its amount.
func (s *PromSink) RecordPenalty(rec coremetrics.PenaltyRecord) error {
	s.penalties.WithLabelValues(rec.Service.String(), strconv.FormatBool(rec.Preventable)).Inc()
	s.amounts.WithLabelValues(rec.Service.String()).Add(rec.Amount)
	return nil
}

// RecordBatch observes the batch efficiency histogram.
func (s *PromSink) RecordBatch(rec coremetrics.BatchRecord) error {
	s.efficiency.WithLabelValues(rec.Service.String()).Observe(rec.Efficiency)
	return nil
}

// RecordCycle sets the gauge to the number of evaluated orders.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.cycleOrders.Set(float64(rec.Checked))
	return nil
}
