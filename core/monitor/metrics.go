package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersChecked prometheus.Gauge
	cycleDuration prometheus.Histogram
	cycleFailures prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Gauge, prometheus.Histogram, prometheus.Counter) {
	checked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_orders_checked",
		Help: "Active orders evaluated in the last cycle",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "monitor_cycle_duration_seconds",
		Help:    "Wall time of a full monitoring cycle",
		Buckets: prometheus.DefBuckets,
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_cycle_failures_total",
		Help: "Orders or cycles that failed during processing",
	})
	return checked, duration, failures
}

func init() {
	ordersChecked, cycleDuration, cycleFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers cycle metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(ordersChecked, cycleDuration, cycleFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	ordersChecked, cycleDuration, cycleFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
