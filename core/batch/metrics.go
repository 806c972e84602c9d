package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	batchesBuilt     *prometheus.CounterVec
	batchEfficiency  *prometheus.HistogramVec
	unbatchableTotal prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter) {
	built := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_built_total",
			Help: "Batches produced by service type and winning strategy",
		},
		[]string{"service_type", "strategy"},
	)
	eff := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_efficiency",
			Help:    "Efficiency score of produced batches",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service_type"},
	)
	unb := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unbatchable_orders_total",
			Help: "Orders left for individual assignment",
		},
	)
	return built, eff, unb
}

func init() {
	batchesBuilt, batchEfficiency, unbatchableTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers batch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(batchesBuilt, batchEfficiency, unbatchableTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	batchesBuilt, batchEfficiency, unbatchableTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
