package penalty

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	penaltiesTotal *prometheus.CounterVec
	penaltyAmount  *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_penalties_total",
			Help: "Penalty records created for breached deliveries",
		},
		[]string{"service_type"},
	)
	amount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sla_penalty_amount",
			Help:    "Capped penalty amounts in currency units",
			Buckets: prometheus.LinearBuckets(0, 25, 9),
		},
		[]string{"service_type"},
	)
	return total, amount
}

func init() {
	penaltiesTotal, penaltyAmount = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers penalty metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(penaltiesTotal, penaltyAmount)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	penaltiesTotal, penaltyAmount = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
