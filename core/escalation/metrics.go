package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	escalationsTotal *prometheus.CounterVec
	openEscalations  prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Gauge) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Escalations opened by reason and level",
		},
		[]string{"reason", "level"},
	)
	open := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escalations_open",
			Help: "Currently open escalations",
		},
	)
	return total, open
}

func init() {
	escalationsTotal, openEscalations = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers escalation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(escalationsTotal, openEscalations)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	escalationsTotal, openEscalations = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
