package assign

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reassignmentsTotal *prometheus.CounterVec
	candidateScore     *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reassignments_total",
			Help: "Reassignment decisions by outcome",
		},
		[]string{"service_type", "result"},
	)
	score := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reassignment_candidate_score",
			Help:    "Score of the selected replacement driver",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service_type"},
	)
	return total, score
}

func init() {
	reassignmentsTotal, candidateScore = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers assignment metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(reassignmentsTotal, candidateScore)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	reassignmentsTotal, candidateScore = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
