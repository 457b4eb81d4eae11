package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for invocation metrics.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeConflict    = "conflict"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Metrics tracks host invocations by operation and outcome.
type Metrics struct {
	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
}

// New registers the host metrics with reg. Pass prometheus.DefaultRegisterer
// in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credrec_invocations_total",
			Help: "Total number of contract invocations by operation and outcome",
		}, []string{"op", "outcome"}),
		InvocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credrec_invocation_duration_seconds",
			Help:    "Duration of contract invocations including commit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
	}
}

// ObserveInvocation records one finished invocation.
// Call with time.Now() captured at the start of the invocation.
func (m *Metrics) ObserveInvocation(op, outcome string, start time.Time) {
	m.Invocations.WithLabelValues(op, outcome).Inc()
	m.InvocationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
