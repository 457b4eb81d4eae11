package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"credrec/internal/credential/models"
)

// Metrics tracks committed credential record writes.
type Metrics struct {
	Initialized  prometheus.Counter
	StatusWrites *prometheus.CounterVec
}

// New registers the credential metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Initialized: factory.NewCounter(prometheus.CounterOpts{
			Name: "credrec_records_initialized_total",
			Help: "Total number of committed initialize invocations",
		}),
		StatusWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credrec_status_writes_total",
			Help: "Total number of committed status writes by written status",
		}, []string{"status"}),
	}
}

// IncrementInitialized records a committed initialize.
func (m *Metrics) IncrementInitialized(status models.Status) {
	m.Initialized.Inc()
	m.StatusWrites.WithLabelValues(status.String()).Inc()
}

// IncrementStatusUpdate records a committed update_status.
func (m *Metrics) IncrementStatusUpdate(status models.Status) {
	m.StatusWrites.WithLabelValues(status.String()).Inc()
}
