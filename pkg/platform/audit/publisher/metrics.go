package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit emission.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_audit_events_emitted_total",
			Help: "Total number of lifecycle events written to the audit store",
		}, []string{"category"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kfa_audit_persist_failures_total",
			Help: "Total number of lifecycle events that failed to persist",
		}),
	}
}

func (m *Metrics) IncEventsEmitted(category string) {
	if m == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}
