package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks CPE activity transitions and credited hours.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	HoursCredited *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_cpe_transitions_total",
			Help: "CPE activity transitions by name",
		}, []string{"transition"}),
		HoursCredited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_cpe_hours_credited_total",
			Help: "CPE hours that became countable, by activity type",
		}, []string{"activity_type"}),
	}
}

func (m *Metrics) IncTransition(name string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(name).Inc()
}

func (m *Metrics) AddHoursCredited(activityType string, hours float64) {
	if m == nil || hours <= 0 {
		return
	}
	m.HoursCredited.WithLabelValues(activityType).Add(hours)
}
