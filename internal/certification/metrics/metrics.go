package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks certification transitions and verification traffic.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	Verifications *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_certification_transitions_total",
			Help: "Certification transitions by name",
		}, []string{"transition"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_certificate_verifications_total",
			Help: "Public certificate verifications by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncTransition(name string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(name).Inc()
}

// IncVerification records a lookup; outcome is valid, invalid or not_found.
func (m *Metrics) IncVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}
