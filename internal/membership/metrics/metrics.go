package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts membership application transitions.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Approvals   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_membership_transitions_total",
			Help: "Membership application transitions by name",
		}, []string{"transition"}),
		Approvals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kfa_membership_members_joined_total",
			Help: "Applications approved into the member directory",
		}),
	}
}

func (m *Metrics) IncTransition(name string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(name).Inc()
}

func (m *Metrics) IncMemberJoined() {
	if m == nil {
		return
	}
	m.Approvals.Inc()
}
