package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_ratelimit_decisions_total",
			Help: "Rate limit decisions by policy and outcome (allowed, limited, error)",
		}, []string{"policy", "outcome"}),
	}
}

func (m *Metrics) Record(policy, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(policy, outcome).Inc()
}
