package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registration transitions and seat occupancy changes.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Seats       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_event_registration_transitions_total",
			Help: "Event registration transitions by name",
		}, []string{"transition"}),
		Seats: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_event_seats_total",
			Help: "Seats taken and released on events",
		}, []string{"direction"}),
	}
}

func (m *Metrics) IncTransition(name string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(name).Inc()
}

// SeatTaken and SeatReleased mirror registered_count changes.
func (m *Metrics) SeatTaken() {
	if m == nil {
		return
	}
	m.Seats.WithLabelValues("taken").Inc()
}

func (m *Metrics) SeatReleased() {
	if m == nil {
		return
	}
	m.Seats.WithLabelValues("released").Inc()
}
