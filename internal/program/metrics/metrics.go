package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions *prometheus.CounterVec
	Outcomes    *prometheus.CounterVec
	Seats       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_program_enrollment_transitions_total",
			Help: "Program enrollment transitions by name",
		}, []string{"transition"}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_program_enrollment_outcomes_total",
			Help: "Finished enrollments by outcome (passed, failed)",
		}, []string{"outcome"}),
		Seats: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kfa_program_seats_total",
			Help: "Seats taken and released on programs",
		}, []string{"direction"}),
	}
}

func (m *Metrics) IncTransition(name string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(name).Inc()
}

func (m *Metrics) RecordOutcome(passed bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

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
