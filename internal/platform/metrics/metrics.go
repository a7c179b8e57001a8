package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus metrics: HTTP latency and the
// outbox relay.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
}

// New creates and registers the platform metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kfa_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kfa_outbox_published_total",
			Help: "Total number of outbox entries relayed to the broker",
		}),
		OutboxFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kfa_outbox_publish_failures_total",
			Help: "Total number of outbox relay publish failures",
		}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) IncPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.OutboxFailed.Inc()
}
