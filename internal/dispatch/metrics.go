package dispatch

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the request-level prometheus collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds and registers the dispatch collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treb",
			Name:      "requests_total",
			Help:      "Requests handled, by controller, action and status.",
		}, []string{"controller", "action", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "treb",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"controller", "action"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(controller, action string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if controller == "" {
		controller = "unresolved"
	}
	if action == "" {
		action = "unresolved"
	}
	m.requests.WithLabelValues(controller, action, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(controller, action).Observe(elapsed.Seconds())
}
