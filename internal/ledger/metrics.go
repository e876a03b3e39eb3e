package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records gateway traffic. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
	up       prometheus.Gauge
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aframp",
			Subsystem: "horizon",
			Name:      "requests_total",
			Help:      "Horizon requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aframp",
			Subsystem: "horizon",
			Name:      "request_duration_seconds",
			Help:      "Latency of single Horizon round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aframp",
			Subsystem: "horizon",
			Name:      "retries_total",
			Help:      "Retried Horizon reads by operation.",
		}, []string{"op"}),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aframp",
			Subsystem: "horizon",
			Name:      "up",
			Help:      "1 when the last health probe succeeded.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.retries, m.up} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) retried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) health(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.up.Set(1)
		return
	}
	m.up.Set(0)
}
