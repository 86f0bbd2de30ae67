package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 提交结果标签
const (
	OutcomeRendered   = "rendered"
	OutcomeValidation = "validation_error"
	OutcomeTransport  = "transport_error"
	OutcomeMalformed  = "malformed_response"
	OutcomeStale      = "stale"
)

// Metrics 服务指标
type Metrics struct {
	submissions    *prometheus.CounterVec
	latency        prometheus.Histogram
	activeSessions prometheus.Gauge
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarsizer",
			Name:      "submissions_total",
			Help:      "Sizing submissions by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solarsizer",
			Name:      "sizing_request_duration_seconds",
			Help:      "Latency of the exchange with the sizing service.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarsizer",
			Name:      "active_sessions",
			Help:      "Open equipment sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.submissions, m.latency, m.activeSessions)
	}
	return m
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) setActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
