package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RepricerMetrics records repricing decisions and upstream price-apply calls.
type RepricerMetrics struct {
	decisions    *prometheus.CounterVec
	applyLatency *prometheus.HistogramVec
}

// NewRepricerMetrics registers the repricer metrics on the provided registerer.
func NewRepricerMetrics(reg prometheus.Registerer) *RepricerMetrics {
	if reg == nil {
		return &RepricerMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repricer_decisions_total",
		Help: "Repricing decisions by outcome.",
	}, []string{"decision"})
	applyLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repricer_apply_duration_seconds",
		Help:    "Duration of upstream price-apply calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(decisions, applyLatency)
	return &RepricerMetrics{decisions: decisions, applyLatency: applyLatency}
}

// IncDecision counts one evaluated listing.
func (m *RepricerMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// ObserveApply records an upstream apply call and whether it succeeded.
func (m *RepricerMetrics) ObserveApply(success bool, duration time.Duration) {
	if m == nil || m.applyLatency == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.applyLatency.WithLabelValues(result).Observe(duration.Seconds())
}
