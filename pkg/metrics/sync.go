package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records reconciliation outcomes per platform.
type SyncMetrics struct {
	items          *prometheus.CounterVec
	chunkFailures  *prometheus.CounterVec
	partialFetches *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewSyncMetrics registers the reconciliation metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_total",
		Help: "Reconciled snapshot items by outcome.",
	}, []string{"platform", "outcome"})
	chunkFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_chunk_failures_total",
		Help: "Upsert chunks that failed to commit.",
	}, []string{"platform"})
	partialFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_partial_fetch_warnings_total",
		Help: "Snapshots flagged as possible partial fetches.",
	}, []string{"platform"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Duration of reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})
	reg.MustRegister(items, chunkFailures, partialFetches, duration)
	return &SyncMetrics{
		items:          items,
		chunkFailures:  chunkFailures,
		partialFetches: partialFetches,
		duration:       duration,
	}
}

// AddItems increments the item counter for the outcome (inserted, updated, unchanged, invalid).
func (m *SyncMetrics) AddItems(platform, outcome string, n int) {
	if m == nil || m.items == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(normalizeLabel(platform), normalizeLabel(outcome)).Add(float64(n))
}

// AddChunkFailures increments the failed chunk counter.
func (m *SyncMetrics) AddChunkFailures(platform string, n int) {
	if m == nil || m.chunkFailures == nil || n <= 0 {
		return
	}
	m.chunkFailures.WithLabelValues(normalizeLabel(platform)).Add(float64(n))
}

// IncPartialFetch records a partial fetch warning.
func (m *SyncMetrics) IncPartialFetch(platform string) {
	if m == nil || m.partialFetches == nil {
		return
	}
	m.partialFetches.WithLabelValues(normalizeLabel(platform)).Inc()
}

// ObserveDuration records the run duration.
func (m *SyncMetrics) ObserveDuration(platform string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(platform)).Observe(duration.Seconds())
}
