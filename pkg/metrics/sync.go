package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records collection operation and merge outcomes.
type SyncMetrics struct {
	operations    *prometheus.CounterVec
	mergeDuration *prometheus.HistogramVec
	mergeItems    *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
// A nil registerer yields no-op metrics.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_operations_total",
		Help: "Collection store operations by domain, operation, and result.",
	}, []string{"domain", "op", "result"})
	mergeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "merge_duration_seconds",
		Help:    "Duration of guest-to-authenticated merge passes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})
	mergeItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "merge_items_total",
		Help: "Guest items pushed during merge passes, by outcome.",
	}, []string{"domain", "result"})
	reg.MustRegister(operations, mergeDuration, mergeItems)
	return &SyncMetrics{
		operations:    operations,
		mergeDuration: mergeDuration,
		mergeItems:    mergeItems,
	}
}

// IncOperation counts a settled store operation.
func (s *SyncMetrics) IncOperation(domain, op, result string) {
	if s == nil || s.operations == nil {
		return
	}
	s.operations.WithLabelValues(normalizeLabel(domain), normalizeLabel(op), normalizeLabel(result)).Inc()
}

// ObserveMergeDuration records the wall time of a merge pass.
func (s *SyncMetrics) ObserveMergeDuration(domain string, duration time.Duration) {
	if s == nil || s.mergeDuration == nil {
		return
	}
	s.mergeDuration.WithLabelValues(normalizeLabel(domain)).Observe(duration.Seconds())
}

// IncMergeItems counts merged guest items by outcome.
func (s *SyncMetrics) IncMergeItems(domain, result string, count int) {
	if s == nil || s.mergeItems == nil || count <= 0 {
		return
	}
	s.mergeItems.WithLabelValues(normalizeLabel(domain), normalizeLabel(result)).Add(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
