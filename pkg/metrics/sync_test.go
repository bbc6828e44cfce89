package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)

	metrics.IncOperation("cart", "add", "success")
	metrics.IncOperation("cart", "add", "success")
	metrics.ObserveMergeDuration("cart", 250*time.Millisecond)
	metrics.IncMergeItems("cart", "failure", 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "collection_operations_total", "op", "add"); err != nil {
		t.Fatalf("fetch operations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected operations=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "merge_items_total", "result", "failure"); err != nil {
		t.Fatalf("fetch merge items: %v", err)
	} else if got != 3 {
		t.Fatalf("expected merge items=3, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "merge_duration_seconds", "domain", "cart"); err != nil {
		t.Fatalf("fetch merge duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var metrics *SyncMetrics
	metrics.IncOperation("cart", "add", "success")
	metrics.ObserveMergeDuration("cart", time.Second)
	metrics.IncMergeItems("cart", "success", 1)

	empty := NewSyncMetrics(nil)
	empty.IncOperation("wishlist", "remove", "failure")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
