package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.IncOrderPlaced()
	metrics.IncPlacementReplay()
	metrics.IncPlacementFailure("empty_cart")
	metrics.ObservePlacementDuration(120 * time.Millisecond)
	metrics.IncCartCacheHit()
	metrics.IncCartCacheMiss()
	metrics.IncCartCacheMiss()
	metrics.IncOutboxPublished()
	metrics.IncOutboxFailure()
	metrics.IncOutboxDeadLetter()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name  string
		label string
		value string
		want  float64
	}{
		{"orders_placed_total", "", "", 1},
		{"placement_replays_total", "", "", 1},
		{"placement_failures_total", "reason", "empty_cart", 1},
		{"cart_cache_lookups_total", "outcome", "hit", 1},
		{"cart_cache_lookups_total", "outcome", "miss", 2},
		{"outbox_published_total", "", "", 1},
		{"outbox_publish_failures_total", "", "", 1},
		{"outbox_dead_letters_total", "", "", 1},
	}
	for _, check := range checks {
		got, err := fetchCounterValue(mfs, check.name, check.label, check.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", check.name, err)
		}
		if got != check.want {
			t.Fatalf("%s: expected %f, got %f", check.name, check.want, got)
		}
	}

	sum, err := fetchHistogramSum(mfs, "placement_duration_seconds")
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestPipelineMetricsNilReceiverSafe(t *testing.T) {
	var metrics *PipelineMetrics
	metrics.IncOrderPlaced()
	metrics.IncPlacementFailure("any")
	metrics.ObservePlacementDuration(time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetHistogram().GetSampleSum(), nil
	}
	return 0, fmt.Errorf("histogram %q has no samples", name)
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
