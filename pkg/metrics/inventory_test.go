package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInventoryMetricsRecordsTransitionsAndViolations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)

	m.ObserveTransition("approve", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveTransition("approve", OutcomeRejected, 5*time.Millisecond)
	m.ObserveTransition("approve", OutcomeRejected, 5*time.Millisecond)
	m.IncInvariantViolation("commit_transfer_out")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterWithLabels(t, mfs, "supawave_transfer_transitions_total", map[string]string{"action": "approve", "outcome": OutcomeRejected}); got != 2 {
		t.Fatalf("expected 2 rejected approvals, got %f", got)
	}
	if got := counterWithLabels(t, mfs, "supawave_inventory_invariant_violations_total", map[string]string{"operation": "commit_transfer_out"}); got != 1 {
		t.Fatalf("expected 1 violation, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "supawave_transfer_transition_duration_seconds", "action", "approve"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f err=%v", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewInventoryMetrics(nil)
	m.ObserveTransition("complete", OutcomeSuccess, time.Millisecond)
	m.IncInvariantViolation("reserve")

	var nilMetrics *InventoryMetrics
	nilMetrics.ObserveTransition("complete", OutcomeError, time.Millisecond)

	o := NewOutboxMetrics(nil)
	o.Inc(OutcomeSuccess)
}

func TestOutboxMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("published")
	m.Inc("dead_lettered")
	m.Inc("published")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "supawave_outbox_events_published_total", "outcome", "published"); err != nil || got != 2 {
		t.Fatalf("expected 2 published, got %f err=%v", got, err)
	}
}

func counterWithLabels(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			matched := 0
			for _, pair := range metric.Label {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) && metric.Counter != nil {
				return metric.Counter.GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}
