package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "supawave"

// Transfer outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// InventoryMetrics covers the transfer workflow and the stock ledger.
type InventoryMetrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	violations  *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on reg. A nil reg
// returns a recorder that drops everything.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_transitions_total",
		Help:      "Transfer workflow calls by action and outcome.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transfer_transition_duration_seconds",
		Help:      "Time spent inside a transfer workflow transaction.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_invariant_violations_total",
		Help:      "Ledger operations that found the stock invariants broken.",
	}, []string{"operation"})
	reg.MustRegister(transitions, duration, violations)
	return &InventoryMetrics{
		transitions: transitions,
		duration:    duration,
		violations:  violations,
	}
}

// ObserveTransition records one workflow call.
func (m *InventoryMetrics) ObserveTransition(action, outcome string, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(action)).Observe(elapsed.Seconds())
}

// IncInvariantViolation counts a ledger invariant breach for operation.
func (m *InventoryMetrics) IncInvariantViolation(operation string) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// OutboxMetrics counts publisher results.
type OutboxMetrics struct {
	published *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_published_total",
		Help:      "Outbox rows handled by the publisher, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(published)
	return &OutboxMetrics{published: published}
}

func (m *OutboxMetrics) Inc(outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(outcome)).Inc()
}
