package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// ComplianceMetrics records recomputation outcomes, audit transitions and
// retries of the outbound calls.
type ComplianceMetrics struct {
	recomputeTotal    *prometheus.CounterVec
	recomputeDuration *prometheus.HistogramVec
	transitionsTotal  *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
}

func NewComplianceMetrics(reg prometheus.Registerer) *ComplianceMetrics {
	m := &ComplianceMetrics{
		recomputeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recompute_total",
				Help:      "Cached percentage recomputations by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		recomputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recompute_duration_seconds",
				Help:      "Duration of one percentage recomputation.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"kind"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_transitions_total",
				Help:      "Document state transitions written to the audit trail.",
			},
			[]string{"from", "to"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Retried attempts of resilient operations.",
			},
			[]string{"operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_open",
				Help:      "1 while the operation's circuit breaker is not closed.",
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.recomputeTotal, m.recomputeDuration, m.transitionsTotal, m.retriesTotal, m.breakerState)
	return m
}

func (m *ComplianceMetrics) ObserveRecompute(kind domain.PercentageKind, status domain.OutcomeStatus, duration time.Duration) {
	m.recomputeTotal.WithLabelValues(string(kind), string(status)).Inc()
	m.recomputeDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (m *ComplianceMetrics) ObserveTransition(from, to domain.DocumentState) {
	m.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *ComplianceMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *ComplianceMetrics) ObserveBreakerState(operation, state string) {
	open := 0.0
	if state != "closed" {
		open = 1
	}
	m.breakerState.WithLabelValues(operation).Set(open)
}
