package metrics

import (
	"fmt"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veritas"

// Metrics groups the pipeline collectors
type Metrics struct {
	registry *prometheus.Registry

	// decisions counts enforcement outcomes.
	// Labels: decision (allow, modify, block, bypass), domain
	decisions *prometheus.CounterVec

	// claims counts checked claims.
	// Labels: outcome (supported, unverified, hallucination, degraded)
	claims *prometheus.CounterVec

	// qualifiers counts detected hedges.
	// Labels: type
	qualifiers *prometheus.CounterVec

	// trustScore tracks the latest score per subject
	trustScore *prometheus.GaugeVec

	// duration measures ProcessResponse latency
	duration prometheus.Histogram
}

// New creates metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Enforcement decisions by outcome and domain",
		}, []string{"decision", "domain"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      "claims_total",
			Help:      "Checked claims by outcome",
		}, []string{"outcome"}),
		qualifiers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uncertainty",
			Name:      "qualifiers_total",
			Help:      "Detected hedge phrases by type",
		}, []string{"type"}),
		trustScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "score",
			Help:      "Current trust score per subject",
		}, []string{"subject"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "ProcessResponse latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResult records one ProcessResponse outcome
func (m *Metrics) ObserveResult(r model.ProcessResult, elapsed time.Duration) {
	if m == nil {
		return
	}

	decision := r.EnforcementResult.Decision()
	if r.Bypassed {
		decision = "bypass"
	}
	m.decisions.WithLabelValues(decision, string(r.DomainClassification.Domain.ID)).Inc()

	for _, c := range r.Claims {
		m.claims.WithLabelValues(claimOutcome(c)).Inc()
	}
	for _, q := range r.UncertaintyEvaluations {
		m.qualifiers.WithLabelValues(string(q.Type)).Inc()
	}

	m.trustScore.WithLabelValues(subjectLabel(r.Subject)).Set(float64(r.TrustScore))
	m.duration.Observe(elapsed.Seconds())
}

// WriteTextfile writes every metric in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func claimOutcome(c model.Claim) string {
	switch {
	case c.Degraded:
		return "degraded"
	case c.IsHallucination:
		return "hallucination"
	case c.VerificationSource == model.SourceUnverified:
		return "unverified"
	default:
		return "supported"
	}
}

func subjectLabel(subject string) string {
	if subject == "" {
		return "default"
	}
	return subject
}
