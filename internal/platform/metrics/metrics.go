package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	AttestationsSubmitted prometheus.Counter
	AttestationsReviewed  *prometheus.CounterVec
	VaultsUnlocked        prometheus.Counter
	InstructionsScheduled prometheus.Counter
	InstructionsExecuted  prometheus.Counter
	DispatchOutcomes      *prometheus.CounterVec
	DispatchDuration      prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AttestationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultkeeper_attestations_submitted_total",
			Help: "Total number of death-verification attestations submitted",
		}),
		AttestationsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultkeeper_attestations_reviewed_total",
			Help: "Total number of attestation review decisions by outcome",
		}, []string{"status"}),
		VaultsUnlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultkeeper_vaults_unlocked_total",
			Help: "Total number of vaults unlocked after reaching quorum",
		}),
		InstructionsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultkeeper_instructions_scheduled_total",
			Help: "Total number of legacy instructions queued for execution",
		}),
		InstructionsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultkeeper_instructions_executed_total",
			Help: "Total number of legacy instructions executed exactly once",
		}),
		DispatchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultkeeper_dispatch_outcomes_total",
			Help: "Dispatch attempts by outcome (success, transient, permanent)",
		}, []string{"outcome"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultkeeper_dispatch_duration_seconds",
			Help:    "Latency of action dispatcher calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordAttestationSubmitted() {
	if m == nil {
		return
	}
	m.AttestationsSubmitted.Inc()
}

func (m *Metrics) RecordAttestationReviewed(status string) {
	if m == nil {
		return
	}
	m.AttestationsReviewed.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordVaultUnlocked() {
	if m == nil {
		return
	}
	m.VaultsUnlocked.Inc()
}

func (m *Metrics) RecordInstructionsScheduled(n int) {
	if m == nil {
		return
	}
	m.InstructionsScheduled.Add(float64(n))
}

func (m *Metrics) RecordInstructionExecuted() {
	if m == nil {
		return
	}
	m.InstructionsExecuted.Inc()
}

func (m *Metrics) RecordDispatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchOutcomes.WithLabelValues(outcome).Inc()
	m.DispatchDuration.Observe(elapsed.Seconds())
}
