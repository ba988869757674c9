// Package metrics provides Prometheus metrics for pobal.
// Counters and gauges for the registries, eras, disbursement, the
// treasury pool, the HTTP API and health checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Registries ─────────────────────────────────────────────────────────────

// Members tracks registered members.
var Members = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "members",
	Help:      "Number of registered members.",
})

// Tasks tracks entries in the active task sequence.
var Tasks = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "tasks",
	Help:      "Number of tasks in the active task sequence.",
})

// ─── Eras ───────────────────────────────────────────────────────────────────

// ErasStarted counts successful era selections.
var ErasStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "eras_started_total",
	Help:      "Total eras started.",
})

// LastSelection tracks the block of the most recent selection.
var LastSelection = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "last_selection_block",
	Help:      "Block height of the most recent era selection.",
})

// EraPhase is 1 for the current era phase and 0 for the others.
var EraPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "era_phase",
	Help:      "Current era phase (1=current, 0=other).",
}, []string{"phase"})

var phases = []domain.EraPhase{domain.PhaseNoActiveTask, domain.PhaseTaskInFlight, domain.PhaseTaskComplete}

// ProofsSubmitted counts accepted proofs.
var ProofsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "proofs_submitted_total",
	Help:      "Total proofs recorded.",
})

// ─── Treasury ───────────────────────────────────────────────────────────────

// Funded counts value deposited into tasks.
var Funded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "funded_total",
	Help:      "Total value deposited into tasks.",
})

// Disbursed counts value paid out to participants.
var Disbursed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "disbursed_total",
	Help:      "Total value paid to active participants.",
})

// FailedTransfers counts shares that were parked after a rejected transfer.
var FailedTransfers = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "failed_transfers_total",
	Help:      "Total participant transfers rejected and parked as unclaimed.",
})

// Unclaimed tracks the unclaimed balance.
var Unclaimed = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "unclaimed_balance",
	Help:      "Value held by the coordinator that no one has claimed.",
})

// ─── API ────────────────────────────────────────────────────────────────────

// APIRequests counts HTTP requests by route and status code.
var APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pobal",
	Name:      "api_requests_total",
	Help:      "Total API requests by route and status.",
}, []string{"route", "status"})

// APILatency tracks HTTP handler duration in seconds.
var APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pobal",
	Name:      "api_latency_seconds",
	Help:      "API request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
}, []string{"route"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "pobal",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ─── Coordinator Hooks ──────────────────────────────────────────────────────

// ObserveState refreshes the state gauges from a committed snapshot.
func ObserveState(s domain.Snapshot) {
	Members.Set(float64(len(s.Members)))
	Tasks.Set(float64(len(s.Tasks)))
	Unclaimed.Set(float64(s.Unclaimed))
	LastSelection.Set(float64(s.LastSelection))
	current := s.Phase()
	for _, p := range phases {
		v := 0.0
		if p == current {
			v = 1
		}
		EraPhase.WithLabelValues(string(p)).Set(v)
	}
}

// Sink counts committed events.
type Sink struct{}

// Publish implements domain.EventSink.
func (Sink) Publish(e domain.Event) {
	switch e.Kind {
	case domain.EventNewEraStarted:
		ErasStarted.Inc()
	case domain.EventProofSubmitted:
		ProofsSubmitted.Inc()
	case domain.EventTaskFunded:
		Funded.Add(float64(e.Amount))
	case domain.EventTaskCompleted:
		if n := len(e.Participants) - len(e.Failed); n > 0 {
			Disbursed.Add(float64(e.Share) * float64(n))
		}
		FailedTransfers.Add(float64(len(e.Failed)))
	}
}
