package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	Submissions    *prometheus.CounterVec
	Decisions      *prometheus.CounterVec
	AutoApprovals  *prometheus.CounterVec
	DecideDuration prometheus.Histogram
}

// New registers the verification metrics on reg. A nil reg uses a private
// registry, which keeps tests from colliding on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_verification_submissions_total",
			Help: "Evidence submissions that moved a record to SUBMITTED, by vtype",
		}, []string{"vtype"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_verification_decisions_total",
			Help: "Admin decisions applied, by decision",
		}, []string{"decision"}),
		AutoApprovals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_verification_auto_approvals_total",
			Help: "Records approved by an automated workflow, by vtype",
		}, []string{"vtype"}),
		DecideDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "phasegate_verification_decide_duration_seconds",
			Help:    "Duration of Decide operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementSubmission(vtype string) {
	m.Submissions.WithLabelValues(vtype).Inc()
}

func (m *Metrics) IncrementDecision(decision string) {
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementAutoApproval(vtype string) {
	m.AutoApprovals.WithLabelValues(vtype).Inc()
}

// ObserveDecide records the duration of a Decide call started at start.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}
