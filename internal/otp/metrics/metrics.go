package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for OTP operations.
const (
	OutcomeSent            = "sent"
	OutcomeAlreadyVerified = "already_verified"
	OutcomeThrottled       = "throttled"
	OutcomeProviderError   = "provider_error"
	OutcomeApproved        = "approved"
	OutcomeIncorrect       = "incorrect"
)

// Metrics provides observability for the phone OTP workflow.
type Metrics struct {
	Starts           *prometheus.CounterVec
	Checks           *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
}

// New registers the OTP metrics on reg; nil uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Starts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_otp_starts_total",
			Help: "Phone verification start attempts by outcome",
		}, []string{"outcome"}),
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_otp_checks_total",
			Help: "Phone verification code checks by outcome",
		}, []string{"outcome"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phasegate_otp_provider_duration_seconds",
			Help:    "Latency of SMS provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "operation"}),
	}
}

func (m *Metrics) IncrementStart(outcome string) {
	m.Starts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementCheck(outcome string) {
	m.Checks.WithLabelValues(outcome).Inc()
}

// ObserveProvider records a provider call started at start.
func (m *Metrics) ObserveProvider(provider, operation string, start time.Time) {
	m.ProviderDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}
