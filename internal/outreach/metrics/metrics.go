package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for outreach sends.
const (
	OutcomeSent      = "sent"
	OutcomeDenied    = "denied"
	OutcomeDuplicate = "duplicate"
)

// Metrics provides observability for outreach authorization.
type Metrics struct {
	Sends *prometheus.CounterVec
}

// New registers the outreach metrics on reg; nil uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		Sends: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "phasegate_outreach_sends_total",
			Help: "Outreach send attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementSend(outcome string) {
	m.Sends.WithLabelValues(outcome).Inc()
}
