package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes. Labels never carry user input.
type Metrics struct {
	GateTotal     *prometheus.CounterVec
	LoginTotal    *prometheus.CounterVec
	RegisterTotal *prometheus.CounterVec
}

// NewMetrics registers the auth counters with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GateTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "gate_total",
			Help:      "Authentication gate decisions by outcome",
		}, []string{"outcome"}),
		LoginTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		RegisterTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "register_total",
			Help:      "Registration attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) gate(outcome string) {
	if m != nil {
		m.GateTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) login(outcome string) {
	if m != nil {
		m.LoginTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) register(outcome string) {
	if m != nil {
		m.RegisterTotal.WithLabelValues(outcome).Inc()
	}
}
