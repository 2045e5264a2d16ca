package pair

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pair operations. One instance is shared by every pair a factory deploys.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	swapFees   *prometheus.CounterVec
}

// NewMetrics creates the pair metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "pair",
			Name:      "operations_total",
			Help:      "Total number of successful state-changing pair operations.",
		}, []string{"op", "curve"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "pair",
			Name:      "operation_errors_total",
			Help:      "Total number of failed state-changing pair operations.",
		}, []string{"op", "curve"}),
		swapFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "pair",
			Name:      "swap_fees_total",
			Help:      "Total number of swap fee transfers out of pairs.",
		}, []string{"curve"}),
	}
	reg.MustRegister(m.operations, m.errors, m.swapFees)
	return m
}

func (m *Metrics) observe(op, curve string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.errors.WithLabelValues(op, curve).Inc()
		return
	}
	m.operations.WithLabelValues(op, curve).Inc()
}

func (m *Metrics) feeCollected(curve string) {
	if m == nil {
		return
	}
	m.swapFees.WithLabelValues(curve).Inc()
}
