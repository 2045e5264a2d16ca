package factory

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	pairsCreated *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pairsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "factory",
			Name:      "pairs_created_total",
			Help:      "Total number of pairs deployed by the factory.",
		}, []string{"curve"}),
	}
	reg.MustRegister(m.pairsCreated)
	return m
}
