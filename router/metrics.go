package router

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	quoteDuration *prometheus.HistogramVec
	swaps         *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Subsystem: "router",
			Name:      "quote_duration_seconds",
			Help:      "Time spent computing router quotes.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		}, []string{"method"}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "router",
			Name:      "swaps_total",
			Help:      "Total number of swaps routed, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.quoteDuration, m.swaps)
	return m
}

func (m *Metrics) timeQuote(method string) *prometheus.Timer {
	return prometheus.NewTimer(m.quoteDuration.WithLabelValues(method))
}
