package differ

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	diffDuration prometheus.Histogram
	diffErrors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_differ_diff_duration_seconds",
			Help:    "Time spent diffing two state snapshots.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		diffErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amm_differ_diff_errors_total",
			Help: "Snapshot pairs that could not be diffed.",
		}),
	}
	reg.MustRegister(m.diffDuration, m.diffErrors)
	return m
}
