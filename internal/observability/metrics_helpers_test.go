package observability

import "github.com/prometheus/client_golang/prometheus"

// newCounterVec and friends build unregistered vecs for table-driven
// metrics tests, so tests don't collide on prometheus's default
// registry the way calling NewMetrics() twice would.

func newCounterVec(labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter", Help: "test"}, labels)
}

func newGaugeVec(labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge", Help: "test"}, labels)
}

func newHistogramVec(labels []string, buckets ...float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram", Help: "test", Buckets: buckets}, labels)
}
