package instrumented

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the repository collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    *prometheus.HistogramVec
}

// NewMetrics creates the repository collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidrag_repository_operations_total",
				Help: "Total number of vector repository operations",
			},
			[]string{"op", "backend", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidrag_repository_operation_seconds",
				Help:    "Vector repository operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op", "backend"},
		),
		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidrag_search_results",
				Help:    "Number of results returned by a search",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"backend"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.results)
	}
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns collectors registered once with the default registry.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
