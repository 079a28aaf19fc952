package sweeper

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	runs     prometheus.Counter
	deleted  prometheus.Counter
	skipped  prometheus.Counter
	errors   prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		runs: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadstore_sweeps_total",
			Help: "Total number of completed expiration sweeps",
		})),
		deleted: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadstore_sweep_deleted_files_total",
			Help: "Total number of expired files deleted by sweeps",
		})),
		skipped: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadstore_sweep_skipped_total",
			Help: "Total number of sweeps skipped because another sweep held the lock",
		})),
		errors: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadstore_sweep_errors_total",
			Help: "Total number of sweeps that failed",
		})),
		duration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uploadstore_sweep_duration_seconds",
			Help:    "Duration of expiration sweeps in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		})),
	}
}

// register returns the collector already registered under the same descriptor, if any.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
