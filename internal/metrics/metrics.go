// Package metrics registers arbiter's internal prometheus collectors
// against a private registry. No /metrics HTTP exposition is wired here —
// that transport concern belongs to the external HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the scheduler updates for its refresh
// cycles, detection counts, quota, and store-write failures.
type Metrics struct {
	Registry *prometheus.Registry

	RefreshDuration       prometheus.Histogram
	OpportunitiesDetected prometheus.Counter
	QuotaRemaining        prometheus.Gauge
	StoreWriteErrors      prometheus.Counter
	RefreshTicksDropped   prometheus.Counter
}

// New constructs and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arbiter",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full refresh cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		OpportunitiesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbiter",
			Name:      "opportunities_detected_total",
			Help:      "Total number of arbitrage opportunities emitted.",
		}),
		QuotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arbiter",
			Name:      "quota_remaining",
			Help:      "Last-observed upstream requests remaining.",
		}),
		StoreWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbiter",
			Name:      "store_write_errors_total",
			Help:      "Total number of failed store writes.",
		}),
		RefreshTicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbiter",
			Name:      "refresh_ticks_dropped_total",
			Help:      "Total number of scheduler ticks dropped due to an in-flight refresh.",
		}),
	}

	reg.MustRegister(
		m.RefreshDuration,
		m.OpportunitiesDetected,
		m.QuotaRemaining,
		m.StoreWriteErrors,
		m.RefreshTicksDropped,
	)

	return m
}

// ObserveRefresh records the duration of a completed refresh cycle.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	m.RefreshDuration.Observe(d.Seconds())
}
