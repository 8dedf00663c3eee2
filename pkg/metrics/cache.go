package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load priorities used as label values.
const (
	PriorityVisible  = "visible"
	PriorityPrefetch = "prefetch"
	PriorityAll      = "all"
)

// CacheMetrics records block cache activity.
type CacheMetrics struct {
	loads         *prometheus.CounterVec
	merges        prometheus.Counter
	staleDiscards prometheus.Counter
	evictions     prometheus.Counter
	valueLookups  *prometheus.CounterVec
	resident      prometheus.Gauge
	pending       prometheus.Gauge
	loadDuration  prometheus.Histogram
}

// NewCacheMetrics creates and registers the block cache collectors.
// A nil registerer returns nil, which disables recording.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return nil
	}

	return &CacheMetrics{
		loads: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "blockcache",
				Name:      "loads_total",
				Help:      "Block loads submitted, by priority",
			},
			[]string{"priority"},
		)),
		merges: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "merges_total",
			Help:      "Completed block loads merged into the cache",
		})),
		staleDiscards: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "stale_discards_total",
			Help:      "Completed block loads discarded after a reset or eviction",
		})),
		evictions: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "evictions_total",
			Help:      "Blocks evicted by cleanup",
		})),
		valueLookups: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "blockcache",
				Name:      "lookups_total",
				Help:      "Row lookups, by result (hit or pending)",
			},
			[]string{"result"},
		)),
		resident: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "resident_blocks",
			Help:      "Blocks currently resident",
		})),
		pending: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "pending_loads",
			Help:      "Block loads in flight",
		})),
		loadDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "blockcache",
			Name:      "load_duration_seconds",
			Help:      "Time from block load submission to merge",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		})),
	}
}

// ObserveLoad records a submitted block load.
func (m *CacheMetrics) ObserveLoad(priority string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(priority).Inc()
}

// ObserveMerge records a merged block load and its latency.
func (m *CacheMetrics) ObserveMerge(d time.Duration) {
	if m == nil {
		return
	}
	m.merges.Inc()
	m.loadDuration.Observe(d.Seconds())
}

// ObserveStale records a discarded block load.
func (m *CacheMetrics) ObserveStale() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

// ObserveEvictions records n evicted blocks.
func (m *CacheMetrics) ObserveEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

// ObserveLookup records a row lookup that hit a resident block or returned
// the pending placeholder.
func (m *CacheMetrics) ObserveLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.valueLookups.WithLabelValues("hit").Inc()
	} else {
		m.valueLookups.WithLabelValues("pending").Inc()
	}
}

// SetResident sets the resident block gauge.
func (m *CacheMetrics) SetResident(n int) {
	if m == nil {
		return
	}
	m.resident.Set(float64(n))
}

// SetPending sets the in-flight load gauge.
func (m *CacheMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
